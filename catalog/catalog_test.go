package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name   string
		prizes []Prize
	}{
		{"missing id", []Prize{{Value: decimal.Zero, Weight: 1}}},
		{"duplicate id", []Prize{{ID: "a", Weight: 1}, {ID: "a", Weight: 1}}},
		{"negative value", []Prize{{ID: "a", Value: decimal.NewFromInt(-1), Weight: 1, Stock: Stock(1)}}},
		{"no weight", []Prize{{ID: "a", Value: decimal.Zero}}},
		{"unbounded win", []Prize{{ID: "a", Value: decimal.NewFromInt(10), Weight: 1}}},
		{"negative stock", []Prize{{ID: "a", Value: decimal.NewFromInt(10), Weight: 1, Stock: Stock(-1)}}},
		{"sub-cent value", []Prize{{ID: "a", Value: decimal.RequireFromString("100.004"), Weight: 1, Stock: Stock(1)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.prizes)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestNew_ProbabilityBecomesWeight(t *testing.T) {
	c, err := New([]Prize{
		{ID: "a", Value: decimal.Zero, Probability: 35},
		{ID: "b", Value: decimal.NewFromInt(20), Probability: 5, Weight: 2, Stock: Stock(1)},
	})
	require.NoError(t, err)
	all := c.All()
	assert.Equal(t, 35.0, all[0].Weight)
	assert.Equal(t, 2.0, all[1].Weight, "explicit weight wins over probability")
}

func TestEligiblePrizes_KeepsOrder(t *testing.T) {
	c, err := New([]Prize{
		{ID: "1", Value: decimal.NewFromInt(1), Weight: 1, Stock: Stock(2)},
		{ID: "2", Value: decimal.NewFromInt(1), Weight: 1, Stock: Stock(0)},
		{ID: "3", Value: decimal.Zero, Weight: 1},
	})
	require.NoError(t, err)

	var ids []string
	for _, p := range c.EligiblePrizes() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)
	assert.Len(t, c.All(), 3)
}

func TestEligiblePrizes_ReturnsCopies(t *testing.T) {
	c, err := New([]Prize{{ID: "1", Value: decimal.NewFromInt(1), Weight: 1, Stock: Stock(2)}})
	require.NoError(t, err)
	*c.EligiblePrizes()[0].Stock = 0
	p, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, 2, *p.Stock)
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	c, err := New([]Prize{
		{ID: "win", Value: decimal.NewFromInt(10), Weight: 1, Stock: Stock(1)},
		{ID: "lose", Value: decimal.Zero, Weight: 1},
	})
	require.NoError(t, err)

	p, err := c.DecrementStock(ctx, "win")
	require.NoError(t, err)
	assert.Equal(t, 0, *p.Stock)

	_, err = c.DecrementStock(ctx, "win")
	assert.ErrorIs(t, err, errs.ErrOutOfStock)

	_, err = c.DecrementStock(ctx, "nope")
	assert.ErrorIs(t, err, errs.ErrPrizeNotFound)

	p, err = c.DecrementStock(ctx, "lose")
	require.NoError(t, err)
	assert.Nil(t, p.Stock)

}

func TestReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store, []Prize{
		{ID: "win", Value: decimal.NewFromInt(10), Weight: 1, Stock: Stock(1)},
		{ID: "lose", Value: decimal.Zero, Weight: 1},
	})
	require.NoError(t, err)

	p, err := c.Reserve("win")
	require.NoError(t, err)
	assert.Equal(t, 0, *p.Stock)
	_, err = c.Reserve("win")
	assert.ErrorIs(t, err, errs.ErrOutOfStock)
	_, err = c.Reserve("nope")
	assert.ErrorIs(t, err, errs.ErrPrizeNotFound)

	stored, err := store.LoadPrizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, *stored[0].Stock, "reserve does not write the store")

	c.Release("win")
	c.Release("lose")
	c.Release("nope")
	p, err = c.Get("win")
	require.NoError(t, err)
	assert.Equal(t, 1, *p.Stock)
	p, err = c.Get("lose")
	require.NoError(t, err)
	assert.Nil(t, p.Stock)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store, DefaultPrizes())
	require.NoError(t, err)

	stock, weight := 40, 12.5
	p, err := c.Update(ctx, "3", PrizePatch{Stock: &stock, Weight: &weight})
	require.NoError(t, err)
	assert.Equal(t, 40, *p.Stock)
	assert.Equal(t, 12.5, p.Weight)

	stored, err := store.LoadPrizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, *stored[2].Stock)
	assert.Len(t, c.All(), len(DefaultPrizes()), "other prizes untouched")

	_, err = c.Update(ctx, "missing", PrizePatch{Stock: &stock})
	assert.ErrorIs(t, err, errs.ErrPrizeNotFound)

	negative := -1
	_, err = c.Update(ctx, "3", PrizePatch{Stock: &negative})
	assert.ErrorIs(t, err, errs.ErrValidation)
	p, err = c.Get("3")
	require.NoError(t, err)
	assert.Equal(t, 40, *p.Stock, "rejected patch leaves the prize as it was")

	store.saveErr = assert.AnError
	name := "Renamed"
	_, err = c.Update(ctx, "3", PrizePatch{Name: &name})
	require.ErrorIs(t, err, assert.AnError)
	p, err = c.Get("3")
	require.NoError(t, err)
	assert.NotEqual(t, "Renamed", p.Name)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store, DefaultPrizes())
	require.NoError(t, err)

	err = c.Replace(ctx, []Prize{{ID: "x", Value: decimal.NewFromInt(-5), Weight: 1, Stock: Stock(1)}})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Len(t, c.All(), len(DefaultPrizes()))

	require.NoError(t, c.Replace(ctx, []Prize{{ID: "x", Value: decimal.NewFromInt(5), Weight: 1, Stock: Stock(1)}}))
	loaded, err := store.LoadPrizes(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "x", loaded[0].ID)
}

func TestNew_AcceptsCents(t *testing.T) {
	c, err := New([]Prize{{ID: "a", Value: decimal.RequireFromString("100.50"), Weight: 1, Stock: Stock(1)}})
	require.NoError(t, err)
	p, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "100.5", p.Value.String())
}

func TestDefaultPrizes_Valid(t *testing.T) {
	c, err := New(DefaultPrizes())
	require.NoError(t, err)
	assert.Len(t, c.EligiblePrizes(), 8)
}
