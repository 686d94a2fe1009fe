package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with switchable failures.
type memStore struct {
	mu       sync.Mutex
	prizes   []Prize
	stockErr error
	saveErr  error
	saves    int
}

func (m *memStore) LoadPrizes(ctx context.Context) ([]Prize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prize, len(m.prizes))
	for i, p := range m.prizes {
		out[i] = p.clone()
	}
	return out, nil
}

func (m *memStore) SavePrizes(ctx context.Context, prizes []Prize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.prizes = make([]Prize, len(prizes))
	for i, p := range prizes {
		m.prizes[i] = p.clone()
	}
	return nil
}

func (m *memStore) SetStock(ctx context.Context, prizeID string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stockErr != nil {
		return m.stockErr
	}
	for i := range m.prizes {
		if m.prizes[i].ID == prizeID {
			m.prizes[i].Stock = Stock(stock)
			return nil
		}
	}
	return errors.New("unknown prize")
}

func TestOpen_SeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	c1, err := Open(ctx, store, DefaultPrizes())
	require.NoError(t, err)
	_, err = c1.DecrementStock(ctx, "8")
	require.NoError(t, err)

	c2, err := Open(ctx, store, nil)
	require.NoError(t, err)
	p, err := c2.Get("8")
	require.NoError(t, err)
	assert.Equal(t, 2, *p.Stock)
	assert.True(t, p.Value.Equal(decimal.NewFromInt(1299)))
	try, err := c2.Get("4")
	require.NoError(t, err)
	assert.Nil(t, try.Stock)
	assert.Equal(t, 1, store.saves, "a loaded catalog is not re-seeded")
}

func TestOpen_SeedFailure(t *testing.T) {
	_, err := Open(context.Background(), &memStore{saveErr: errors.New("read-only")}, DefaultPrizes())
	assert.Error(t, err)
}

func TestDecrementStock_StoreFailureLeavesMemory(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store, []Prize{{ID: "b", Value: decimal.NewFromInt(9), Weight: 1, Stock: Stock(1)}})
	require.NoError(t, err)

	store.stockErr = errors.New("write failed")
	_, err = c.DecrementStock(ctx, "b")
	require.Error(t, err)
	p, err := c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 1, *p.Stock)
}
