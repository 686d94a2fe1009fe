package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

// Prize is one wheel segment. Value zero means "try again".
type Prize struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Value    decimal.Decimal `json:"value"`
	// Weight is the relative selection weight. Probability (a percentage) is
	// accepted as input and folded into Weight when Weight is unset.
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability,omitempty"`
	// Stock is the remaining count; nil is unbounded (zero-value prizes only).
	Stock *int `json:"stock"`
}

// Eligible reports whether the prize can still be awarded.
func (p Prize) Eligible() bool {
	return p.Stock == nil || *p.Stock > 0
}

// IsWin reports whether awarding p creates a win record.
func (p Prize) IsWin() bool {
	return p.Value.IsPositive()
}

func (p Prize) clone() Prize {
	if p.Stock != nil {
		s := *p.Stock
		p.Stock = &s
	}
	return p
}

// Stock returns a pointer to n, for building prize literals.
func Stock(n int) *int {
	return &n
}

// Catalog holds the authoritative prize list in insertion order.
type Catalog struct {
	mu     sync.RWMutex
	prizes []Prize
	index  map[string]int
	store  Store
}

// New validates and normalizes prizes into an in-memory catalog.
func New(prizes []Prize) (*Catalog, error) {
	c := &Catalog{}
	if err := c.set(prizes); err != nil {
		return nil, err
	}
	return c, nil
}

// Open loads the catalog from store, seeding it with seed when the store is empty.
func Open(ctx context.Context, store Store, seed []Prize) (*Catalog, error) {
	prizes, err := store.LoadPrizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prizes: %w", err)
	}
	c := &Catalog{store: store}
	if len(prizes) == 0 {
		if err := c.set(seed); err != nil {
			return nil, err
		}
		if err := store.SavePrizes(ctx, c.prizes); err != nil {
			return nil, fmt.Errorf("seed prizes: %w", err)
		}
		return c, nil
	}
	if err := c.set(prizes); err != nil {
		return nil, err
	}
	return c, nil
}

func normalize(prizes []Prize) ([]Prize, map[string]int, error) {
	out := make([]Prize, 0, len(prizes))
	index := make(map[string]int, len(prizes))
	for _, p := range prizes {
		p = p.clone()
		p.ID = strings.TrimSpace(p.ID)
		fail := func(msg string) error {
			return &errs.Error{Kind: errs.KindValidation, Op: "catalog", PrizeID: p.ID, Msg: msg}
		}
		if p.ID == "" {
			return nil, nil, fail("prize id is required")
		}
		if _, dup := index[p.ID]; dup {
			return nil, nil, fail("duplicate prize id")
		}
		if p.Value.IsNegative() {
			return nil, nil, fail("value must not be negative")
		}
		if !p.Value.Equal(p.Value.Round(2)) {
			return nil, nil, fail("value has more than two decimal places")
		}
		if p.Weight <= 0 && p.Probability > 0 {
			p.Weight = p.Probability
		}
		if p.Weight <= 0 || math.IsInf(p.Weight, 0) || math.IsNaN(p.Weight) {
			return nil, nil, fail("weight or probability must be positive")
		}
		if p.Stock == nil && p.IsWin() {
			return nil, nil, fail("winning prizes need a bounded stock")
		}
		if p.Stock != nil && *p.Stock < 0 {
			return nil, nil, fail("stock must not be negative")
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out, index, nil
}

func (c *Catalog) set(prizes []Prize) error {
	out, index, err := normalize(prizes)
	if err != nil {
		return err
	}
	c.prizes = out
	c.index = index
	return nil
}

// Replace swaps the whole prize list, persisting it first.
func (c *Catalog) Replace(ctx context.Context, prizes []Prize) error {
	out, index, err := normalize(prizes)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		if err := c.store.SavePrizes(ctx, out); err != nil {
			return fmt.Errorf("save prizes: %w", err)
		}
	}
	c.prizes = out
	c.index = index
	return nil
}

// All returns every prize, exhausted ones included.
func (c *Catalog) All() []Prize {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Prize, len(c.prizes))
	for i, p := range c.prizes {
		out[i] = p.clone()
	}
	return out
}

// EligiblePrizes returns the prizes with stock != 0, in insertion order.
func (c *Catalog) EligiblePrizes() []Prize {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eligibleLocked()
}

func (c *Catalog) eligibleLocked() []Prize {
	out := make([]Prize, 0, len(c.prizes))
	for _, p := range c.prizes {
		if p.Eligible() {
			out = append(out, p.clone())
		}
	}
	return out
}

// Get returns the prize with the given id.
func (c *Catalog) Get(prizeID string) (Prize, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[prizeID]
	if !ok {
		return Prize{}, &errs.Error{Kind: errs.KindPrizeNotFound, Op: "catalog.Get", PrizeID: prizeID}
	}
	return c.prizes[i].clone(), nil
}

// DecrementStock takes one unit of the prize. Unbounded prizes are left as is.
// The store is written before memory, so a failed write leaves the catalog untouched.
func (c *Catalog) DecrementStock(ctx context.Context, prizeID string) (Prize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[prizeID]
	if !ok {
		return Prize{}, &errs.Error{Kind: errs.KindPrizeNotFound, Op: "catalog.DecrementStock", PrizeID: prizeID}
	}
	p := &c.prizes[i]
	if p.Stock == nil {
		return p.clone(), nil
	}
	if *p.Stock <= 0 {
		return Prize{}, &errs.Error{Kind: errs.KindOutOfStock, Op: "catalog.DecrementStock", PrizeID: prizeID}
	}
	if err := c.setStockLocked(ctx, p, *p.Stock-1); err != nil {
		return Prize{}, err
	}
	return p.clone(), nil
}

// Reserve takes one unit of the prize in memory only. The caller persists the
// new level together with the spin that awarded it, and calls Release if that
// commit fails.
func (c *Catalog) Reserve(prizeID string) (Prize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[prizeID]
	if !ok {
		return Prize{}, &errs.Error{Kind: errs.KindPrizeNotFound, Op: "catalog.Reserve", PrizeID: prizeID}
	}
	p := &c.prizes[i]
	if p.Stock == nil {
		return p.clone(), nil
	}
	if *p.Stock <= 0 {
		return Prize{}, &errs.Error{Kind: errs.KindOutOfStock, Op: "catalog.Reserve", PrizeID: prizeID}
	}
	*p.Stock--
	return p.clone(), nil
}

// Release returns a unit taken by Reserve.
func (c *Catalog) Release(prizeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[prizeID]; ok && c.prizes[i].Stock != nil {
		*c.prizes[i].Stock++
	}
}

// PrizePatch lists the fields Update may change. Nil fields are left alone.
type PrizePatch struct {
	Name     *string          `json:"name,omitempty"`
	Category *string          `json:"category,omitempty"`
	Value    *decimal.Decimal `json:"value,omitempty"`
	Weight   *float64         `json:"weight,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
}

// Update edits one prize in place. The whole list is re-validated and
// persisted before memory changes.
func (c *Catalog) Update(ctx context.Context, prizeID string, patch PrizePatch) (Prize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[prizeID]
	if !ok {
		return Prize{}, &errs.Error{Kind: errs.KindPrizeNotFound, Op: "catalog.Update", PrizeID: prizeID}
	}
	list := make([]Prize, len(c.prizes))
	for j, p := range c.prizes {
		list[j] = p.clone()
	}
	p := &list[i]
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Value != nil {
		p.Value = *patch.Value
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
		p.Probability = 0
	}
	if patch.Stock != nil {
		p.Stock = Stock(*patch.Stock)
	}
	out, index, err := normalize(list)
	if err != nil {
		return Prize{}, err
	}
	if c.store != nil {
		if err := c.store.SavePrizes(ctx, out); err != nil {
			return Prize{}, fmt.Errorf("save prizes: %w", err)
		}
	}
	c.prizes = out
	c.index = index
	return out[i].clone(), nil
}

func (c *Catalog) setStockLocked(ctx context.Context, p *Prize, stock int) error {
	if c.store != nil {
		if err := c.store.SetStock(ctx, p.ID, stock); err != nil {
			return fmt.Errorf("persist stock for %s: %w", p.ID, err)
		}
	}
	*p.Stock = stock
	return nil
}
