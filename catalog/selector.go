package catalog

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

// RandomSource returns a uniform float in [0, 1).
type RandomSource func() float64

var randReader io.Reader = rand.Reader

// SecureRandom draws from crypto/rand with 53 bits of precision. It panics if
// the system source fails.
func SecureRandom() float64 {
	var b [8]byte
	if _, err := io.ReadFull(randReader, b[:]); err != nil {
		panic(fmt.Sprintf("catalog: crypto/rand failed: %v", err))
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}

// Sequence returns a source that yields vals in order and then repeats the last one.
// Safe for concurrent use.
func Sequence(vals ...float64) RandomSource {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		if len(vals) == 0 {
			return 0
		}
		v := vals[i]
		if i < len(vals)-1 {
			i++
		}
		return v
	}
}

// SelectOutcome picks an eligible prize by weight. It walks the eligible prizes in
// insertion order, subtracting each weight from r = rnd()*total, and returns the
// first one that brings r to <= 0. Rounding that leaves r positive past the end
// resolves to the last eligible prize.
func (c *Catalog) SelectOutcome(rnd RandomSource) (Prize, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eligible := c.eligibleLocked()
	if len(eligible) == 0 {
		return Prize{}, &errs.Error{Kind: errs.KindEmptyCatalog, Op: "catalog.SelectOutcome", Msg: "no prize has stock left"}
	}
	var total float64
	for _, p := range eligible {
		total += p.Weight
	}
	if total <= 0 {
		return Prize{}, &errs.Error{Kind: errs.KindEmptyCatalog, Op: "catalog.SelectOutcome", Msg: "total weight is zero"}
	}
	if rnd == nil {
		rnd = SecureRandom
	}
	r := rnd() * total
	for _, p := range eligible {
		r -= p.Weight
		if r <= 0 {
			return p, nil
		}
	}
	return eligible[len(eligible)-1], nil
}
