package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed hands out exclusive locks by name with a bounded wait.
// Idle keys are dropped so the map does not grow with every participant.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

// NewKeyed returns a locker whose Acquire gives up after timeout.
func NewKeyed(timeout time.Duration) *Keyed {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Keyed{entries: make(map[string]*entry), timeout: timeout}
}

func (k *Keyed) ref(key string) *semaphore.Weighted {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}
	e.refs++
	return e.sem
}

func (k *Keyed) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Acquire locks every key, in sorted order so overlapping callers cannot deadlock.
// On timeout it releases what it holds and returns a contended error. The returned
// func releases all keys; extra calls are no-ops.
func (k *Keyed) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = dedupe(keys)
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	type heldKey struct {
		key string
		sem *semaphore.Weighted
	}
	held := make([]heldKey, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
			k.unref(held[i].key)
		}
	}
	for _, key := range keys {
		sem := k.ref(key)
		if err := sem.Acquire(ctx, 1); err != nil {
			k.unref(key)
			release()
			return nil, &errs.Error{Kind: errs.KindContended, Op: "lock.Acquire", Msg: "timed out waiting for " + key, Err: err}
		}
		held = append(held, heldKey{key: key, sem: sem})
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

func dedupe(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, key := range out {
		if i > 0 && key == out[i-1] {
			continue
		}
		out[n] = key
		n++
	}
	return out[:n]
}
