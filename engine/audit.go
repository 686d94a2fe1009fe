package engine

import (
	"sync"
	"time"
)

const auditCapacity = 1000

// Audit actions besides the notify.Action* values used for win transitions.
const (
	AuditCatalogReplaced = "catalog_replaced"
	AuditPrizeUpdated    = "prize_updated"
)

// AuditEntry is one admin-visible change.
type AuditEntry struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Detail string    `json:"detail,omitempty"`
}

// auditLog keeps the most recent entries in a fixed ring.
type auditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	next    int
	full    bool
}

func newAuditLog(capacity int) *auditLog {
	return &auditLog{entries: make([]AuditEntry, capacity)}
}

func (a *auditLog) add(e AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[a.next] = e
	a.next = (a.next + 1) % len(a.entries)
	if a.next == 0 {
		a.full = true
	}
}

// recent returns up to limit entries, newest first. limit <= 0 means all.
func (a *auditLog) recent(limit int) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	if a.full {
		n = len(a.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, a.entries[(a.next-i+len(a.entries))%len(a.entries)])
	}
	return out
}
