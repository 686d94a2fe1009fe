package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure so callers can render it without re-deriving state.
type Kind string

const (
	KindEmptyCatalog   Kind = "empty_catalog"
	KindPrizeNotFound  Kind = "prize_not_found"
	KindOutOfStock     Kind = "out_of_stock"
	KindCooldownActive Kind = "cooldown_active"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindInvalidState   Kind = "invalid_state"
	KindContended      Kind = "contended"
	KindValidation     Kind = "validation"
)

// Error is the single error type returned by the catalog, ledger and engine.
type Error struct {
	Kind          Kind
	Op            string
	ParticipantID string
	PrizeID       string
	WinID         string
	// RetryAt is set for cooldown failures.
	RetryAt time.Time
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.ParticipantID != "" {
		fmt.Fprintf(&b, " participant=%s", e.ParticipantID)
	}
	if e.PrizeID != "" {
		fmt.Fprintf(&b, " prize=%s", e.PrizeID)
	}
	if e.WinID != "" {
		fmt.Fprintf(&b, " win=%s", e.WinID)
	}
	if !e.RetryAt.IsZero() {
		fmt.Fprintf(&b, " retry_at=%s", e.RetryAt.UTC().Format(time.RFC3339))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrEmptyCatalog   = &Error{Kind: KindEmptyCatalog}
	ErrPrizeNotFound  = &Error{Kind: KindPrizeNotFound}
	ErrOutOfStock     = &Error{Kind: KindOutOfStock}
	ErrCooldownActive = &Error{Kind: KindCooldownActive}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrInvalidState   = &Error{Kind: KindInvalidState}
	ErrContended      = &Error{Kind: KindContended}
	ErrValidation     = &Error{Kind: KindValidation}
)

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may retry the operation with backoff.
// Only lock contention qualifies; business-rule failures cannot change on retry.
func Retryable(err error) bool {
	return KindOf(err) == KindContended
}
