package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

// APIError is the standard error response for TrustCade APIs.
type APIError struct {
	Error          string     `json:"error"`
	Code           string     `json:"code,omitempty"`
	Message        string     `json:"message,omitempty"`
	NextEligibleAt *time.Time `json:"nextEligibleAt,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	writeJSON(w, code, APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

var kindStatus = map[errs.Kind]int{
	errs.KindValidation:     http.StatusBadRequest,
	errs.KindForbidden:      http.StatusForbidden,
	errs.KindNotFound:       http.StatusNotFound,
	errs.KindPrizeNotFound:  http.StatusNotFound,
	errs.KindInvalidState:   http.StatusConflict,
	errs.KindOutOfStock:     http.StatusConflict,
	errs.KindCooldownActive: http.StatusTooManyRequests,
	errs.KindEmptyCatalog:   http.StatusServiceUnavailable,
	errs.KindContended:      http.StatusServiceUnavailable,
}

// writeDomainError renders err by kind. It reports false for errors that are
// not part of the taxonomy so the caller can log and answer 500.
func writeDomainError(w http.ResponseWriter, err error, now time.Time) bool {
	var e *errs.Error
	if !errors.As(err, &e) {
		return false
	}
	status, ok := kindStatus[e.Kind]
	if !ok {
		return false
	}
	body := APIError{
		Error:   string(e.Kind),
		Code:    strings.ToUpper(string(e.Kind)),
		Message: message(e),
	}
	switch e.Kind {
	case errs.KindCooldownActive:
		at := e.RetryAt
		body.NextEligibleAt = &at
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter(at.Sub(now))))
	case errs.KindContended:
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, body)
	return true
}

func retryAfter(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func message(e *errs.Error) string {
	switch e.Kind {
	case errs.KindCooldownActive:
		return "next spin available at " + e.RetryAt.UTC().Format(time.RFC3339)
	case errs.KindEmptyCatalog:
		return "no prizes available right now"
	case errs.KindContended:
		return "busy, try again"
	case errs.KindForbidden:
		return "win belongs to another participant"
	case errs.KindNotFound:
		return "not found"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return strings.ReplaceAll(string(e.Kind), "_", " ")
}
