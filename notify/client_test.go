package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_SignedForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s3cret")
	err := c.Notify(context.Background(), Event{
		Action:        ActionWinAwarded,
		WinID:         "w1",
		ParticipantID: "p1",
		PrizeValue:    "500",
		ClaimCode:     "TC-ABCDEFGH",
		At:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, ActionWinAwarded, got.Get("action"))
	assert.Equal(t, "TC-ABCDEFGH", got.Get("claim_code"))
	assert.Equal(t, "2026-01-01T00:00:00Z", got.Get("at"))
	assert.NotContains(t, got, "status", "empty fields are omitted")
	assert.True(t, Verify("s3cret", got))
	assert.False(t, Verify("other", got))

	got.Set("prize_value", "5000")
	assert.False(t, Verify("s3cret", got), "tampered value")
}

func TestNotify_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Notify(context.Background(), Event{Action: ActionWinShipped})
	assert.Error(t, err)
}
