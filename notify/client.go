package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Actions sent to the webhook.
const (
	ActionWinAwarded     = "win_awarded"
	ActionClaimSubmitted = "claim_submitted"
	ActionWinShipped     = "win_shipped"
	ActionWinDelivered   = "win_delivered"
)

// Event describes a committed ledger change.
type Event struct {
	Action        string
	WinID         string
	ParticipantID string
	PrizeID       string
	PrizeName     string
	PrizeValue    string
	ClaimCode     string
	Status        string
	At            time.Time
}

// Client posts signed form-encoded events to an operator endpoint.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
}

func NewClient(endpoint, secret string) *Client {
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) values(e Event) url.Values {
	params := map[string]string{
		"action":         e.Action,
		"win_id":         e.WinID,
		"participant_id": e.ParticipantID,
		"prize_id":       e.PrizeID,
		"prize_name":     e.PrizeName,
		"prize_value":    e.PrizeValue,
		"claim_code":     e.ClaimCode,
		"status":         e.Status,
	}
	if !e.At.IsZero() {
		params["at"] = e.At.UTC().Format(time.RFC3339)
	}
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if c.secret != "" {
		values.Set("signature", c.sign(values))
	}
	return values
}

// sign is HMAC-SHA256 over the values of all non-action keys in key order.
func (c *Client) sign(v url.Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		if k == "action" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := make([]byte, 0, 256)
	for _, k := range keys {
		buf = append(buf, v.Get(k)...)
	}
	m := hmac.New(sha256.New, []byte(c.secret))
	m.Write(buf)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify checks the signature on a received form, for operators and tests.
func Verify(secret string, v url.Values) bool {
	c := &Client{secret: secret}
	want := c.sign(v)
	return hmac.Equal([]byte(want), []byte(v.Get("signature")))
}

// Notify delivers e. Any non-2xx response is an error.
func (c *Client) Notify(ctx context.Context, e Event) error {
	body := c.values(e).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify %s: %s", e.Action, resp.Status)
	}
	return nil
}
