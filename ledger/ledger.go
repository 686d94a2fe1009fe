package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
)

// Options configures a Ledger. Start from DefaultOptions.
type Options struct {
	Cooldown time.Duration
	// Wins worth more than this need verification before fulfillment.
	VerificationThreshold decimal.Decimal
	ClaimCodePrefix       string
	// NewID returns record ids. Ids must sort in creation order for stable feeds.
	NewID func() string
	// NewCodeSuffix returns the random part of a claim code.
	NewCodeSuffix func() string
	// ValidateClaim checks a claim form; defaults to ValidateClaimDetails.
	ValidateClaim func(ClaimDetails) error
}

func DefaultOptions() Options {
	return Options{
		Cooldown:              24 * time.Hour,
		VerificationThreshold: decimal.NewFromInt(100),
		ClaimCodePrefix:       defaultCodeStart,
		NewID:                 newTimeOrderedID,
		NewCodeSuffix:         RandomSuffix,
		ValidateClaim:         ValidateClaimDetails,
	}
}

func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Eligibility answers "may this participant spin now?".
type Eligibility struct {
	Allowed        bool      `json:"allowed"`
	NextEligibleAt time.Time `json:"nextEligibleAt"`
}

// Standing is one leaderboard row.
type Standing struct {
	ParticipantID string          `json:"participantId"`
	TotalWins     int             `json:"totalWins"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	LastWinAt     time.Time       `json:"lastWinAt"`
}

// Ledger is the append-only record of spins and wins. It owns win records
// exclusively; nothing outside this package mutates them.
type Ledger struct {
	mu    sync.Mutex
	opts  Options
	store Store

	spins    []SpinRecord
	wins     []*WinRecord
	winByID  map[string]*WinRecord
	codes    map[string]string // claim code -> win id
	lastSpin map[string]time.Time
	bySpin   map[string][]int    // participant -> indexes into spins
	byWin    map[string][]string // participant -> win ids
}

// New returns an in-memory ledger with no durable store.
func New(opts Options) *Ledger {
	l, _ := Open(context.Background(), nil, opts)
	return l
}

// Open loads previously recorded spins and wins from store. A nil store keeps
// everything in memory.
func Open(ctx context.Context, store Store, opts Options) (*Ledger, error) {
	def := DefaultOptions()
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	if opts.ClaimCodePrefix == "" {
		opts.ClaimCodePrefix = def.ClaimCodePrefix
	}
	if opts.NewID == nil {
		opts.NewID = def.NewID
	}
	if opts.NewCodeSuffix == nil {
		opts.NewCodeSuffix = def.NewCodeSuffix
	}
	if opts.ValidateClaim == nil {
		opts.ValidateClaim = def.ValidateClaim
	}
	l := &Ledger{
		opts:     opts,
		store:    store,
		winByID:  make(map[string]*WinRecord),
		codes:    make(map[string]string),
		lastSpin: make(map[string]time.Time),
		bySpin:   make(map[string][]int),
		byWin:    make(map[string][]string),
	}
	if store == nil {
		return l, nil
	}
	spins, wins, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for _, s := range spins {
		l.addSpinLocked(s)
	}
	for i := range wins {
		l.addWinLocked(wins[i])
	}
	return l, nil
}

func (l *Ledger) addSpinLocked(s SpinRecord) {
	l.bySpin[s.ParticipantID] = append(l.bySpin[s.ParticipantID], len(l.spins))
	l.spins = append(l.spins, s)
	if last, ok := l.lastSpin[s.ParticipantID]; !ok || s.Timestamp.After(last) {
		l.lastSpin[s.ParticipantID] = s.Timestamp
	}
}

func (l *Ledger) addWinLocked(w WinRecord) {
	rec := w.clone()
	l.wins = append(l.wins, &rec)
	l.winByID[rec.ID] = &rec
	l.codes[rec.ClaimCode] = rec.ID
	l.byWin[rec.ParticipantID] = append(l.byWin[rec.ParticipantID], rec.ID)
}

// Cooldown returns the configured wait between spins.
func (l *Ledger) Cooldown() time.Duration {
	return l.opts.Cooldown
}

// CanSpin reports whether participantID may spin at now. With no prior spin the
// participant is eligible immediately and NextEligibleAt is now.
func (l *Ledger) CanSpin(participantID string, now time.Time) Eligibility {
	participantID = strings.TrimSpace(participantID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canSpinLocked(participantID, now)
}

func (l *Ledger) canSpinLocked(participantID string, now time.Time) Eligibility {
	last, ok := l.lastSpin[participantID]
	if !ok {
		return Eligibility{Allowed: true, NextEligibleAt: now}
	}
	next := last.Add(l.opts.Cooldown)
	return Eligibility{Allowed: !now.Before(next), NextEligibleAt: next}
}

// RecordSpin appends a spin for participantID and, when prize has value, a win with
// a fresh claim code. The cooldown is re-checked under the ledger lock, and nothing
// is kept in memory unless the store accepted both records.
func (l *Ledger) RecordSpin(ctx context.Context, participantID string, prize catalog.Prize, now time.Time) (SpinRecord, *WinRecord, error) {
	return l.CommitSpin(ctx, participantID, prize, now, nil)
}

// CommitSpin is RecordSpin that also hands stock to the store, so the stock
// level and the records it pays for are persisted in one write.
func (l *Ledger) CommitSpin(ctx context.Context, participantID string, prize catalog.Prize, now time.Time, stock *StockChange) (SpinRecord, *WinRecord, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return SpinRecord{}, nil, &errs.Error{Kind: errs.KindValidation, Op: "ledger.RecordSpin", Msg: "participant id is required"}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if e := l.canSpinLocked(participantID, now); !e.Allowed {
		return SpinRecord{}, nil, &errs.Error{
			Kind:          errs.KindCooldownActive,
			Op:            "ledger.RecordSpin",
			ParticipantID: participantID,
			RetryAt:       e.NextEligibleAt,
		}
	}

	spin := SpinRecord{
		ID:            l.opts.NewID(),
		ParticipantID: participantID,
		PrizeID:       prize.ID,
		PrizeName:     prize.Name,
		PrizeValue:    prize.Value,
		Timestamp:     now,
	}
	var win *WinRecord
	if prize.IsWin() {
		code, err := l.newClaimCodeLocked()
		if err != nil {
			return SpinRecord{}, nil, err
		}
		win = &WinRecord{
			ID:                   l.opts.NewID(),
			ParticipantID:        participantID,
			SpinID:               spin.ID,
			PrizeID:              prize.ID,
			PrizeName:            prize.Name,
			PrizeValue:           prize.Value,
			ClaimCode:            code,
			Status:               StatusPending,
			RequiresVerification: prize.Value.GreaterThan(l.opts.VerificationThreshold),
			CreatedAt:            now,
		}
		spin.WinID = win.ID
	}

	if l.store != nil {
		if err := l.store.AppendSpin(ctx, spin, win, stock); err != nil {
			return SpinRecord{}, nil, fmt.Errorf("append spin: %w", err)
		}
	}
	l.addSpinLocked(spin)
	if win == nil {
		return spin, nil, nil
	}
	l.addWinLocked(*win)
	out := win.clone()
	return spin, &out, nil
}

func (l *Ledger) newClaimCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := l.opts.ClaimCodePrefix + l.opts.NewCodeSuffix()
		if _, taken := l.codes[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("ledger: no unique claim code after %d attempts", maxCodeAttempts)
}

func (l *Ledger) lookupLocked(op, winID string) (*WinRecord, error) {
	w, ok := l.winByID[winID]
	if !ok {
		return nil, &errs.Error{Kind: errs.KindNotFound, Op: op, WinID: winID}
	}
	return w, nil
}

// commitLocked persists the updated copy and then swaps it into memory.
func (l *Ledger) commitLocked(ctx context.Context, cur *WinRecord, updated WinRecord) (WinRecord, error) {
	if l.store != nil {
		if err := l.store.SaveWin(ctx, updated); err != nil {
			return WinRecord{}, fmt.Errorf("save win %s: %w", updated.ID, err)
		}
	}
	*cur = updated.clone()
	return updated, nil
}

// SubmitClaim moves a pending win owned by participantID to verified and stores
// the claim form.
func (l *Ledger) SubmitClaim(ctx context.Context, winID, participantID string, details ClaimDetails, now time.Time) (WinRecord, error) {
	const op = "ledger.SubmitClaim"
	participantID = strings.TrimSpace(participantID)
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.lookupLocked(op, winID)
	if err != nil {
		return WinRecord{}, err
	}
	if w.ParticipantID != participantID {
		return WinRecord{}, &errs.Error{Kind: errs.KindForbidden, Op: op, WinID: winID, ParticipantID: participantID}
	}
	if w.Status != StatusPending {
		return WinRecord{}, &errs.Error{Kind: errs.KindInvalidState, Op: op, WinID: winID, Msg: "win is " + string(w.Status)}
	}
	details = details.trimmed()
	if err := l.opts.ValidateClaim(details); err != nil {
		if errs.KindOf(err) == "" {
			err = &errs.Error{Kind: errs.KindValidation, Op: op, WinID: winID, Err: err}
		}
		return WinRecord{}, err
	}

	updated := w.clone()
	updated.Status = StatusVerified
	updated.Claim = &details
	claimedAt := now
	updated.ClaimedAt = &claimedAt
	return l.commitLocked(ctx, w, updated)
}

// Ship moves a verified win to shipped.
func (l *Ledger) Ship(ctx context.Context, winID, trackingNumber string, now time.Time) (WinRecord, error) {
	return l.advance(ctx, "ledger.Ship", winID, StatusVerified, func(w *WinRecord) {
		w.TrackingNumber = strings.TrimSpace(trackingNumber)
		at := now
		w.ShippedAt = &at
	})
}

// Deliver moves a shipped win to delivered.
func (l *Ledger) Deliver(ctx context.Context, winID string, now time.Time) (WinRecord, error) {
	return l.advance(ctx, "ledger.Deliver", winID, StatusShipped, func(w *WinRecord) {
		at := now
		w.DeliveredAt = &at
	})
}

func (l *Ledger) advance(ctx context.Context, op, winID string, from Status, apply func(*WinRecord)) (WinRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, err := l.lookupLocked(op, winID)
	if err != nil {
		return WinRecord{}, err
	}
	if w.Status != from {
		return WinRecord{}, &errs.Error{Kind: errs.KindInvalidState, Op: op, WinID: winID, Msg: "win is " + string(w.Status)}
	}
	to, _ := from.next()
	updated := w.clone()
	updated.Status = to
	apply(&updated)
	return l.commitLocked(ctx, w, updated)
}

// Win returns a single win record.
func (l *Ledger) Win(winID string) (WinRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, err := l.lookupLocked("ledger.Win", winID)
	if err != nil {
		return WinRecord{}, err
	}
	return w.clone(), nil
}

// WinByClaimCode looks a win up by its claim code.
func (l *Ledger) WinByClaimCode(code string) (WinRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.codes[code]; ok {
		return l.winByID[id].clone(), nil
	}
	return WinRecord{}, &errs.Error{Kind: errs.KindNotFound, Op: "ledger.WinByClaimCode", Msg: "no win with that claim code"}
}

// ParticipantWins returns participantID's wins, oldest first.
func (l *Ledger) ParticipantWins(participantID string) []WinRecord {
	participantID = strings.TrimSpace(participantID)
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.byWin[participantID]
	out := make([]WinRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.winByID[id].clone())
	}
	return out
}

// ParticipantSpins returns participantID's spins, newest first.
func (l *Ledger) ParticipantSpins(participantID string) []SpinRecord {
	participantID = strings.TrimSpace(participantID)
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.bySpin[participantID]
	out := make([]SpinRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.spins[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RecentWins returns wins newest first, ties broken by id ascending.
// A non-positive limit returns every win.
func (l *Ledger) RecentWins(limit int) []WinRecord {
	l.mu.Lock()
	out := make([]WinRecord, 0, len(l.wins))
	for _, w := range l.wins {
		out = append(out, w.clone())
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Leaderboard aggregates wins per participant, ordered by total value desc,
// then win count desc, then participant id asc. A non-positive limit returns all rows.
func (l *Ledger) Leaderboard(limit int) []Standing {
	l.mu.Lock()
	byID := make(map[string]*Standing)
	for _, w := range l.wins {
		s, ok := byID[w.ParticipantID]
		if !ok {
			s = &Standing{ParticipantID: w.ParticipantID, TotalValue: decimal.Zero}
			byID[w.ParticipantID] = s
		}
		s.TotalWins++
		s.TotalValue = s.TotalValue.Add(w.PrizeValue)
		if w.CreatedAt.After(s.LastWinAt) {
			s.LastWinAt = w.CreatedAt
		}
	}
	l.mu.Unlock()

	out := make([]Standing, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalValue.Cmp(out[j].TotalValue); c != 0 {
			return c > 0
		}
		if out[i].TotalWins != out[j].TotalWins {
			return out[i].TotalWins > out[j].TotalWins
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Totals summarizes the ledger for the admin dashboard.
type Totals struct {
	Spins        int             `json:"totalSpins"`
	Wins         int             `json:"totalWins"`
	Participants int             `json:"participants"`
	Winners      int             `json:"winners"`
	ValueAwarded decimal.Decimal `json:"valueAwarded"`
	ByStatus     map[Status]int  `json:"winsByStatus"`
}

// Totals counts spins, wins, distinct participants and winners, and the value awarded.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Totals{
		Spins:        len(l.spins),
		Wins:         len(l.wins),
		Participants: len(l.lastSpin),
		Winners:      len(l.byWin),
		ValueAwarded: decimal.Zero,
		ByStatus: map[Status]int{
			StatusPending:   0,
			StatusVerified:  0,
			StatusShipped:   0,
			StatusDelivered: 0,
		},
	}
	for _, w := range l.wins {
		t.ValueAwarded = t.ValueAwarded.Add(w.PrizeValue)
		t.ByStatus[w.Status]++
	}
	return t
}
