// Package engine runs spins and claims against the catalog and ledger under
// the locks that keep cooldown and stock consistent.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
	"github.com/Ashenafi-pixel/trustcade-rewards/errs"
	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
	"github.com/Ashenafi-pixel/trustcade-rewards/lock"
	"github.com/Ashenafi-pixel/trustcade-rewards/logger"
	"github.com/Ashenafi-pixel/trustcade-rewards/metrics"
	"github.com/Ashenafi-pixel/trustcade-rewards/notify"
	"github.com/Ashenafi-pixel/trustcade-rewards/participant"
)

const catalogKey = "catalog"

func participantKey(id string) string { return "participant:" + id }

// Notifier receives committed events. *notify.Client implements it.
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) error
}

// Options wires optional collaborators. Zero values get in-memory defaults.
type Options struct {
	Random       catalog.RandomSource
	LockTimeout  time.Duration
	Participants *participant.Registry
	Notifier     Notifier
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

type Engine struct {
	catalog      *catalog.Catalog
	ledger       *ledger.Ledger
	locks        *lock.Keyed
	rnd          catalog.RandomSource
	participants *participant.Registry
	notifier     Notifier
	metrics      *metrics.Metrics
	log          *logger.Logger
	audit        *auditLog

	pending sync.WaitGroup
}

func New(cat *catalog.Catalog, led *ledger.Ledger, opts Options) *Engine {
	e := &Engine{
		catalog:      cat,
		ledger:       led,
		locks:        lock.NewKeyed(opts.LockTimeout),
		rnd:          opts.Random,
		participants: opts.Participants,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		audit:        newAuditLog(auditCapacity),
	}
	if e.rnd == nil {
		e.rnd = catalog.SecureRandom
	}
	if e.participants == nil {
		e.participants, _ = participant.NewRegistry(context.Background(), nil)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	if e.log == nil {
		e.log = logger.Discard()
	}
	return e
}

// Close waits for in-flight notifications.
func (e *Engine) Close() {
	e.pending.Wait()
}

// SpinResult is what a participant sees after a successful spin.
type SpinResult struct {
	Prize          catalog.Prize     `json:"prize"`
	Spin           ledger.SpinRecord `json:"spin"`
	Win            *ledger.WinRecord `json:"win,omitempty"`
	NextEligibleAt time.Time         `json:"nextEligibleAt"`
}

// Spin checks the cooldown, draws a prize, takes its stock and records the
// spin as one unit. The new stock level is written with the spin, and a failed
// write puts the reserved unit back.
func (e *Engine) Spin(ctx context.Context, participantID string, now time.Time) (*SpinResult, error) {
	const op = "engine.Spin"
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		e.metrics.Spins.WithLabelValues("invalid").Inc()
		return nil, &errs.Error{Kind: errs.KindValidation, Op: op, Msg: "participant id is required"}
	}
	release, err := e.acquire(ctx, participantKey(participantID), catalogKey)
	if err != nil {
		e.metrics.Spins.WithLabelValues("contended").Inc()
		return nil, err
	}
	res, err := e.spinLocked(ctx, participantID, now)
	release()
	if err != nil {
		e.metrics.Spins.WithLabelValues(spinFailure(err)).Inc()
		return nil, err
	}

	entry := e.log.WithParticipant(participantID).WithFields(logrus.Fields{
		"prize_id": res.Prize.ID,
		"spin_id":  res.Spin.ID,
	})
	if res.Win == nil {
		e.metrics.Spins.WithLabelValues("no_win").Inc()
		entry.Info("spin recorded")
		return res, nil
	}
	e.metrics.Spins.WithLabelValues("win").Inc()
	e.metrics.Wins.WithLabelValues(res.Prize.ID).Inc()
	entry.WithFields(logrus.Fields{
		"win_id":     res.Win.ID,
		"claim_code": res.Win.ClaimCode,
		"value":      res.Win.PrizeValue.String(),
	}).Info("win awarded")
	e.announce(notify.ActionWinAwarded, *res.Win)
	return res, nil
}

func (e *Engine) spinLocked(ctx context.Context, participantID string, now time.Time) (*SpinResult, error) {
	const op = "engine.Spin"
	if el := e.ledger.CanSpin(participantID, now); !el.Allowed {
		return nil, &errs.Error{Kind: errs.KindCooldownActive, Op: op, ParticipantID: participantID, RetryAt: el.NextEligibleAt}
	}
	drawn, err := e.catalog.SelectOutcome(e.rnd)
	if err != nil {
		return nil, err
	}
	prize, err := e.catalog.Reserve(drawn.ID)
	if err != nil {
		return nil, err
	}
	var stock *ledger.StockChange
	if prize.Stock != nil {
		stock = &ledger.StockChange{PrizeID: prize.ID, Remaining: *prize.Stock}
	}
	spin, win, err := e.ledger.CommitSpin(ctx, participantID, prize, now, stock)
	if err != nil {
		e.catalog.Release(prize.ID)
		return nil, err
	}
	return &SpinResult{
		Prize:          prize,
		Spin:           spin,
		Win:            win,
		NextEligibleAt: now.Add(e.ledger.Cooldown()),
	}, nil
}

func spinFailure(err error) string {
	switch errs.KindOf(err) {
	case errs.KindCooldownActive:
		return "cooldown"
	case errs.KindEmptyCatalog:
		return "empty_catalog"
	case errs.KindContended:
		return "contended"
	}
	return "error"
}

func (e *Engine) acquire(ctx context.Context, keys ...string) (func(), error) {
	release, err := e.locks.Acquire(ctx, keys...)
	if err != nil {
		e.metrics.Contended.Inc()
		e.log.Entry().WithError(err).WithField("keys", keys).Warn("lock contended")
		return nil, err
	}
	return release, nil
}

// announce sends e to the notifier in the background. Failures are logged only;
// the ledger entry is already committed.
func (e *Engine) announce(action string, w ledger.WinRecord) {
	if e.notifier == nil {
		return
	}
	ev := notify.Event{
		Action:        action,
		WinID:         w.ID,
		ParticipantID: w.ParticipantID,
		PrizeID:       w.PrizeID,
		PrizeName:     w.PrizeName,
		PrizeValue:    w.PrizeValue.String(),
		ClaimCode:     w.ClaimCode,
		Status:        string(w.Status),
		At:            time.Now(),
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.notifier.Notify(ctx, ev); err != nil {
			e.log.WithParticipant(w.ParticipantID).WithError(err).
				WithFields(logrus.Fields{"win_id": w.ID, "action": action}).Warn("notify failed")
		}
	}()
}

// GetPrizes returns the prizes that can still be won, in catalog order.
func (e *Engine) GetPrizes() []catalog.Prize {
	return e.catalog.EligiblePrizes()
}

// Catalog returns every prize, exhausted ones included.
func (e *Engine) Catalog() []catalog.Prize {
	return e.catalog.All()
}

// ReplaceCatalog swaps the prize list. It waits for in-flight spins.
func (e *Engine) ReplaceCatalog(ctx context.Context, prizes []catalog.Prize) error {
	release, err := e.acquire(ctx, catalogKey)
	if err != nil {
		return err
	}
	defer release()
	if err := e.catalog.Replace(ctx, prizes); err != nil {
		return err
	}
	e.log.Entry().WithField("prizes", len(prizes)).Info("catalog replaced")
	e.audit.add(AuditEntry{At: time.Now().UTC(), Action: AuditCatalogReplaced, Target: catalogKey,
		Detail: fmt.Sprintf("%d prizes", len(prizes))})
	return nil
}

// UpdatePrize edits one prize. It waits for in-flight spins.
func (e *Engine) UpdatePrize(ctx context.Context, prizeID string, patch catalog.PrizePatch) (catalog.Prize, error) {
	release, err := e.acquire(ctx, catalogKey)
	if err != nil {
		return catalog.Prize{}, err
	}
	defer release()
	p, err := e.catalog.Update(ctx, prizeID, patch)
	if err != nil {
		return catalog.Prize{}, err
	}
	e.log.Entry().WithField("prize_id", p.ID).Info("prize updated")
	e.audit.add(AuditEntry{At: time.Now().UTC(), Action: AuditPrizeUpdated, Target: p.ID, Detail: p.Name})
	return p, nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	ledger.Totals
	Inventory []catalog.Prize `json:"inventory"`
}

// Stats reports ledger totals and the current stock of every prize.
func (e *Engine) Stats() Stats {
	return Stats{Totals: e.ledger.Totals(), Inventory: e.catalog.All()}
}

// AuditLog returns up to limit admin-visible events, newest first.
func (e *Engine) AuditLog(limit int) []AuditEntry {
	return e.audit.recent(limit)
}

// Eligibility reports whether participantID may spin at now.
func (e *Engine) Eligibility(participantID string, now time.Time) ledger.Eligibility {
	return e.ledger.CanSpin(participantID, now)
}

// Claim submits the shipping form for a pending win.
func (e *Engine) Claim(ctx context.Context, winID, participantID string, details ledger.ClaimDetails, now time.Time) (ledger.WinRecord, error) {
	w, err := e.ledger.SubmitClaim(ctx, winID, participantID, details, now)
	if err != nil {
		return ledger.WinRecord{}, err
	}
	e.transitioned(notify.ActionClaimSubmitted, w, now)
	return w, nil
}

// Ship marks a verified win as shipped.
func (e *Engine) Ship(ctx context.Context, winID, trackingNumber string, now time.Time) (ledger.WinRecord, error) {
	w, err := e.ledger.Ship(ctx, winID, trackingNumber, now)
	if err != nil {
		return ledger.WinRecord{}, err
	}
	e.transitioned(notify.ActionWinShipped, w, now)
	return w, nil
}

// Deliver marks a shipped win as delivered.
func (e *Engine) Deliver(ctx context.Context, winID string, now time.Time) (ledger.WinRecord, error) {
	w, err := e.ledger.Deliver(ctx, winID, now)
	if err != nil {
		return ledger.WinRecord{}, err
	}
	e.transitioned(notify.ActionWinDelivered, w, now)
	return w, nil
}

func (e *Engine) transitioned(action string, w ledger.WinRecord, now time.Time) {
	e.metrics.Claims.WithLabelValues(string(w.Status)).Inc()
	e.log.WithParticipant(w.ParticipantID).WithFields(logrus.Fields{
		"win_id":     w.ID,
		"claim_code": w.ClaimCode,
		"status":     w.Status,
	}).Info("win status changed")
	e.audit.add(AuditEntry{At: now, Action: action, Target: w.ID, Detail: w.ClaimCode})
	e.announce(action, w)
}

func (e *Engine) Win(winID string) (ledger.WinRecord, error) {
	return e.ledger.Win(winID)
}

func (e *Engine) ParticipantWins(participantID string) []ledger.WinRecord {
	return e.ledger.ParticipantWins(participantID)
}

func (e *Engine) ParticipantSpins(participantID string) []ledger.SpinRecord {
	return e.ledger.ParticipantSpins(participantID)
}

// RegisterParticipant sets the name shown in winner feeds.
func (e *Engine) RegisterParticipant(ctx context.Context, id, displayName string) (participant.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return participant.Profile{}, &errs.Error{Kind: errs.KindValidation, Op: "engine.RegisterParticipant", Msg: "participant id is required"}
	}
	return e.participants.Register(ctx, id, displayName)
}

// Winner is one row of the recent winners feed.
type Winner struct {
	WinID         string          `json:"winId"`
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName"`
	Initial       string          `json:"initial"`
	PrizeID       string          `json:"prizeId"`
	PrizeName     string          `json:"prizeName"`
	PrizeValue    decimal.Decimal `json:"prizeValue"`
	WonAt         time.Time       `json:"wonAt"`
}

// RecentWinners returns the newest wins with display names.
func (e *Engine) RecentWinners(limit int) []Winner {
	wins := e.ledger.RecentWins(limit)
	out := make([]Winner, 0, len(wins))
	for _, w := range wins {
		p := e.participants.Lookup(w.ParticipantID)
		out = append(out, Winner{
			WinID:         w.ID,
			ParticipantID: w.ParticipantID,
			DisplayName:   p.DisplayName,
			Initial:       p.Initial(),
			PrizeID:       w.PrizeID,
			PrizeName:     w.PrizeName,
			PrizeValue:    w.PrizeValue,
			WonAt:         w.CreatedAt,
		})
	}
	return out
}

// Ranking is one leaderboard row.
type Ranking struct {
	Rank          int             `json:"rank"`
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName"`
	TotalWins     int             `json:"totalWins"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	LastWinAt     time.Time       `json:"lastWinAt"`
}

// Leaderboard ranks participants by total value won, then by number of wins.
func (e *Engine) Leaderboard(limit int) []Ranking {
	rows := e.ledger.Leaderboard(limit)
	out := make([]Ranking, 0, len(rows))
	for i, s := range rows {
		out = append(out, Ranking{
			Rank:          i + 1,
			ParticipantID: s.ParticipantID,
			DisplayName:   e.participants.Lookup(s.ParticipantID).DisplayName,
			TotalWins:     s.TotalWins,
			TotalValue:    s.TotalValue,
			LastWinAt:     s.LastWinAt,
		})
	}
	return out
}
