package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ashenafi-pixel/trustcade-rewards/ledger"
)

// LedgerStore implements ledger.Store on the spins and wins tables.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

var _ ledger.Store = (*LedgerStore)(nil)

func (s *LedgerStore) Load(ctx context.Context) ([]ledger.SpinRecord, []ledger.WinRecord, error) {
	spins, err := s.loadSpins(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load spins: %w", err)
	}
	wins, err := s.loadWins(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load wins: %w", err)
	}
	return spins, wins, nil
}

func (s *LedgerStore) loadSpins(ctx context.Context) ([]ledger.SpinRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, prize_id, prize_name, prize_value, COALESCE(win_id, ''), spun_at
		FROM spins ORDER BY spun_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.SpinRecord
	for rows.Next() {
		var r ledger.SpinRecord
		if err := rows.Scan(&r.ID, &r.ParticipantID, &r.PrizeID, &r.PrizeName, &r.PrizeValue, &r.WinID, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *LedgerStore) loadWins(ctx context.Context) ([]ledger.WinRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, spin_id, prize_id, prize_name, prize_value, claim_code, status,
		       requires_verification, created_at, claimed_at, shipped_at, delivered_at, tracking_number, claim
		FROM wins ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.WinRecord
	for rows.Next() {
		var w ledger.WinRecord
		var status string
		var claimedAt, shippedAt, deliveredAt sql.NullTime
		var claim []byte
		err := rows.Scan(&w.ID, &w.ParticipantID, &w.SpinID, &w.PrizeID, &w.PrizeName, &w.PrizeValue,
			&w.ClaimCode, &status, &w.RequiresVerification, &w.CreatedAt,
			&claimedAt, &shippedAt, &deliveredAt, &w.TrackingNumber, &claim)
		if err != nil {
			return nil, err
		}
		w.Status = ledger.Status(status)
		w.ClaimedAt = timePtr(claimedAt)
		w.ShippedAt = timePtr(shippedAt)
		w.DeliveredAt = timePtr(deliveredAt)
		if len(claim) > 0 {
			var d ledger.ClaimDetails
			if err := json.Unmarshal(claim, &d); err != nil {
				return nil, fmt.Errorf("win %s claim: %w", w.ID, err)
			}
			w.Claim = &d
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AppendSpin writes the stock change, the spin and its win in one transaction.
func (s *LedgerStore) AppendSpin(ctx context.Context, spin ledger.SpinRecord, win *ledger.WinRecord, stock *ledger.StockChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if stock != nil {
		res, err := tx.ExecContext(ctx, `UPDATE prizes SET stock = $1 WHERE id = $2`, stock.Remaining, stock.PrizeID)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("prize %s not found", stock.PrizeID)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO spins (id, participant_id, prize_id, prize_name, prize_value, win_id, spun_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		spin.ID, spin.ParticipantID, spin.PrizeID, spin.PrizeName, spin.PrizeValue, nullString(spin.WinID), spin.Timestamp)
	if err != nil {
		return fmt.Errorf("insert spin: %w", err)
	}
	if win != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wins (id, participant_id, spin_id, prize_id, prize_name, prize_value, claim_code,
			                  status, requires_verification, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			win.ID, win.ParticipantID, win.SpinID, win.PrizeID, win.PrizeName, win.PrizeValue, win.ClaimCode,
			string(win.Status), win.RequiresVerification, win.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert win: %w", err)
		}
	}
	return tx.Commit()
}

// SaveWin updates the mutable fulfillment columns of an existing win.
func (s *LedgerStore) SaveWin(ctx context.Context, win ledger.WinRecord) error {
	// JSONB goes over as text; a []byte would be sent as bytea.
	var claim sql.NullString
	if win.Claim != nil {
		b, err := json.Marshal(win.Claim)
		if err != nil {
			return err
		}
		claim = sql.NullString{String: string(b), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE wins SET status = $1, claimed_at = $2, shipped_at = $3, delivered_at = $4,
		                tracking_number = $5, claim = $6
		WHERE id = $7`,
		string(win.Status), nullTime(win.ClaimedAt), nullTime(win.ShippedAt), nullTime(win.DeliveredAt),
		win.TrackingNumber, claim, win.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("win %s not found", win.ID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
