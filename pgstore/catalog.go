package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ashenafi-pixel/trustcade-rewards/catalog"
)

// CatalogStore implements catalog.Store on the prizes table.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

var _ catalog.Store = (*CatalogStore)(nil)

func (s *CatalogStore) LoadPrizes(ctx context.Context) ([]catalog.Prize, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, value, weight, stock FROM prizes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Prize
	for rows.Next() {
		var p catalog.Prize
		var stock sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Value, &p.Weight, &stock); err != nil {
			return nil, err
		}
		if stock.Valid {
			p.Stock = catalog.Stock(int(stock.Int64))
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePrizes replaces the whole table in one transaction.
func (s *CatalogStore) SavePrizes(ctx context.Context, prizes []catalog.Prize) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM prizes`); err != nil {
		return err
	}
	for i, p := range prizes {
		var stock sql.NullInt64
		if p.Stock != nil {
			stock = sql.NullInt64{Int64: int64(*p.Stock), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO prizes (id, position, name, category, value, weight, stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, i, p.Name, p.Category, p.Value, p.Weight, stock)
		if err != nil {
			return fmt.Errorf("insert prize %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *CatalogStore) SetStock(ctx context.Context, prizeID string, stock int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE prizes SET stock = $1 WHERE id = $2`, stock, prizeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("prize %s not found", prizeID)
	}
	return nil
}
