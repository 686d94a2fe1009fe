package pgstore

import (
	"context"
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS prizes (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	value       NUMERIC(18, 2) NOT NULL,
	weight      DOUBLE PRECISION NOT NULL,
	stock       INTEGER
);

CREATE TABLE IF NOT EXISTS participants (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS spins (
	id             TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	prize_id       TEXT NOT NULL,
	prize_name     TEXT NOT NULL,
	prize_value    NUMERIC(18, 2) NOT NULL,
	win_id         TEXT,
	spun_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS spins_participant_idx ON spins (participant_id, spun_at DESC);

CREATE TABLE IF NOT EXISTS wins (
	id                    TEXT PRIMARY KEY,
	participant_id        TEXT NOT NULL,
	spin_id               TEXT NOT NULL REFERENCES spins (id),
	prize_id              TEXT NOT NULL,
	prize_name            TEXT NOT NULL,
	prize_value           NUMERIC(18, 2) NOT NULL,
	claim_code            TEXT NOT NULL UNIQUE,
	status                TEXT NOT NULL,
	requires_verification BOOLEAN NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL,
	claimed_at            TIMESTAMPTZ,
	shipped_at            TIMESTAMPTZ,
	delivered_at          TIMESTAMPTZ,
	tracking_number       TEXT NOT NULL DEFAULT '',
	claim                 JSONB
);
CREATE INDEX IF NOT EXISTS wins_participant_idx ON wins (participant_id);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
