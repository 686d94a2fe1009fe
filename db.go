package trustcade

import (
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var (
	dbOnce sync.Once
	dbConn *sql.DB
	dbErr  error
)

// GetDB opens the Postgres pool named by DATABASE_URL once per process.
// It returns (nil, nil) when DATABASE_URL is unset; callers then fall back to
// the file stores under the data dir.
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return
		}
		dbConn, dbErr = Open(dsn)
	})
	if dbErr != nil {
		return nil, dbErr
	}
	return dbConn, nil
}

// Open connects to dsn with pool settings suited to PgBouncer-style poolers.
func Open(dsn string) (*sql.DB, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Simple protocol avoids "prepared statement already exists" behind transaction poolers.
	config.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	db := stdlib.OpenDB(*config)
	db.SetConnMaxIdleTime(4 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
