package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                  int
	DataDir               string
	DatabaseURL           string // optional; Postgres stores are used when set
	SpinCooldown          time.Duration
	VerificationThreshold decimal.Decimal
	ClaimCodePrefix       string
	LockTimeout           time.Duration
	CatalogFile           string // optional JSON prize list used to seed an empty store
	NotifyEndpoint        string
	NotifySecret          string
	AdminToken            string
	LogLevel              string
}

// Load reads the environment. Unset or malformed values fall back to defaults.
func Load() *Config {
	port := 8080
	// Prefer PORT (Render, Fly.io, Railway, etc.) then TRUSTCADE_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("TRUSTCADE_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	dataDir := os.Getenv("TRUSTCADE_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	threshold := decimal.NewFromInt(100)
	if v := os.Getenv("VERIFICATION_THRESHOLD"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			threshold = d
		}
	}
	prefix := os.Getenv("CLAIM_CODE_PREFIX")
	if prefix == "" {
		prefix = "TC-"
	}
	return &Config{
		Port:                  port,
		DataDir:               dataDir,
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SpinCooldown:          duration("SPIN_COOLDOWN", 24*time.Hour),
		VerificationThreshold: threshold,
		ClaimCodePrefix:       prefix,
		LockTimeout:           duration("LOCK_TIMEOUT", 2*time.Second),
		CatalogFile:           os.Getenv("CATALOG_FILE"),
		NotifyEndpoint:        os.Getenv("NOTIFY_ENDPOINT"),
		NotifySecret:          os.Getenv("NOTIFY_SECRET"),
		AdminToken:            os.Getenv("ADMIN_TOKEN"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
	}
}

func duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
