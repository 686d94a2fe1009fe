package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "TRUSTCADE_PORT", "TRUSTCADE_DATA_DIR", "DATABASE_URL", "SPIN_COOLDOWN",
		"VERIFICATION_THRESHOLD", "CLAIM_CODE_PREFIX", "LOCK_TIMEOUT", "CATALOG_FILE", "NOTIFY_ENDPOINT",
		"NOTIFY_SECRET", "ADMIN_TOKEN", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 24*time.Hour, cfg.SpinCooldown)
	assert.True(t, cfg.VerificationThreshold.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "TC-", cfg.ClaimCodePrefix)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUSTCADE_PORT", "9090")
	t.Setenv("SPIN_COOLDOWN", "1h")
	t.Setenv("VERIFICATION_THRESHOLD", "250.50")
	t.Setenv("CLAIM_CODE_PREFIX", "WIN-")
	t.Setenv("ADMIN_TOKEN", "secret")
	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, time.Hour, cfg.SpinCooldown)
	assert.Equal(t, "250.5", cfg.VerificationThreshold.String())
	assert.Equal(t, "WIN-", cfg.ClaimCodePrefix)
	assert.Equal(t, "secret", cfg.AdminToken)

	t.Setenv("PORT", "7000")
	assert.Equal(t, 7000, Load().Port, "PORT wins over TRUSTCADE_PORT")
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "abc")
	t.Setenv("SPIN_COOLDOWN", "soon")
	t.Setenv("LOCK_TIMEOUT", "-1s")
	t.Setenv("VERIFICATION_THRESHOLD", "-5")
	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.SpinCooldown)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.True(t, cfg.VerificationThreshold.Equal(decimal.NewFromInt(100)))
}
