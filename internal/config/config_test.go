package config_test

import (
	"testing"
	"time"

	"taskmanager/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_EXPIRY_HOURS", "")
	t.Setenv("RATE_LIMIT_WINDOW", "not-a-duration")

	cfg := config.Load()

	// Некорректные значения заменяются значениями по умолчанию
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RECURRENCE_POLICY", "on-completion")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg := config.Load()

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, "on-completion", cfg.RecurrencePolicy)
	assert.False(t, cfg.AutoMigrate)
	assert.Contains(t, cfg.DSN(), "host=db.internal port=6543")
}
