package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bluewhale")
	t.Setenv("GO_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 * * * *", cfg.Jobs.SyncCron)
	assert.Equal(t, "0 2 * * *", cfg.Jobs.ScraperCron)
	assert.Equal(t, "Africa/Johannesburg", cfg.Jobs.Timezone)
	assert.Equal(t, 2*time.Second, cfg.Scraper.RequestDelay)
	assert.Equal(t, 15*time.Second, cfg.Scraper.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Jobs.SyncDelay)
	assert.Equal(t, ".JO", cfg.Market.ExchangeSuffix)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpiresIn)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bluewhale")
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", DefaultJWTSecret)

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownLLMProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bluewhale")
	t.Setenv("LLM_PROVIDER", "gemini")

	_, err := Load()
	require.Error(t, err)
}

func TestParseExpiry(t *testing.T) {
	fallback := time.Hour
	cases := map[string]time.Duration{
		"7d":       7 * 24 * time.Hour,
		"30m":      30 * time.Minute,
		"168h":     168 * time.Hour,
		"0d":       fallback,
		"nonsense": fallback,
		"":         fallback,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseExpiry(in, fallback), "input %q", in)
	}
}

func TestGetEnvAsDurationReadsMilliseconds(t *testing.T) {
	t.Setenv("SOME_DELAY_MS", "250")
	assert.Equal(t, 250*time.Millisecond, getEnvAsDuration("SOME_DELAY_MS", time.Second))

	t.Setenv("SOME_DELAY_MS", "abc")
	assert.Equal(t, time.Second, getEnvAsDuration("SOME_DELAY_MS", time.Second))
}
