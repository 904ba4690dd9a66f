package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_HOST", "SERVER_PORT", "STORE_DRIVER", "PORTFOLIOS_FILE", "DB_PATH",
		"STARTING_CASH", "PRICE_SOURCE", "PRICE_TIMEOUT", "PRICE_CACHE_TTL", "PRICE_REFRESH_SCHEDULE",
		"PRICE_REFRESH_CONCURRENCY", "STATIC_PRICES", "AUTH_MODE", "AUTH_FERNET_KEY", "AUTH_TOKEN_TTL",
		"AUTH_STATIC_USER", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_PRETTY", "TRACING_ENABLED",
	} {
		t.Setenv(key, "")
	}
	// Keep godotenv from picking up a stray .env next to the package.
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:8004", cfg.Server.Addr)
		assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
		assert.Equal(t, "portfolios.json", cfg.Store.PortfoliosFile)
		assert.Equal(t, "100000", cfg.Portfolio.StartingCash.String())
		assert.Equal(t, 5*time.Second, cfg.Prices.Timeout)
		assert.Equal(t, AuthModeStatic, cfg.Auth.Mode)
		assert.Equal(t, "user_1", cfg.Auth.StaticUser)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
		assert.False(t, cfg.Tracing.Enabled)
	})

	t.Run("environment overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("STORE_DRIVER", "sqlite")
		t.Setenv("STARTING_CASH", "50000.50")
		t.Setenv("PRICE_TIMEOUT", "750ms")
		t.Setenv("STATIC_PRICES", "AAPL=150, MSFT=400.5")
		t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")
		t.Setenv("LOG_PRETTY", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
		assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
		assert.Equal(t, "50000.5", cfg.Portfolio.StartingCash.String())
		assert.Equal(t, 750*time.Millisecond, cfg.Prices.Timeout)
		assert.Equal(t, map[string]string{"AAPL": "150", "MSFT": "400.5"}, cfg.Prices.Static)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
		assert.True(t, cfg.Log.Pretty)
	})

	t.Run("yaml file below environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
portfolio:
  starting_cash: "25000"
prices:
  source: static
  timeout: 2s
  static:
    AAPL: "150"
auth:
  mode: fernet
  fernet_key: from-file
tracing:
  enabled: true
`), 0o600))
		t.Setenv("CONFIG_FILE", path)
		t.Setenv("SERVER_PORT", "7100")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0:7100", cfg.Server.Addr)
		assert.Equal(t, "25000", cfg.Portfolio.StartingCash.String())
		assert.Equal(t, PriceSourceStatic, cfg.Prices.Source)
		assert.Equal(t, 2*time.Second, cfg.Prices.Timeout)
		assert.Equal(t, "150", cfg.Prices.Static["AAPL"])
		assert.Equal(t, AuthModeFernet, cfg.Auth.Mode)
		assert.Equal(t, "from-file", cfg.Auth.FernetKey)
		assert.True(t, cfg.Tracing.Enabled)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name, key, value string
		}{
			{"unknown driver", "STORE_DRIVER", "postgres"},
			{"unknown price source", "PRICE_SOURCE", "bloomberg"},
			{"unknown auth mode", "AUTH_MODE", "oauth"},
			{"fernet without key", "AUTH_MODE", "fernet"},
			{"negative cash", "STARTING_CASH", "-1"},
			{"bad cash", "STARTING_CASH", "lots"},
			{"bad duration", "PRICE_TIMEOUT", "soon"},
			{"bad bool", "TRACING_ENABLED", "maybe"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				clearEnv(t)
				t.Setenv(tt.key, tt.value)

				_, err := Load()
				assert.Error(t, err)
			})
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := Load()
		assert.Error(t, err)
	})
}
