package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsubmit/docsubmit/internal/core/transport"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	// Test basic config loading with defaults
	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Verify server defaults
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		// Verify registry defaults
		assert.Equal(t, transport.DefaultURL, cfg.Registry.URL)
		assert.Equal(t, 30*time.Second, cfg.Registry.Timeout)
		assert.Equal(t, "docsubmit", cfg.Registry.UserAgent)

		// Verify rate limit defaults
		assert.Equal(t, 3, cfg.RateLimit.Requests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Empty(t, cfg.RateLimit.Unit)
		assert.Zero(t, cfg.RateLimit.Margin)

		// Verify store defaults
		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("docsubmit"), "docsubmit.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Empty(t, cfg.Store.URL)

		assert.True(t, cfg.Journal.Enabled)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.False(t, cfg.Debug.Enabled)

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("DOCSUBMIT_PORT", "9999")
		t.Setenv("DOCSUBMIT_REGISTRY_URL", "http://registry.local/api/documents")
		t.Setenv("DOCSUBMIT_REGISTRY_TIMEOUT", "5s")
		t.Setenv("DOCSUBMIT_RATE_LIMIT_REQUESTS", "7")
		t.Setenv("DOCSUBMIT_RATE_LIMIT_UNIT", "second")
		t.Setenv("DOCSUBMIT_RATE_LIMIT_MARGIN", "0.5")
		t.Setenv("DOCSUBMIT_JOURNAL_ENABLED", "false")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "http://registry.local/api/documents", cfg.Registry.URL)
		assert.Equal(t, 5*time.Second, cfg.Registry.Timeout)
		assert.Equal(t, 7, cfg.RateLimit.Requests)
		assert.Equal(t, "second", cfg.RateLimit.Unit)
		assert.InDelta(t, 0.5, cfg.RateLimit.Margin, 0.0001)
		assert.False(t, cfg.Journal.Enabled)
	})

	t.Run("RuntimeOverridesWinOverEnv", func(t *testing.T) {
		t.Setenv("DOCSUBMIT_RATE_LIMIT_REQUESTS", "7")

		cfg, err := Load(ctx, map[string]any{
			"rate_limit": map[string]any{"requests": 11, "window": "10s"},
		})
		require.NoError(t, err)
		assert.Equal(t, 11, cfg.RateLimit.Requests)
		assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	})

	t.Run("RejectsInvalidValues", func(t *testing.T) {
		tests := []struct {
			name      string
			overrides map[string]any
		}{
			{"zero requests", map[string]any{"rate_limit": map[string]any{"requests": 0}}},
			{"zero window", map[string]any{"rate_limit": map[string]any{"window": "0s"}}},
			{"margin above one", map[string]any{"rate_limit": map[string]any{"margin": 1.5}}},
			{"relative url", map[string]any{"registry": map[string]any{"url": "/documents/create"}}},
			{"ftp url", map[string]any{"registry": map[string]any{"url": "ftp://registry.local/x"}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Load(ctx, tt.overrides)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})

	t.Run("UnitAllowsZeroWindow", func(t *testing.T) {
		cfg, err := Load(ctx, map[string]any{
			"rate_limit": map[string]any{"window": "0s", "unit": "minute"},
		})
		require.NoError(t, err)
		assert.Equal(t, "minute", cfg.RateLimit.Unit)
	})
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	assert.Equal(t, filepath.Join(gfconfig.GetAppConfigDir("docsubmit"), "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join(gfconfig.GetAppDataDir("docsubmit"), "docsubmit.db"), DefaultStorePath())
}

func TestDecodeWeakTypes(t *testing.T) {
	cfg, err := Decode(map[string]any{
		"server":     map[string]any{"port": "8181", "read_timeout": "2s"},
		"rate_limit": map[string]any{"requests": "4", "margin": "0.25"},
		"journal":    map[string]any{"enabled": "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 4, cfg.RateLimit.Requests)
	assert.InDelta(t, 0.25, cfg.RateLimit.Margin, 0.0001)
	assert.True(t, cfg.Journal.Enabled)
}
