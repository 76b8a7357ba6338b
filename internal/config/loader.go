// Package config provides centralized configuration management for docsubmit.
// Layers, lowest to highest: built-in defaults, the viper-managed config file
// and bound CLI flags, environment variables, then runtime overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/docsubmit/docsubmit/internal/appid"
	"github.com/docsubmit/docsubmit/internal/core/transport"
)

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Registry defaults
	v.SetDefault("registry.url", transport.DefaultURL)
	v.SetDefault("registry.token", "")
	v.SetDefault("registry.timeout", "30s")
	v.SetDefault("registry.user_agent", appid.BinaryName)

	// Rate limit defaults: three documents per minute
	v.SetDefault("rate_limit.requests", 3)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.unit", "")
	v.SetDefault("rate_limit.margin", 0.0)

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("journal.enabled", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("debug.enabled", false)
}

// Load builds the configuration from defaults, the global viper instance
// (config file and bound flags), environment variables and runtimeOverrides.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	_ = ctx

	v := viper.New()
	SetDefaults(v)

	if err := v.MergeConfigMap(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to merge config file settings: %w", err)
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	allOverrides := []map[string]any{envOverrides}
	allOverrides = append(allOverrides, runtimeOverrides...)
	for _, overrides := range allOverrides {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Decode converts a nested settings map into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at construction time.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("%w: rate_limit.requests must be positive, got %d", ErrInvalidConfig, c.RateLimit.Requests)
	}
	if strings.TrimSpace(c.RateLimit.Unit) == "" && c.RateLimit.Window <= 0 {
		return fmt.Errorf("%w: rate_limit.window must be positive, got %s", ErrInvalidConfig, c.RateLimit.Window)
	}
	if c.RateLimit.Margin < 0 || c.RateLimit.Margin > 1 {
		return fmt.Errorf("%w: rate_limit.margin must be within [0, 1], got %g", ErrInvalidConfig, c.RateLimit.Margin)
	}

	parsed, err := url.Parse(strings.TrimSpace(c.Registry.URL))
	if err != nil {
		return fmt.Errorf("%w: registry.url: %w", ErrInvalidConfig, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: registry.url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.Registry.URL)
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("%w: registry.timeout must not be negative", ErrInvalidConfig)
	}

	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := appid.EnvPrefix

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Registry config
		{Name: prefix + "REGISTRY_URL", Path: []string{"registry", "url"}, Type: EnvString},
		{Name: prefix + "REGISTRY_TOKEN", Path: []string{"registry", "token"}, Type: EnvString},
		{Name: prefix + "REGISTRY_TIMEOUT", Path: []string{"registry", "timeout"}, Type: EnvString},
		{Name: prefix + "REGISTRY_USER_AGENT", Path: []string{"registry", "user_agent"}, Type: EnvString},

		// Rate limit config
		{Name: prefix + "RATE_LIMIT_REQUESTS", Path: []string{"rate_limit", "requests"}, Type: EnvInt},
		{Name: prefix + "RATE_LIMIT_WINDOW", Path: []string{"rate_limit", "window"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_UNIT", Path: []string{"rate_limit", "unit"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_MARGIN", Path: []string{"rate_limit", "margin"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		{Name: prefix + "JOURNAL_ENABLED", Path: []string{"journal", "enabled"}, Type: EnvBool},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.ConfigName)
}

// DefaultStorePath returns the XDG-compliant path to the journal database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appid.BinaryName + ".db"
	}
	return filepath.Join(dataDir, appid.BinaryName+".db")
}
