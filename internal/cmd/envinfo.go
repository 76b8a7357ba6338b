package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, rate limit and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		logger.Info("=== docsubmit Environment Information ===")
		logger.Info("")

		logger.Info("Application:")
		logger.Info("  Name:       " + identity.BinaryName)
		logger.Info("  Version:    " + versionInfo.Version)
		logger.Info("  Commit:     " + versionInfo.Commit)
		logger.Info("  Built:      " + versionInfo.BuildDate)
		logger.Info("")

		logger.Info("SSOT:")
		logger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		logger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		logger.Info("")

		logger.Info("Runtime:")
		logger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		logger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		logger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		logger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		logger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			logger.Warn("Config load failed", zap.Error(err))
			return
		}

		logger.Info("Configuration:")
		logger.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		logger.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		logger.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		logger.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		logger.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		logger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		logger.Info("")

		logger.Info("Registry:")
		logger.Info("  URL:            "+cfg.Registry.URL, zap.String("registry_url", cfg.Registry.URL))
		logger.Info("  Timeout:        " + cfg.Registry.Timeout.String())
		logger.Info("  User Agent:     " + cfg.Registry.UserAgent)
		if strings.TrimSpace(cfg.Registry.Token) != "" {
			logger.Info("  Token:          (set)")
		} else {
			logger.Info("  Token:          (not set)")
		}
		logger.Info("")

		logger.Info("Rate Limit:")
		if limit, err := resolveRateLimit(cfg.RateLimit); err != nil {
			logger.Warn("  Invalid: "+err.Error(), zap.Error(err))
		} else {
			logger.Info(fmt.Sprintf("  Requests:       %d", limit.RequestsPerWindow), zap.Int("requests", limit.RequestsPerWindow))
			logger.Info("  Window:         "+limit.WindowDuration.String(), zap.Duration("window", limit.WindowDuration))
			if cfg.RateLimit.Unit != "" {
				logger.Info("  Unit:           " + cfg.RateLimit.Unit)
			}
			if cfg.RateLimit.Margin > 0 {
				logger.Info(fmt.Sprintf("  Margin:         %.2f", cfg.RateLimit.Margin))
			}
		}
		logger.Info("")

		logger.Info("Journal:")
		logger.Info(fmt.Sprintf("  Enabled:        %t", cfg.Journal.Enabled), zap.Bool("journal_enabled", cfg.Journal.Enabled))
		logger.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			logger.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			logger.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		logger.Info("")

		logger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
