package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/config"
	errwrap "github.com/docsubmit/docsubmit/internal/errors"
	"github.com/docsubmit/docsubmit/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify configuration, the rate limiter and the submission journal.",
	Run: func(cmd *cobra.Command, args []string) {
		observability.CLILogger.Info("Running health check...")

		// Check 1: Version info available
		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 2: Configuration loads and validates
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Configuration invalid", zap.Error(err))
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded")

		// Check 3: Rate limit resolves to a usable window
		limit, err := resolveRateLimit(cfg.RateLimit)
		if err != nil {
			observability.CLILogger.Error("❌ FAIL: Rate limit invalid", zap.Error(err))
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Rate limit invalid", err)
			return
		}
		observability.CLILogger.Info("✅ Rate limiter configured",
			zap.Int("quota", limit.RequestsPerWindow),
			zap.Duration("window", limit.WindowDuration))

		// Check 4: Journal reachable (only when enabled)
		if cfg.Journal.Enabled {
			db, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				observability.CLILogger.Error("❌ FAIL: Submission journal unavailable", zap.Error(err))
				ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Submission journal unavailable", err)
				return
			}
			healthErr := db.CheckHealth(cmd.Context())
			_ = db.Close()
			if healthErr != nil {
				observability.CLILogger.Error("❌ FAIL: Submission journal unhealthy", zap.Error(healthErr))
				ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Submission journal unhealthy", healthErr)
				return
			}
			observability.CLILogger.Info("✅ Submission journal reachable", zap.String("driver", db.Driver()))
		}

		// Overall status
		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
