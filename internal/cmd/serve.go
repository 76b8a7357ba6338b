package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/appid"
	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/core/engine"
	"github.com/docsubmit/docsubmit/internal/core/store"
	errwrap "github.com/docsubmit/docsubmit/internal/errors"
	"github.com/docsubmit/docsubmit/internal/metrics"
	"github.com/docsubmit/docsubmit/internal/observability"
	"github.com/docsubmit/docsubmit/internal/server"
	"github.com/docsubmit/docsubmit/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// limiterHealthChecker reports a limiter that was never configured.
type limiterHealthChecker struct {
	limiter *engine.FixedWindowLimiter
}

func (l limiterHealthChecker) CheckHealth(ctx context.Context) error {
	if l.limiter == nil || l.limiter.Quota() <= 0 || l.limiter.Window() <= 0 {
		return errwrap.NewConfigInvalidError("rate limiter not configured")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP submission service with graceful shutdown support.

Endpoints:
  POST /v1/documents   submit a JSON or YAML document through the limiter
  GET  /v1/limiter     current window state
  GET  /health, /version, /metrics

All requests share one rate limiter; a restart starts with an empty window.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config file re-read (restart to apply limiter changes)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	identity := GetAppIdentity()
	observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, appid.TelemetryNamespace)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, appid.TelemetryNamespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}

	var journal *store.Store
	if cfg.Journal.Enabled {
		journal, err = openStore(ctx, cfg.Store)
		if err != nil {
			logger.Error("Failed to open submission journal", zap.Error(err))
			return errwrap.WrapDatabaseError(ctx, err, "submission journal unavailable")
		}
		hm.RegisterChecker("journal", journal)
	}

	var journalSink engine.Journal
	if journal != nil {
		journalSink = journal
	}
	deps, err := buildSubmitter(cfg, journalSink, logger)
	if err != nil {
		_ = journal.Close()
		return withExitCode(foundry.ExitConfigInvalid, err)
	}
	hm.RegisterChecker("rate_limiter", limiterHealthChecker{limiter: deps.limiter})

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", appid.TelemetryNamespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.String("registry_url", cfg.Registry.URL),
		zap.Int("quota", deps.limit.RequestsPerWindow),
		zap.Duration("window", deps.limit.WindowDuration),
		zap.Bool("journal", journal != nil))

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithTimeouts(cfg.Server),
		server.WithDocuments(deps.submitter, deps.limiter),
	)

	handlers.SetAppIdentity(identity)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: HTTP server first, then journal, then logger.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if journal == nil {
			return nil
		}
		logger.Info("Closing submission journal...")
		if err := journal.Close(); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "journal close failed")
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: re-reading config file")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				logger.Info("No config file found - using defaults and environment variables")
				return nil
			}
			logger.Error("Failed to reload config file",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}

		reloaded, err := config.Load(ctx)
		if err != nil {
			logger.Error("Reloaded config is invalid", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}

		// The running limiter keeps its window; only the file is validated here.
		logger.Info("Configuration reloaded; restart to apply rate limit changes",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Int("requests", reloaded.RateLimit.Requests),
			zap.Duration("window", reloaded.RateLimit.Window))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server...",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}

	return nil
}
