package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/document"
	"github.com/docsubmit/docsubmit/internal/core/engine"
	"github.com/docsubmit/docsubmit/internal/core/transport"
	"github.com/docsubmit/docsubmit/internal/metrics"
)

// submitterDeps holds the pieces of a wired submitter that callers still
// need after construction.
type submitterDeps struct {
	submitter *engine.DocumentSubmitter
	limiter   *engine.FixedWindowLimiter
	limit     engine.RateLimit
}

// resolveRateLimit turns the rate_limit config section into a limiter
// configuration. A unit takes precedence over window; margin is applied last.
func resolveRateLimit(cfg config.RateLimitConfig) (engine.RateLimit, error) {
	window := cfg.Window
	if cfg.Unit != "" {
		unitWindow, err := engine.WindowForUnit(cfg.Unit)
		if err != nil {
			return engine.RateLimit{}, err
		}
		window = unitWindow
	}

	limit := engine.RateLimit{
		RequestsPerWindow: cfg.Requests,
		WindowDuration:    window,
	}
	if err := limit.Validate(); err != nil {
		return engine.RateLimit{}, err
	}
	return limit.WithMargin(cfg.Margin), nil
}

// newRegistryClient builds the single transport client shared by every
// submission of one submitter.
func newRegistryClient(cfg config.RegistryConfig) *transport.Client {
	client := transport.NewClient(cfg.URL, cfg.Token)
	client.Timeout = cfg.Timeout
	client.UserAgent = cfg.UserAgent
	if client.UserAgent == "" {
		client.UserAgent = appIdentity.BinaryName
	}
	if versionInfo.Version != "" {
		client.UserAgent = fmt.Sprintf("%s/%s", client.UserAgent, versionInfo.Version)
	}
	return client
}

// buildSubmitter wires limiter, serializer, transport, journal and metrics
// together. journal and logger may be nil. Extra observers run after metrics
// are recorded.
func buildSubmitter(cfg *config.Config, journal engine.Journal, logger *logging.Logger, observers ...func(*core.Submission)) (*submitterDeps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config not loaded", config.ErrInvalidConfig)
	}

	limit, err := resolveRateLimit(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	limiter, err := engine.NewLimiterFromRateLimit(limit)
	if err != nil {
		return nil, err
	}

	opts := []engine.SubmitterOption{
		engine.WithObserver(func(submission *core.Submission) {
			metrics.RecordSubmission(submission)
			for _, observe := range observers {
				observe(submission)
			}
		}),
	}
	if journal != nil {
		opts = append(opts, engine.WithJournal(journal))
	}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}

	submitter, err := engine.NewDocumentSubmitter(
		engine.NewTrackedLimiter(limiter, metrics.RecordLimiterDecision),
		document.NewJSONSerializer(),
		newRegistryClient(cfg.Registry),
		opts...,
	)
	if err != nil {
		return nil, err
	}

	return &submitterDeps{submitter: submitter, limiter: limiter, limit: limit}, nil
}
