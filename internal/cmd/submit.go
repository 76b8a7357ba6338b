package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/document"
	"github.com/docsubmit/docsubmit/internal/core/engine"
	"github.com/docsubmit/docsubmit/internal/core/transport"
	"github.com/docsubmit/docsubmit/internal/observability"
	"github.com/docsubmit/docsubmit/internal/output"
)

var submitCmd = &cobra.Command{
	Use:   "submit [file|-]",
	Short: "Submit a document to the registry",
	Long: `Submit a document to the registry through the rate limiter.

The document is read from a JSON or YAML file, from stdin ("-"), or taken
from the built-in example. With --count the same document is submitted
repeatedly by --parallel workers sharing one limiter, so attempts beyond the
quota of the current window are reported as rate limited.

Examples:
  # Submit the example document once
  docsubmit submit --example

  # Ten attempts, four workers, three per second
  docsubmit submit doc.json --count 10 --parallel 4 --requests 3 --unit second

  # Read from stdin
  cat doc.yaml | docsubmit submit - --input-format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	addSubmitFlags(submitCmd)
}

func addSubmitFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("example", false, "Submit the built-in example document")
	cmd.Flags().String("input-format", "", "Input format for stdin: json, yaml (default json)")
	cmd.Flags().Int("count", 1, "Number of submission attempts")
	cmd.Flags().Int("parallel", 1, "Concurrent workers sharing the limiter")
	cmd.Flags().Int("requests", 0, "Requests allowed per window (overrides rate_limit.requests)")
	cmd.Flags().Duration("window", 0, "Window length (overrides rate_limit.window)")
	cmd.Flags().String("unit", "", "Window of one time unit: millisecond, second, minute, hour, day")
	cmd.Flags().String("registry-url", "", "Registry endpoint (overrides registry.url)")
	cmd.Flags().Bool("no-journal", false, "Do not record attempts in the submission journal")

	cmd.MarkFlagsMutuallyExclusive("window", "unit")
}

// submitOptions are the parsed flags of the submit command.
type submitOptions struct {
	example     bool
	inputFormat string
	count       int
	parallel    int
}

func runSubmit(cmd *cobra.Command, args []string) error {
	opts, err := parseSubmitOptions(cmd, args)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	overrides, err := submitOverrides(cmd)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	ctx := cmd.Context()
	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	doc, err := loadSubmitDocument(cmd, args, opts)
	if err != nil {
		return withExitCode(foundry.ExitFileNotFound, err)
	}

	var journal engine.Journal
	if cfg.Journal.Enabled {
		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			// Journaling is best effort; submission proceeds without it.
			observability.CLILogger.Warn("Submission journal unavailable", zap.Error(err))
		} else {
			defer db.Close() // nolint:errcheck // best-effort cleanup
			journal = db
		}
	}

	report := newSubmitReport(cmd.OutOrStdout())
	deps, err := buildSubmitter(cfg, journal, observability.CLILogger, report.observe)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	observability.CLILogger.Debug("Submitting document",
		zap.String("doc_id", doc.DocID),
		zap.Int("count", opts.count),
		zap.Int("parallel", opts.parallel),
		zap.Int("quota", deps.limit.RequestsPerWindow),
		zap.Duration("window", deps.limit.WindowDuration))

	errs := submitRepeatedly(ctx, deps.submitter, doc, opts.count, opts.parallel)

	state := deps.limiter.Snapshot()
	_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join([]string{
		"Submission Summary",
		"",
		report.summary().String(),
		fmt.Sprintf("limiter: %d of %d used, window %s", state.Count, state.Quota, state.Window),
	}, "\n"), 0))

	if len(errs) > 0 {
		return withExitCode(submitExitCode(errs), fmt.Errorf("%d of %d submissions failed: %w", len(errs), opts.count, errs[0]))
	}
	return nil
}

func parseSubmitOptions(cmd *cobra.Command, args []string) (submitOptions, error) {
	var opts submitOptions
	var err error

	if opts.example, err = cmd.Flags().GetBool("example"); err != nil {
		return opts, err
	}
	if opts.inputFormat, err = cmd.Flags().GetString("input-format"); err != nil {
		return opts, err
	}
	if opts.count, err = cmd.Flags().GetInt("count"); err != nil {
		return opts, err
	}
	if opts.parallel, err = cmd.Flags().GetInt("parallel"); err != nil {
		return opts, err
	}

	switch {
	case opts.example && len(args) > 0:
		return opts, errors.New("--example cannot be combined with a document argument")
	case !opts.example && len(args) == 0:
		return opts, errors.New("a document file, - for stdin, or --example is required")
	case opts.count < 1:
		return opts, errors.New("--count must be at least 1")
	case opts.parallel < 1:
		return opts, errors.New("--parallel must be at least 1")
	}
	if opts.parallel > opts.count {
		opts.parallel = opts.count
	}
	return opts, nil
}

// submitOverrides maps explicitly set flags onto config keys.
func submitOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := map[string]any{}
	flags := cmd.Flags()

	if flags.Changed("requests") {
		requests, err := flags.GetInt("requests")
		if err != nil {
			return nil, err
		}
		setOverride(overrides, "rate_limit.requests", requests)
	}
	if flags.Changed("window") {
		window, err := flags.GetDuration("window")
		if err != nil {
			return nil, err
		}
		setOverride(overrides, "rate_limit.window", window.String())
		setOverride(overrides, "rate_limit.unit", "")
	}
	if flags.Changed("unit") {
		unit, err := flags.GetString("unit")
		if err != nil {
			return nil, err
		}
		setOverride(overrides, "rate_limit.unit", strings.TrimSpace(unit))
	}
	if flags.Changed("registry-url") {
		registryURL, err := flags.GetString("registry-url")
		if err != nil {
			return nil, err
		}
		setOverride(overrides, "registry.url", strings.TrimSpace(registryURL))
	}
	if flags.Changed("no-journal") {
		noJournal, err := flags.GetBool("no-journal")
		if err != nil {
			return nil, err
		}
		setOverride(overrides, "journal.enabled", !noJournal)
	}
	return overrides, nil
}

// setOverride stores value under a dotted config key as nested maps.
func setOverride(overrides map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	current := overrides
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func loadSubmitDocument(cmd *cobra.Command, args []string, opts submitOptions) (*core.Document, error) {
	if opts.example {
		return document.Example(), nil
	}

	source := strings.TrimSpace(args[0])
	if source != "-" {
		return document.Load(source)
	}

	format := document.FormatJSON
	if opts.inputFormat != "" {
		parsed, err := document.ParseFormat(opts.inputFormat)
		if err != nil {
			return nil, err
		}
		format = parsed
	}
	return document.Decode(cmd.InOrStdin(), format)
}

// submitRepeatedly performs count submissions with at most parallel workers
// and returns the errors of failed attempts.
func submitRepeatedly(ctx context.Context, submitter *engine.DocumentSubmitter, doc *core.Document, count, parallel int) []error {
	var (
		mu   sync.Mutex
		errs []error
	)

	p := pool.New().WithMaxGoroutines(parallel)
	for i := 0; i < count; i++ {
		p.Go(func() {
			if _, err := submitter.Submit(ctx, doc); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	p.Wait()

	return errs
}

// submitExitCode reports ExitExternalServiceUnavailable when every failure
// came from the registry, and ExitFailure otherwise.
func submitExitCode(errs []error) foundry.ExitCode {
	if len(errs) == 0 {
		return foundry.ExitFailure
	}
	for _, err := range errs {
		if !errors.Is(err, transport.ErrTransport) {
			return foundry.ExitFailure
		}
	}
	return foundry.ExitExternalServiceUnavailable
}

// submitReport prints one status line per attempt as attempts complete.
type submitReport struct {
	mu      sync.Mutex
	out     io.Writer
	entries []core.Submission
}

func newSubmitReport(out io.Writer) *submitReport {
	return &submitReport{out: out}
}

func (r *submitReport) observe(submission *core.Submission) {
	if submission == nil {
		return
	}

	line := output.StatusLine(submission)
	if submission.Failed() {
		line += ": " + submission.Error
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *submission)
	_, _ = fmt.Fprintln(r.out, line)
}

func (r *submitReport) summary() output.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return output.Summarize(r.entries)
}
