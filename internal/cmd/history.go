package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/core/store"
	"github.com/docsubmit/docsubmit/internal/observability"
	"github.com/docsubmit/docsubmit/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded submission attempts",
	Long: `List entries of the submission journal, newest first.

The journal records every attempt made by submit and serve, including
rate-limited ones. It is an audit log only; the rate limiter never reads it.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old journal entries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyPruneCmd)
	addHistoryFlags(historyCmd)

	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete entries requested before this age")
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().String("outcome", "", "Only show one outcome: accepted, rate_limited")
	cmd.Flags().Bool("failed", false, "Only show accepted attempts that failed to deliver")
	cmd.Flags().Duration("since", 0, "Only show attempts newer than this age (e.g. 24h)")
	cmd.Flags().String("output-format", "table", "Output format: table, json, markdown")
	cmd.Flags().String("out", "", "Write output to a file instead of stdout")
}

func runHistory(cmd *cobra.Command, args []string) error {
	query, err := historyQuery(cmd, time.Now().UTC())
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return withExitCode(foundry.ExitConfigInvalid, err)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	db, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	entries, err := db.ListSubmissions(cmd.Context(), query)
	if err != nil {
		return err
	}

	var rendered string
	if len(entries) == 0 && format == output.FormatTable {
		rendered = ascii.DrawBox("Submission History\n\n(no recorded submissions)", 0)
	} else if rendered, err = output.NewFormatter(format).FormatSubmissions(entries); err != nil {
		return err
	}

	sink, err := openSink(cmd, outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck // best-effort cleanup

	if strings.TrimSpace(rendered) != "" {
		if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
			return err
		}
	}
	if sink.path != "-" {
		observability.CLILogger.Info("Wrote submission history",
			zap.String("path", sink.path),
			zap.Int("entries", len(entries)))
	}
	return nil
}

func historyQuery(cmd *cobra.Command, now time.Time) (store.SubmissionQuery, error) {
	var query store.SubmissionQuery

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return query, err
	}
	if limit < 0 {
		return query, errors.New("--limit must not be negative")
	}
	query.Limit = limit

	outcomeValue, err := cmd.Flags().GetString("outcome")
	if err != nil {
		return query, err
	}
	if strings.TrimSpace(outcomeValue) != "" {
		outcome, ok := core.ParseSubmitOutcome(outcomeValue)
		if !ok {
			return query, fmt.Errorf("unknown outcome %q (expected accepted or rate_limited)", outcomeValue)
		}
		query.Outcome = outcome
	}

	if query.FailedOnly, err = cmd.Flags().GetBool("failed"); err != nil {
		return query, err
	}
	if query.FailedOnly && query.Outcome == core.OutcomeRateLimited {
		return query, errors.New("--failed cannot be combined with --outcome rate_limited")
	}

	since, err := cmd.Flags().GetDuration("since")
	if err != nil {
		return query, err
	}
	if since < 0 {
		return query, errors.New("--since must not be negative")
	}
	if since > 0 {
		query.Since = now.Add(-since)
	}
	return query, nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	olderThan, err := cmd.Flags().GetDuration("older-than")
	if err != nil {
		return err
	}
	if olderThan <= 0 {
		return withExitCode(foundry.ExitConfigInvalid, errors.New("--older-than must be positive"))
	}

	db, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	cutoff := time.Now().UTC().Add(-olderThan)
	removed, err := db.PruneSubmissions(cmd.Context(), cutoff)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d journal entries older than %s\n", removed, cutoff.Format(time.RFC3339))
	return nil
}

func openJournal(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, withExitCode(foundry.ExitConfigInvalid, err)
	}
	db, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open submission journal: %w", err)
	}
	return db, nil
}
