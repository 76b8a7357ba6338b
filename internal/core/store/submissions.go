package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docsubmit/docsubmit/internal/core"
)

// SubmissionQuery filters journal listings.
type SubmissionQuery struct {
	// Limit caps the number of rows returned. Zero means no limit.
	Limit int
	// Outcome restricts results to one outcome when set.
	Outcome core.SubmitOutcome
	// FailedOnly keeps accepted submissions that recorded an error.
	FailedOnly bool
	// Since drops entries requested before this instant when set.
	Since time.Time
}

func (q SubmissionQuery) whereClause() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(q.Outcome))
	}
	if q.FailedOnly {
		clauses = append(clauses, "outcome = ?", "error IS NOT NULL", "error != ''")
		args = append(args, string(core.OutcomeAccepted))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "requested_at >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// RecordSubmission appends a journal entry.
func (s *Store) RecordSubmission(ctx context.Context, submission *core.Submission) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if submission == nil {
		return errors.New("submission is required")
	}
	if strings.TrimSpace(submission.ID) == "" {
		return errors.New("submission id is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO submissions (
			id, doc_id, doc_type, outcome, status_code, error, response,
			payload_bytes, duration_ms, requested_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		submission.ID,
		nullString(submission.DocID),
		nullString(submission.DocType),
		string(submission.Outcome),
		nullInt(submission.StatusCode),
		nullString(submission.Error),
		nullString(submission.Response),
		submission.PayloadBytes,
		submission.Duration.Milliseconds(),
		submission.RequestedAt.UTC().UnixMilli(),
		submission.CompletedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// ListSubmissions returns journal entries, newest first.
func (s *Store) ListSubmissions(ctx context.Context, q SubmissionQuery) ([]core.Submission, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	query := fmt.Sprintf(`
		SELECT id, doc_id, doc_type, outcome, status_code, error, response,
			payload_bytes, duration_ms, requested_at, completed_at
		FROM submissions
		%s
		ORDER BY requested_at DESC, id
	`, where)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []core.Submission{}
	for rows.Next() {
		var (
			entry       core.Submission
			docID       sql.NullString
			docType     sql.NullString
			outcome     string
			statusCode  sql.NullInt64
			errText     sql.NullString
			response    sql.NullString
			durationMS  int64
			requestedAt int64
			completedAt int64
		)
		if err := rows.Scan(&entry.ID, &docID, &docType, &outcome, &statusCode, &errText, &response,
			&entry.PayloadBytes, &durationMS, &requestedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}

		entry.DocID = docID.String
		entry.DocType = docType.String
		entry.Outcome = core.SubmitOutcome(outcome)
		entry.StatusCode = int(statusCode.Int64)
		entry.Error = errText.String
		entry.Response = response.String
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.RequestedAt = time.UnixMilli(requestedAt).UTC()
		entry.CompletedAt = time.UnixMilli(completedAt).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	return entries, nil
}

// CountSubmissions returns per-outcome totals for entries matching q.
// Limit is ignored.
func (s *Store) CountSubmissions(ctx context.Context, q SubmissionQuery) (map[core.SubmitOutcome]int, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := q.whereClause()
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT outcome, COUNT(*)
		FROM submissions
		%s
		GROUP BY outcome
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	counts := map[core.SubmitOutcome]int{}
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan submission count: %w", err)
		}
		counts[core.SubmitOutcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	return counts, nil
}

// PruneSubmissions deletes entries requested before the cutoff.
func (s *Store) PruneSubmissions(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if before.IsZero() {
		return 0, errors.New("prune cutoff is required")
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM submissions WHERE requested_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return affected, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullInt(value int) sql.NullInt64 {
	if value == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(value), Valid: true}
}
