package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		doc_id TEXT,
		doc_type TEXT,
		outcome TEXT NOT NULL,
		status_code INTEGER,
		error TEXT,
		response TEXT,
		payload_bytes INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		requested_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_requested ON submissions(requested_at);`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_outcome ON submissions(outcome, requested_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
