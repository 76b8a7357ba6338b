package cmd

import (
	"context"

	"github.com/docsubmit/docsubmit/internal/config"
	"github.com/docsubmit/docsubmit/internal/core/store"
)

// openStore opens the submission journal and applies migrations.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
