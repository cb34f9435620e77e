package kvstore

import (
	"context"
	"fmt"

	"retailsync/internal/platform/config"
	"retailsync/internal/platform/database"
)

// Open builds the configured backend. SQLite databases are migrated first.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*KV, error) {
	switch cfg.Driver {
	case "", "sqlite":
		db, err := database.OpenSQLite(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return New(NewSQLiteStore(db)), nil
	case "redis":
		store, err := NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return New(store), nil
	case "memory":
		return New(NewMemoryStore()), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
