package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-sim/pkg/config"
	"github.com/noah-isme/campus-sim/pkg/database"
)

// Open returns the store selected by cfg.Store.Driver. The returned *sqlx.DB
// is nil for the memory driver; callers close it when non-nil.
func Open(ctx context.Context, cfg *config.Config) (Store, *sqlx.DB, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil, nil
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return NewPostgresStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
