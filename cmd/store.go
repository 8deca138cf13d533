package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbancover/internal/store"
)

func initStore(ctx context.Context) (store.ObjectStore, error) {
	switch cfg.Store.Driver {
	case "s3":
		return store.NewS3(ctx, store.S3Options{
			Region:   cfg.Store.S3.Region,
			Endpoint: cfg.Store.S3.Endpoint,
		})
	case "local":
		return store.NewLocal(cfg.Store.Root), nil
	case "http":
		return store.NewHTTP(store.HTTPOptions{
			BaseURL: cfg.Store.HTTP.BaseURL,
			Timeout: time.Duration(cfg.Store.HTTP.TimeoutSecs) * time.Second,
			Rate:    cfg.Store.HTTP.Rate,
			Burst:   cfg.Store.HTTP.Burst,
		})
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "urbancover.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// migrateStore creates the document table for the SQL drivers. Object
// stores need no schema.
func migrateStore(ctx context.Context, st store.ObjectStore) error {
	m, ok := st.(store.Migrator)
	if !ok {
		return nil
	}
	return eris.Wrap(m.Migrate(ctx), "migrate store")
}
