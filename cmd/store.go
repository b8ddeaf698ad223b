package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/resilience"
	"github.com/sells-group/listing-etl/internal/store"
)

// initStore opens the configured warehouse. Connection attempts are retried
// while the database is still coming up.
func initStore(ctx context.Context) (store.Store, error) {
	dsn, err := cfg.Store.DSN()
	if err != nil {
		return nil, err
	}

	retry := resilience.FromConfig(cfg.Load.MaxAttempts, cfg.Load.InitialBackoffMs, cfg.Load.MaxBackoffMs)
	retry.OnRetry = resilience.RetryLogger("open_store", zap.String("driver", cfg.Store.Driver))

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
		switch cfg.Store.Driver {
		case "postgres":
			return store.NewPostgres(ctx, dsn, cfg.Store.PoolConfig())
		case "mysql":
			return store.NewMySQL(ctx, dsn, cfg.Store.PoolConfig())
		case "sqlite":
			return store.NewSQLite(dsn)
		default:
			return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
		}
	})
}

// openMigrated opens the store and applies the warehouse DDL.
func openMigrated(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("warehouse"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate")
	}
	return st, nil
}
