package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/adapter/storage"
	"github.com/rl1809/librarian/internal/config"
	"github.com/rl1809/librarian/internal/port"
)

var ErrMigrateUnsupported = errors.New("schema migration needs a SQL driver")

// Backend bundles the repositories and auth provider of the configured driver.
type Backend struct {
	Catalog port.CatalogRepository
	Loans   port.LoanRepository
	Users   port.UserRepository
	Auth    port.AuthProvider
	Tables  port.TableChecker

	sql *storage.SQLAdapter
	db  *sqlx.DB
}

// OpenBackend connects to the backend selected by cfg.Backend.Driver.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if !cfg.IsSQL() {
		opts := []storage.RestOption{
			storage.WithHTTPClient(&http.Client{Timeout: cfg.GetBackendTimeout()}),
			storage.WithRestLogger(logger),
		}
		rest := storage.NewRestAdapter(cfg.Backend.URL, cfg.Backend.APIKey, opts...)
		logger.Info("using hosted backend", zap.String("url", cfg.Backend.URL))
		return &Backend{
			Catalog: rest,
			Loans:   rest,
			Users:   rest,
			Auth:    storage.NewRestAuthAdapter(cfg.Backend.URL, cfg.Backend.APIKey, opts...),
			Tables:  rest,
		}, nil
	}

	db, err := storage.OpenSQL(ctx, cfg.Backend.Driver, cfg.Backend.DSN)
	if err != nil {
		return nil, err
	}

	adapter, err := storage.NewSQLAdapter(db, storage.WithSQLLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	auth, err := storage.NewSQLAuthAdapter(db, storage.WithSQLLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to sql backend", zap.String("driver", cfg.Backend.Driver))
	return &Backend{
		Catalog: adapter,
		Loans:   adapter,
		Users:   adapter,
		Auth:    auth,
		Tables:  adapter,
		sql:     adapter,
		db:      db,
	}, nil
}

// Migrate creates the SQL schema. The hosted backend manages its own.
func (b *Backend) Migrate(ctx context.Context) error {
	if b.sql == nil {
		return ErrMigrateUnsupported
	}
	return b.sql.Migrate(ctx)
}

// CheckTables probes every required table and joins the failures.
func (b *Backend) CheckTables(ctx context.Context) error {
	var errs []error
	for _, table := range storage.RequiredTables {
		if err := b.Tables.CheckTable(ctx, table); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// OpenRedis connects to the session and idempotency store.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rdb, nil
}
