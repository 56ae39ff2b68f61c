package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	_ "github.com/go-sql-driver/mysql"                  // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib"                  // pgx driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // sqlite driver
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite"

	dialectMySQL    = "mysql"
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrUnsupportedDriver     = errors.New("unsupported sql driver")
)

// SQLOption configures the SQL adapters.
type SQLOption func(*sqlBackend)

func WithSQLLogger(logger *zap.Logger) SQLOption {
	return func(b *sqlBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type sqlBackend struct {
	db      *sqlx.DB
	dialect string
	qb      goqu.DialectWrapper
	logger  *zap.Logger
}

func newSQLBackend(db *sqlx.DB, opts ...SQLOption) (sqlBackend, error) {
	if db == nil {
		return sqlBackend{}, ErrNilDatabaseConnection
	}

	dialect, err := dialectFor(db.DriverName())
	if err != nil {
		return sqlBackend{}, err
	}

	b := sqlBackend{
		db:      db,
		dialect: dialect,
		qb:      goqu.Dialect(dialect),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case DriverMySQL:
		return dialectMySQL, nil
	case DriverPostgres, DriverPGX:
		return dialectPostgres, nil
	case DriverSQLite:
		return dialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// OpenSQL connects to one of the supported drivers and verifies the connection.
func OpenSQL(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time, otherwise concurrent requests hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// timeValue renders timestamps for the target column type.
func (b sqlBackend) timeValue(t time.Time) any {
	if b.dialect == dialectSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func (b sqlBackend) build(ds sqlBuilder) (string, []interface{}, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	b.logger.Debug("executing sql", zap.String("query", query))
	return query, args, nil
}

// insert adds one row and returns its generated id.
func (b sqlBackend) insert(ctx context.Context, table string, rec goqu.Record) (int64, error) {
	ds := b.qb.Insert(table).Rows(rec).Prepared(true)

	if b.dialect == dialectPostgres {
		query, args, err := b.build(ds.Returning("id"))
		if err != nil {
			return 0, err
		}
		var id int64
		if err := b.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := b.build(ds)
	if err != nil {
		return 0, err
	}
	result, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (b sqlBackend) exec(ctx context.Context, ds sqlBuilder) error {
	query, args, err := b.build(ds)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, query, args...)
	return err
}
