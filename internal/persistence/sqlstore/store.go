// Package sqlstore implements the persistence repositories on top of database/sql via
// sqlx. SQLite (modernc.org/sqlite) is the default engine; a postgres:// DSN selects
// the pgx stdlib driver instead.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/example/campus-yoga/internal/logging"
	"github.com/example/campus-yoga/internal/persistence"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

// Store implements every persistence repository against a single database handle.
type Store struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open connects to dsn. DSNs starting with postgres:// or postgresql:// use pgx; anything
// else is handed to SQLite with foreign keys enabled.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	driver, source := resolveDriver(dsn)

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == driverSQLite {
		// SQLite serialises writers; a single connection avoids SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", driver, err)
	}

	return New(db, opts...), nil
}

// New wraps an existing sqlx handle. Placeholders follow the handle's driver name.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(db.DriverName())),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func resolveDriver(dsn string) (string, string) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return driverPostgres, dsn
	}
	if dsn == "" {
		dsn = "file:yoga.db"
	}
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return driverSQLite, dsn
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if sqlx.BindType(driver) == sqlx.DOLLAR {
		return sq.Dollar
	}
	return sq.Question
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, rolling back when fn fails or panics.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit transaction: %w", mapError(err))
	}
	return nil
}

// requireAffected turns a write that touched no rows into persistence.ErrNotFound.
func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, persistence.ErrNotFound)
	}
	return nil
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger.With("component", "sqlstore")
	}
	return s.logger.With("component", "sqlstore")
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
