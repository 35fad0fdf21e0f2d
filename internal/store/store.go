// Package store opens the relational database and provides the
// repositories the pipeline runs on.
//
// All repository methods run on the Store's handle. Inside Tx the callback
// receives a Store bound to the transaction and must use it for every query.
package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agentstation/lineup/pkg/errors"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store wraps a gorm handle, either the root connection pool or a
// transaction.
type Store struct {
	db *gorm.DB
}

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// options configures Open.
type options struct {
	logLevel gormlogger.LogLevel
}

// Option configures Open.
type Option func(*options)

// WithQueryLogging logs every SQL statement.
func WithQueryLogging(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.logLevel = gormlogger.Info
		}
	}
}

// Open connects to the database named by driver and dsn.
func Open(driver, dsn string, opts ...Option) (*gorm.DB, error) {
	o := &options{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(o)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql", "pgx":
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.NewConfigError("database", fmt.Sprintf("unsupported driver %q", driver), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, errors.NewConfigError("database", "open failed", err)
	}

	if db.Dialector.Name() == DriverSQLite {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Dialect returns the dialect name, "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.db.Dialector.Name()
}

// Tx runs fn in a transaction. Nested calls use savepoints.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// conn returns the handle bound to ctx.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate adds a row lock where the dialect supports one.
func (s *Store) forUpdate(q *gorm.DB) *gorm.DB {
	if s.Dialect() == DriverPostgres {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Page limits a list query.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	q = q.Limit(limit)
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	return q
}

// likePattern builds a case-insensitive substring pattern.
func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
