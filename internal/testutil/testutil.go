// Package testutil provides database helpers for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/agentstation/lineup/internal/store"
)

var dbSeq atomic.Int64

// DB returns a migrated, private in-memory SQLite database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := store.Open(store.DriverSQLite, dsn)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if _, err := store.Migrate(context.Background(), db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

// Store returns a Store over a fresh test database.
func Store(tb testing.TB) *store.Store {
	tb.Helper()
	return store.New(DB(tb))
}

// Tx begins a transaction rolled back when the test ends.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
