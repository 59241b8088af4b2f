// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/fluxorio/todoapi/pkg/db"
)

// NewSQLite returns a migrated in-memory sqlite pool closed at test cleanup
func NewSQLite(t testing.TB) *db.Pool {
	t.Helper()

	pool, err := db.NewPool(db.DefaultPoolConfig(":memory:", "sqlite3"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}
