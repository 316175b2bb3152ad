// Package testdb opens a migrated, private in-memory sqlite database for
// tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/ordersvc/database/migrations"
	"github.com/shashiranjanraj/ordersvc/pkg/database"
	"github.com/shashiranjanraj/ordersvc/pkg/migration"
)

var seq atomic.Int64

// Open returns a fresh database with every migration applied. It is closed
// when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Open(ctx, "sqlite", dsn, database.Options{})
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if _, err := migration.New(db, migrations.All()...).Run(ctx); err != nil {
		t.Fatalf("testdb: migrate: %v", err)
	}
	return db
}
