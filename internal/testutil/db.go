// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pixcharge/config"
	"pixcharge/internal/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq int64

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:pixtest%d?mode=memory&cache=shared&_foreign_keys=1", atomic.AddInt64(&dbSeq, 1))
	db, err := database.Open(sqlite.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
