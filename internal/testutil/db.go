// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invite-exchange/internal/database"
)

// PureGoSQLiteDSN is the glebarez/sqlite form of database.SQLiteDSN. The
// pragmas run on every new connection.
func PureGoSQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, database.SQLiteBusyTimeoutMillis)
}

// NewSQLiteDB opens a migrated pure-Go SQLite database in a temp dir. It is
// configured exactly like the embedded production backend.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := PureGoSQLiteDSN(filepath.Join(t.TempDir(), "codes.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.ConfigureSQLite(db); err != nil {
		t.Fatalf("failed to configure sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
