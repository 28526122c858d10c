package model

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database and migrates the given
// models. The DSN carries a nanosecond timestamp so parallel tests in the
// same process never share tables.
func setupTestDB(t *testing.T, modelName string, models ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_%s_%d?mode=memory&cache=shared", modelName, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("failed to auto-migrate models: %v", err)
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		t.Cleanup(func() { _ = sqlDB.Close() })
	}

	return db
}
