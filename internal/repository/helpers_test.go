package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aimd54/reward-economy/internal/models"
)

// setupTestDB creates an in-memory SQLite database with every table migrated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// A second connection would see a different in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return wrapped
}

// createTestAccount creates an account with the given external ID.
func createTestAccount(t *testing.T, db *DB, externalID string) *models.Account {
	t.Helper()

	account := &models.Account{ExternalID: externalID}
	if err := NewAccountRepository(db).Create(account); err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	return account
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
