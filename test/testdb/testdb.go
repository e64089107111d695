// Package testdb opens migrated in-memory SQLite databases for tests.
package testdb

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
)

// New creates an in-memory SQLite database with every table migrated. The
// pool is capped at one connection because each connection to ":memory:"
// opens a separate database; concurrent callers queue for it.
func New(t *testing.T) *repository.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	wrapped := &repository.DB{DB: db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return wrapped
}

// NewStore returns a repository store over a fresh database.
func NewStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(New(t))
}

// CreateAccount inserts an account with the given external ID.
func CreateAccount(t *testing.T, store *repository.Store, externalID string) *models.Account {
	t.Helper()

	account := &models.Account{ExternalID: externalID}
	if err := store.Accounts.Create(account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return account
}
