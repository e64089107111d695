package repository

import (
	"fmt"

	"github.com/aimd54/reward-economy/internal/models"
)

// LedgerRepository appends and reads ledger entries. Entries are never
// updated or deleted, so the repository exposes no such methods.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append records one balance change.
func (r *LedgerRepository) Append(entry *models.LedgerEntry) error {
	if entry.ID != 0 {
		return fmt.Errorf("ledger entry %d already persisted", entry.ID)
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry for account %d: %w", entry.AccountID, err)
	}
	return nil
}

// ListByAccount returns the most recent entries for an account, newest first.
func (r *LedgerRepository) ListByAccount(accountID uint, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries for account %d: %w", accountID, err)
	}
	return entries, nil
}

// SumByAccount returns the running sum of all entries for an account.
func (r *LedgerRepository) SumByAccount(accountID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.LedgerEntry{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger for account %d: %w", accountID, err)
	}
	return sum, nil
}

// SumByAccounts returns the ledger sum of each listed account. Accounts
// without entries are absent from the map.
func (r *LedgerRepository) SumByAccounts(accountIDs []uint) (map[uint]int64, error) {
	sums := make(map[uint]int64, len(accountIDs))
	if len(accountIDs) == 0 {
		return sums, nil
	}

	var rows []struct {
		AccountID uint
		Total     int64
	}
	err := r.db.Model(&models.LedgerEntry{}).
		Select("account_id, SUM(amount) AS total").
		Where("account_id IN ?", accountIDs).
		Group("account_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger by account: %w", err)
	}

	for _, row := range rows {
		sums[row.AccountID] = row.Total
	}
	return sums, nil
}
