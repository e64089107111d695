package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aimd54/reward-economy/internal/models"
)

// ErrInsufficientBalance is returned when a debit would make a balance negative.
var ErrInsufficientBalance = errors.New("insufficient balance")

// AccountRepository handles account-related database operations.
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account.
func (r *AccountRepository) Create(account *models.Account) error {
	if err := r.db.Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get account by id %d: %w", id, err)
	}
	return &account, nil
}

// GetByExternalID retrieves an account by the identity the auth service vouches for.
func (r *AccountRepository) GetByExternalID(externalID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where("external_id = ?", externalID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to get account by external_id %s: %w", externalID, err)
	}
	return &account, nil
}

// ListActive returns up to limit non-banned accounts with an ID greater than afterID,
// ordered by ID so callers can page through the table.
func (r *AccountRepository) ListActive(afterID uint, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("banned = ? AND id > ?", false, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}
	return accounts, nil
}

// ListPage returns up to limit accounts, banned ones included, with an ID
// greater than afterID, ordered by ID.
func (r *AccountRepository) ListPage(afterID uint, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// RecordCheckin moves the streak state forward only if last_checkin_at still
// equals prev. It returns false when another check-in won the race.
func (r *AccountRepository) RecordCheckin(id uint, prev *time.Time, at time.Time, current, best int) (bool, error) {
	query := r.db.Model(&models.Account{}).Where("id = ?", id)
	if prev == nil {
		query = query.Where("last_checkin_at IS NULL")
	} else {
		query = query.Where("last_checkin_at = ?", *prev)
	}

	result := query.Updates(map[string]interface{}{
		"last_checkin_at": at,
		"streak_current":  current,
		"streak_best":     best,
		"updated_at":      at,
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to record check-in for account %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// LinkWallet sets the wallet address if none is linked yet.
func (r *AccountRepository) LinkWallet(id uint, address string, at time.Time) (bool, error) {
	result := r.db.Model(&models.Account{}).
		Where("id = ? AND wallet_address IS NULL", id).
		Updates(map[string]interface{}{
			"wallet_address": address,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to link wallet for account %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// BalanceChange describes one application of a point delta and the counters
// that move with it.
type BalanceChange struct {
	Delta          int64
	BoxesOpened    int
	TasksCompleted int
}

// ApplyBalanceChange adds the change to the account in a single guarded
// update and returns the resulting balance.
func (r *AccountRepository) ApplyBalanceChange(id uint, change BalanceChange, at time.Time) (int64, error) {
	result := r.db.Model(&models.Account{}).
		Where("id = ? AND balance + ? >= 0", id, change.Delta).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance + ?", change.Delta),
			"boxes_opened":    gorm.Expr("boxes_opened + ?", change.BoxesOpened),
			"tasks_completed": gorm.Expr("tasks_completed + ?", change.TasksCompleted),
			"updated_at":      at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to apply balance change for account %d: %w", id, result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(id); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientBalance
	}

	var balance int64
	if err := r.db.Model(&models.Account{}).Where("id = ?", id).Pluck("balance", &balance).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance for account %d: %w", id, err)
	}
	return balance, nil
}

// SetBanned flips the soft ban flag.
func (r *AccountRepository) SetBanned(id uint, banned bool) error {
	result := r.db.Model(&models.Account{}).Where("id = ?", id).Update("banned", banned)
	if result.Error != nil {
		return fmt.Errorf("failed to update ban flag for account %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func rankingColumn(column string) error {
	switch column {
	case "balance", "streak_best":
		return nil
	default:
		return fmt.Errorf("unsupported ranking column: %s", column)
	}
}

// Top returns non-banned accounts ordered by the given column, highest first.
// Column must be one of balance or streak_best.
func (r *AccountRepository) Top(column string, limit int) ([]models.Account, error) {
	if err := rankingColumn(column); err != nil {
		return nil, err
	}

	var accounts []models.Account
	err := r.db.
		Where("banned = ?", false).
		Order(column + " DESC").
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank accounts by %s: %w", column, err)
	}
	return accounts, nil
}

// CountAbove returns how many non-banned accounts have a strictly greater
// value in column. Column must be one of balance or streak_best.
func (r *AccountRepository) CountAbove(column string, value int64) (int64, error) {
	if err := rankingColumn(column); err != nil {
		return 0, err
	}

	var count int64
	err := r.db.Model(&models.Account{}).
		Where("banned = ? AND "+column+" > ?", false, value).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts above %d by %s: %w", value, column, err)
	}
	return count, nil
}
