package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aimd54/reward-economy/internal/models"
)

// BoxRepository handles reward box persistence. Every state change out of
// pending is a conditional update, so a box is opened or expired exactly once.
type BoxRepository struct {
	db *DB
}

// NewBoxRepository creates a new box repository.
func NewBoxRepository(db *DB) *BoxRepository {
	return &BoxRepository{db: db}
}

// CreateIfSlotFree inserts the box unless the account already has one for
// the same slot. It reports whether a row was inserted.
func (r *BoxRepository) CreateIfSlotFree(box *models.RewardBox) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "slot"}},
		DoNothing: true,
	}).Create(box)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create box for account %d: %w", box.AccountID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// GetByID retrieves a box by ID.
func (r *BoxRepository) GetByID(id uint) (*models.RewardBox, error) {
	var box models.RewardBox
	if err := r.db.First(&box, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get box %d: %w", id, err)
	}
	return &box, nil
}

// CountGeneratedSince counts an account's boxes generated at or after since.
func (r *BoxRepository) CountGeneratedSince(accountID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.RewardBox{}).
		Where("account_id = ? AND generated_at >= ?", accountID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count boxes for account %d: %w", accountID, err)
	}
	return count, nil
}

// MarkOpened transitions a pending, unexpired box owned by accountID to opened.
// It returns false when the box was already opened, expired, or is past its expiry.
func (r *BoxRepository) MarkOpened(id, accountID uint, at time.Time, multiplier float64, finalPoints int64) (bool, error) {
	result := r.db.Model(&models.RewardBox{}).
		Where("id = ? AND account_id = ? AND opened_at IS NULL AND expired = ? AND expires_at > ?", id, accountID, false, at).
		Updates(map[string]interface{}{
			"opened_at":          at,
			"multiplier_applied": multiplier,
			"final_points":       finalPoints,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to open box %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkExpired transitions a single pending box whose expiry has passed.
func (r *BoxRepository) MarkExpired(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.RewardBox{}).
		Where("id = ? AND opened_at IS NULL AND expired = ? AND expires_at <= ?", id, false, now).
		Update("expired", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to expire box %d: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// ExpireDue marks every pending box whose expiry has passed and returns how
// many rows changed.
func (r *BoxRepository) ExpireDue(now time.Time) (int64, error) {
	result := r.db.Model(&models.RewardBox{}).
		Where("opened_at IS NULL AND expired = ? AND expires_at <= ?", false, now).
		Update("expired", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire due boxes: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListPending returns an account's openable boxes, soonest expiry first.
func (r *BoxRepository) ListPending(accountID uint, now time.Time) ([]models.RewardBox, error) {
	var boxes []models.RewardBox
	err := r.db.
		Where("account_id = ? AND opened_at IS NULL AND expired = ? AND expires_at > ?", accountID, false, now).
		Order("expires_at ASC").
		Find(&boxes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending boxes for account %d: %w", accountID, err)
	}
	return boxes, nil
}
