package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/reward-economy/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// Create creates a new badge in the database.
func (r *BadgeRepository) Create(badge *models.Badge) error {
	return r.db.Create(badge).Error
}

// GetByCode retrieves a badge by its catalog code.
func (r *BadgeRepository) GetByCode(code string) (*models.Badge, error) {
	var badge models.Badge
	err := r.db.Where("code = ?", code).First(&badge).Error
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetAll retrieves all badges from the database.
func (r *BadgeRepository) GetAll() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("id ASC").Find(&badges).Error
	return badges, err
}

// GetByCategory retrieves the badges of one category, lowest threshold first.
func (r *BadgeRepository) GetByCategory(category string) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.
		Where("category = ?", category).
		Order("threshold ASC").
		Order("id ASC").
		Find(&badges).Error
	return badges, err
}

// Upsert inserts the badge or updates the catalog fields of the badge with
// the same code. CurrentSupply is never overwritten.
func (r *BadgeRepository) Upsert(badge *models.Badge) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "rarity", "multiplier_bonus", "category",
			"threshold", "active_from", "active_until", "max_supply", "updated_at",
		}),
	}).Create(badge).Error
}

// AwardBadge grants a badge to an account, consuming one unit of supply when
// the badge is limited. It returns false without error when the account
// already holds the badge or the supply is exhausted.
func (r *BadgeRepository) AwardBadge(accountID uint, badge *models.Badge, at time.Time) (bool, error) {
	exists, err := r.HasEarnedBadge(accountID, badge.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if badge.MaxSupply != nil {
		claimed, err := r.claimSupply(badge.ID)
		if err != nil {
			return false, err
		}
		if !claimed {
			return false, nil
		}
	}

	earned := &models.EarnedBadge{
		AccountID: accountID,
		BadgeID:   badge.ID,
		EarnedAt:  at,
		Active:    true,
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(earned)
	if result.Error != nil {
		return false, fmt.Errorf("failed to award badge %s to account %d: %w", badge.Code, accountID, result.Error)
	}

	if result.RowsAffected == 0 {
		if badge.MaxSupply != nil {
			if err := r.releaseSupply(badge.ID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	return true, nil
}

func (r *BadgeRepository) claimSupply(badgeID uint) (bool, error) {
	result := r.db.Model(&models.Badge{}).
		Where("id = ? AND (max_supply IS NULL OR current_supply < max_supply)", badgeID).
		Update("current_supply", gorm.Expr("current_supply + 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim supply for badge %d: %w", badgeID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *BadgeRepository) releaseSupply(badgeID uint) error {
	err := r.db.Model(&models.Badge{}).
		Where("id = ? AND current_supply > 0", badgeID).
		Update("current_supply", gorm.Expr("current_supply - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to release supply for badge %d: %w", badgeID, err)
	}
	return nil
}

// GetAccountBadges retrieves all badges earned by an account with badge details preloaded.
func (r *BadgeRepository) GetAccountBadges(accountID uint) ([]models.EarnedBadge, error) {
	var earned []models.EarnedBadge
	err := r.db.
		Where("account_id = ?", accountID).
		Preload("Badge").
		Order("earned_at DESC").
		Order("id DESC").
		Find(&earned).Error
	return earned, err
}

// GetActiveBadges retrieves the active badges of an account, the ones that
// contribute to its multiplier.
func (r *BadgeRepository) GetActiveBadges(accountID uint) ([]models.EarnedBadge, error) {
	var earned []models.EarnedBadge
	err := r.db.
		Where("account_id = ? AND active = ?", accountID, true).
		Preload("Badge").
		Order("id ASC").
		Find(&earned).Error
	return earned, err
}

// GetAccountBadgeCount returns the number of badges an account has earned.
func (r *BadgeRepository) GetAccountBadgeCount(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.EarnedBadge{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

// HasEarnedBadge checks if an account has earned a specific badge.
func (r *BadgeRepository) HasEarnedBadge(accountID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.EarnedBadge{}).
		Where("account_id = ? AND badge_id = ?", accountID, badgeID).
		Count(&count).Error
	return count > 0, err
}
