package models

import (
	"encoding/json"
	"time"
)

// Badge is a catalog definition. MultiplierBonus is the contribution above the
// 1.0 baseline, so a bonus of 0.2 adds +0.2x.
type Badge struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Code            string     `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Name            string     `gorm:"not null;size:255" json:"name"`
	Description     string     `gorm:"type:text" json:"description"`
	Rarity          string     `gorm:"size:16;not null;default:'common'" json:"rarity"`
	MultiplierBonus float64    `gorm:"not null;default:0" json:"multiplier_bonus"`
	Category        string     `gorm:"size:32;not null;index" json:"category"`
	Threshold       int        `gorm:"not null;default:0" json:"threshold"`
	ActiveFrom      *time.Time `json:"active_from,omitempty"`
	ActiveUntil     *time.Time `json:"active_until,omitempty"`
	MaxSupply       *int       `json:"max_supply,omitempty"`
	CurrentSupply   int        `gorm:"not null;default:0" json:"current_supply"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// InWindow reports whether t falls inside the badge's activity window.
// A missing bound is open.
func (b *Badge) InWindow(t time.Time) bool {
	if b.ActiveFrom != nil && t.Before(*b.ActiveFrom) {
		return false
	}
	if b.ActiveUntil != nil && !t.Before(*b.ActiveUntil) {
		return false
	}
	return true
}

// SoldOut reports whether the badge has reached its global supply.
func (b *Badge) SoldOut() bool {
	return b.MaxSupply != nil && b.CurrentSupply >= *b.MaxSupply
}

// EarnedBadge links one account to one badge.
type EarnedBadge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_earned_account_badge" json:"account_id"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_earned_account_badge;index" json:"badge_id"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	EarnedAt  time.Time `gorm:"not null" json:"earned_at"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
}

// TableName specifies the table name for EarnedBadge model.
func (EarnedBadge) TableName() string {
	return "earned_badges"
}

// Badge category constants. The category selects which account counter is
// compared against Badge.Threshold.
const (
	BadgeCategoryStreak = "streak"
	BadgeCategoryWallet = "wallet"
	BadgeCategoryBoxes  = "boxes"
	BadgeCategoryTasks  = "tasks"
)

// Rarity constants shared by badges and boxes.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Configuration represents a configuration key-value pair.
type Configuration struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Key       string          `gorm:"uniqueIndex;not null;size:255" json:"key"`
	Value     json.RawMessage `gorm:"type:jsonb;not null" json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Configuration model.
func (Configuration) TableName() string {
	return "configuration"
}
