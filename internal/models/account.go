// Package models defines domain models for the reward economy.
package models

import (
	"time"
)

// Account is one end user's game state. Balance is only ever changed together
// with a LedgerEntry in the same transaction.
type Account struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ExternalID     string     `gorm:"uniqueIndex;not null;size:255" json:"external_id"`
	Balance        int64      `gorm:"not null;default:0" json:"balance"`
	StreakCurrent  int        `gorm:"not null;default:0" json:"streak_current"`
	StreakBest     int        `gorm:"not null;default:0" json:"streak_best"`
	LastCheckinAt  *time.Time `json:"last_checkin_at"`
	BoxesOpened    int        `gorm:"not null;default:0" json:"boxes_opened"`
	TasksCompleted int        `gorm:"not null;default:0" json:"tasks_completed"`
	WalletAddress  *string    `gorm:"size:128" json:"wallet_address,omitempty"`
	ReferredBy     *uint      `gorm:"index" json:"referred_by,omitempty"`
	Banned         bool       `gorm:"not null;default:false;index" json:"banned"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Account model.
func (Account) TableName() string {
	return "accounts"
}

// HasWallet reports whether an external wallet is linked.
func (a *Account) HasWallet() bool {
	return a.WalletAddress != nil && *a.WalletAddress != ""
}

// LedgerEntry is an immutable record of one balance change.
type LedgerEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccountID    uint      `gorm:"not null;index:idx_ledger_account_created" json:"account_id"`
	Amount       int64     `gorm:"not null" json:"amount"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Source       string    `gorm:"size:32;not null;index" json:"source"`
	SourceRef    *string   `gorm:"size:64" json:"source_ref,omitempty"`
	Description  string    `gorm:"type:text" json:"description"`
	CreatedAt    time.Time `gorm:"not null;index:idx_ledger_account_created" json:"created_at"`
}

// TableName specifies the table name for LedgerEntry model.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Ledger source constants.
const (
	SourceCheckin     = "checkin"
	SourceBox         = "box"
	SourceTask        = "task"
	SourceWalletBonus = "wallet_bonus"
	SourceReferral    = "referral"
)
