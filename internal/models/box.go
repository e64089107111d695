package models

import "time"

// RewardBox is a time-boxed reward. It leaves the pending state exactly once,
// either opened by its owner or expired by the sweep.
type RewardBox struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	AccountID         uint       `gorm:"not null;uniqueIndex:idx_box_account_slot;index" json:"account_id"`
	Slot              time.Time  `gorm:"not null;uniqueIndex:idx_box_account_slot" json:"slot"`
	Rarity            string     `gorm:"size:16;not null" json:"rarity"`
	BasePoints        int64      `gorm:"not null" json:"base_points"`
	GeneratedAt       time.Time  `gorm:"not null;index" json:"generated_at"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	OpenedAt          *time.Time `json:"opened_at"`
	Expired           bool       `gorm:"not null;default:false;index" json:"expired"`
	MultiplierApplied *float64   `json:"multiplier_applied"`
	FinalPoints       *int64     `json:"final_points"`
}

// TableName specifies the table name for RewardBox model.
func (RewardBox) TableName() string {
	return "reward_boxes"
}

// BoxState is the lifecycle state of a reward box.
type BoxState string

// BoxState constants.
const (
	BoxStatePending BoxState = "pending"
	BoxStateOpened  BoxState = "opened"
	BoxStateExpired BoxState = "expired"
)

// State returns the box's lifecycle state as stored. A pending box whose
// expiry has passed is still pending until something marks it expired.
func (b *RewardBox) State() BoxState {
	switch {
	case b.OpenedAt != nil:
		return BoxStateOpened
	case b.Expired:
		return BoxStateExpired
	default:
		return BoxStatePending
	}
}
