package models

import "time"

// Task is a catalog definition of a completable challenge.
type Task struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Code                  string     `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Title                 string     `gorm:"not null;size:255" json:"title"`
	Description           string     `gorm:"type:text" json:"description"`
	PointsReward          int64      `gorm:"not null" json:"points_reward"`
	Repeatable            bool       `gorm:"not null;default:false" json:"repeatable"`
	RepeatIntervalMinutes int        `gorm:"not null;default:0" json:"repeat_interval_minutes"`
	MaxCompletions        *int       `json:"max_completions,omitempty"`
	RequiresWallet        bool       `gorm:"not null;default:false" json:"requires_wallet"`
	Active                bool       `gorm:"not null;index" json:"active"`
	AvailableFrom         *time.Time `json:"available_from,omitempty"`
	AvailableUntil        *time.Time `json:"available_until,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Task model.
func (Task) TableName() string {
	return "tasks"
}

// Cooldown returns the minimum spacing between repeat completions.
func (t *Task) Cooldown() time.Duration {
	return time.Duration(t.RepeatIntervalMinutes) * time.Minute
}

// Available reports whether the task is active and inside its window at now.
func (t *Task) Available(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.AvailableFrom != nil && now.Before(*t.AvailableFrom) {
		return false
	}
	if t.AvailableUntil != nil && !now.Before(*t.AvailableUntil) {
		return false
	}
	return true
}

// TaskCompletion is a historical record of one completed task.
type TaskCompletion struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	AccountID           uint      `gorm:"not null;index:idx_completion_account_task" json:"account_id"`
	TaskID              uint      `gorm:"not null;index:idx_completion_account_task" json:"task_id"`
	PointsAwarded       int64     `gorm:"not null" json:"points_awarded"`
	VerificationPayload string    `gorm:"type:text" json:"verification_payload"`
	CompletedAt         time.Time `gorm:"not null" json:"completed_at"`
}

// TableName specifies the table name for TaskCompletion model.
func (TaskCompletion) TableName() string {
	return "task_completions"
}

// TaskProgress holds per-account completion counters for a task. Claims
// advance it with a conditional write on CompletionCount.
type TaskProgress struct {
	AccountID       uint      `gorm:"primaryKey" json:"account_id"`
	TaskID          uint      `gorm:"primaryKey" json:"task_id"`
	CompletionCount int       `gorm:"not null;default:0" json:"completion_count"`
	LastCompletedAt time.Time `gorm:"not null" json:"last_completed_at"`
}

// TableName specifies the table name for TaskProgress model.
func (TaskProgress) TableName() string {
	return "task_progress"
}
