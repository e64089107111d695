package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aimd54/reward-economy/internal/models"
)

// TaskRepository handles tasks, their completions, and per-account progress.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task.
func (r *TaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// Upsert inserts the task or updates the task with the same code.
func (r *TaskRepository) Upsert(task *models.Task) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "points_reward", "repeatable", "repeat_interval_minutes",
			"max_completions", "requires_wallet", "active", "available_from", "available_until", "updated_at",
		}),
	}).Create(task).Error
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return &task, nil
}

// GetByCode retrieves a task by its catalog code.
func (r *TaskRepository) GetByCode(code string) (*models.Task, error) {
	var task models.Task
	if err := r.db.Where("code = ?", code).First(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", code, err)
	}
	return &task, nil
}

// ListActive returns the tasks flagged active. Window checks are left to the caller.
func (r *TaskRepository) ListActive() ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("active = ?", true).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetProgress returns the progress row for an account and task, or nil if
// the account has never completed it.
func (r *TaskRepository) GetProgress(accountID, taskID uint) (*models.TaskProgress, error) {
	var progress []models.TaskProgress
	err := r.db.
		Where("account_id = ? AND task_id = ?", accountID, taskID).
		Limit(1).
		Find(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for account %d task %d: %w", accountID, taskID, err)
	}
	if len(progress) == 0 {
		return nil, nil
	}
	return &progress[0], nil
}

// ListProgress returns all progress rows of an account keyed by task ID.
func (r *TaskRepository) ListProgress(accountID uint) (map[uint]models.TaskProgress, error) {
	var rows []models.TaskProgress
	if err := r.db.Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list progress for account %d: %w", accountID, err)
	}
	progress := make(map[uint]models.TaskProgress, len(rows))
	for _, row := range rows {
		progress[row.TaskID] = row
	}
	return progress, nil
}

// AdvanceProgress records one more completion, provided the progress row
// still matches prev. A nil prev means no row existed when it was read.
// It returns false when a concurrent completion got there first.
func (r *TaskRepository) AdvanceProgress(accountID, taskID uint, prev *models.TaskProgress, at time.Time) (bool, error) {
	if prev == nil {
		row := &models.TaskProgress{
			AccountID:       accountID,
			TaskID:          taskID,
			CompletionCount: 1,
			LastCompletedAt: at,
		}
		result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if result.Error != nil {
			return false, fmt.Errorf("failed to create progress for account %d task %d: %w", accountID, taskID, result.Error)
		}
		return result.RowsAffected == 1, nil
	}

	result := r.db.Model(&models.TaskProgress{}).
		Where("account_id = ? AND task_id = ? AND completion_count = ?", accountID, taskID, prev.CompletionCount).
		Updates(map[string]interface{}{
			"completion_count":  prev.CompletionCount + 1,
			"last_completed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance progress for account %d task %d: %w", accountID, taskID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CreateCompletion appends a completion record.
func (r *TaskRepository) CreateCompletion(completion *models.TaskCompletion) error {
	if err := r.db.Create(completion).Error; err != nil {
		return fmt.Errorf("failed to record completion of task %d: %w", completion.TaskID, err)
	}
	return nil
}

// ListCompletions returns an account's completions of a task, newest first.
func (r *TaskRepository) ListCompletions(accountID, taskID uint) ([]models.TaskCompletion, error) {
	var completions []models.TaskCompletion
	err := r.db.
		Where("account_id = ? AND task_id = ?", accountID, taskID).
		Order("completed_at DESC").
		Find(&completions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	return completions, nil
}
