// Package tasks verifies task claims against their eligibility rules.
package tasks

import (
	"context"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// Service validates and records task completions.
type Service struct {
	store *repository.Store
	log   *logger.Logger
}

// NewService creates a task service.
func NewService(store *repository.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Load returns the task or a not_found rejection.
func (s *Service) Load(ctx context.Context, taskID uint) (*models.Task, error) {
	task, err := s.store.WithContext(ctx).Tasks.GetByID(taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "task not found")
		}
		return nil, apperrors.Persistence("failed to load task", err)
	}
	return task, nil
}

// Claim checks eligibility against the progress row read inside tx, then
// advances it conditionally and records the completion. The returned points
// are the reward scaled by m. A lost race is reported as already_completed.
func (s *Service) Claim(tx *repository.Store, task *models.Task, account *models.Account, payload string, m multiplier.Multiplier, now time.Time) (int64, error) {
	progress, err := tx.Tasks.GetProgress(account.ID, task.ID)
	if err != nil {
		return 0, apperrors.Persistence("failed to load task progress", err)
	}

	if err := Check(task, account, progress, now); err != nil {
		return 0, err
	}

	ok, err := tx.Tasks.AdvanceProgress(account.ID, task.ID, progress, now)
	if err != nil {
		return 0, apperrors.Persistence("failed to record task progress", err)
	}
	if !ok {
		return 0, apperrors.New(apperrors.KindConflict, apperrors.CodeAlreadyCompleted, "task completion already recorded")
	}

	points := m.Apply(task.PointsReward)
	completion := &models.TaskCompletion{
		AccountID:           account.ID,
		TaskID:              task.ID,
		PointsAwarded:       points,
		VerificationPayload: payload,
		CompletedAt:         now,
	}
	if err := tx.Tasks.CreateCompletion(completion); err != nil {
		return 0, apperrors.Persistence("failed to record task completion", err)
	}

	s.log.Debug().
		Uint("account_id", account.ID).
		Str("task", task.Code).
		Int64("points", points).
		Msg("Task completion recorded")

	return points, nil
}

// Availability is a task as seen by one account.
type Availability struct {
	Task            models.Task `json:"task"`
	CompletionCount int         `json:"completion_count"`
	NextAvailableAt *time.Time  `json:"next_available_at"`
}

// List returns the currently available tasks annotated with the account's progress.
func (s *Service) List(ctx context.Context, accountID uint, now time.Time) ([]Availability, error) {
	store := s.store.WithContext(ctx)

	tasks, err := store.Tasks.ListActive()
	if err != nil {
		return nil, apperrors.Persistence("failed to list tasks", err)
	}
	progress, err := store.Tasks.ListProgress(accountID)
	if err != nil {
		return nil, apperrors.Persistence("failed to list task progress", err)
	}

	out := make([]Availability, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if !task.Available(now) {
			continue
		}

		item := Availability{Task: *task}
		var p *models.TaskProgress
		if row, ok := progress[task.ID]; ok {
			p = &row
			item.CompletionCount = row.CompletionCount
		}
		item.NextAvailableAt = NextAvailable(task, p, now)
		out = append(out, item)
	}
	return out, nil
}
