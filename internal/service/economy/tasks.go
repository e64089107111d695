package economy

import (
	"context"
	"strconv"

	"github.com/aimd54/reward-economy/internal/apperrors"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
	"github.com/aimd54/reward-economy/internal/service/tasks"
)

// MaxPayloadLength bounds the verification payload stored with a completion.
const MaxPayloadLength = 4096

// CompleteTaskResult is the outcome of a task completion.
type CompleteTaskResult struct {
	PointsAwarded       int64    `json:"points_awarded"`
	NewBalance          int64    `json:"new_balance"`
	TotalTasksCompleted int      `json:"total_tasks_completed"`
	EarnedBadges        []string `json:"earned_badges"`
}

// CompleteTask verifies a task claim and credits its reward. The payload is
// stored verbatim.
func (s *Service) CompleteTask(ctx context.Context, accountID, taskID uint, payload string) (*CompleteTaskResult, error) {
	const op = "complete_task"
	now := s.now()

	if len(payload) > MaxPayloadLength {
		return nil, s.reject(op, accountID, apperrors.Validation("verification payload is too long"))
	}

	if _, err := s.loadAccount(s.store.WithContext(ctx), accountID); err != nil {
		return nil, s.reject(op, accountID, err)
	}

	task, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	result := &CompleteTaskResult{}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		// Wallet state is read inside the transaction that claims the task.
		account, err := tx.Accounts.GetByID(accountID)
		if err != nil {
			return apperrors.Persistence("failed to load account", err)
		}

		m, err := s.multiplierFor(tx, accountID, now)
		if err != nil {
			return err
		}

		result.PointsAwarded, err = s.tasks.Claim(tx, task, account, payload, m, now)
		if err != nil {
			return err
		}

		result.NewBalance, err = s.apply(tx, accountID, credit{
			change:      repository.BalanceChange{Delta: result.PointsAwarded, TasksCompleted: 1},
			source:      models.SourceTask,
			sourceRef:   "task:" + strconv.FormatUint(uint64(task.ID), 10),
			description: task.Title,
		}, now)
		if err != nil {
			return err
		}

		result.TotalTasksCompleted = account.TasksCompleted + 1
		result.EarnedBadges, err = s.evaluate(ctx, tx, accountID, badges.EventTaskCompleted, now)
		return err
	})
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	prommetrics.RecordTaskCompleted(task.Code)
	prommetrics.RecordPointsAwarded(models.SourceTask, result.PointsAwarded)

	s.log.Info().
		Uint("account_id", accountID).
		Str("task", task.Code).
		Int64("points", result.PointsAwarded).
		Msg("Task completed")

	return result, nil
}

// ListTasks returns the currently available tasks with the account's progress.
func (s *Service) ListTasks(ctx context.Context, accountID uint) ([]tasks.Availability, error) {
	return s.tasks.List(ctx, accountID, s.now())
}
