package tasks

import (
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
)

// Check applies the eligibility rules in order and returns the first
// rejection. progress is nil when the account has never completed the task.
func Check(task *models.Task, account *models.Account, progress *models.TaskProgress, now time.Time) error {
	if task == nil {
		return apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "task not found")
	}
	if !task.Available(now) {
		return apperrors.New(apperrors.KindPrecondition, apperrors.CodeInactive, "task is not available")
	}

	if task.RequiresWallet && !account.HasWallet() {
		return apperrors.New(apperrors.KindPrecondition, apperrors.CodeWalletRequired, "task requires a linked wallet")
	}

	count := 0
	if progress != nil {
		count = progress.CompletionCount
	}

	if task.MaxCompletions != nil && count >= *task.MaxCompletions {
		return apperrors.New(apperrors.KindConflict, apperrors.CodeMaxCompletions, "task completion limit reached")
	}

	if count == 0 {
		return nil
	}

	if !task.Repeatable {
		return apperrors.New(apperrors.KindConflict, apperrors.CodeAlreadyCompleted, "task already completed")
	}

	if cooldown := task.Cooldown(); cooldown > 0 {
		next := progress.LastCompletedAt.Add(cooldown)
		if now.Before(next) {
			return apperrors.Retryable(apperrors.CodeOnCooldown, "task is on cooldown", next)
		}
	}

	return nil
}

// NextAvailable returns when the account may next complete the task, or nil
// when it can never complete it again.
func NextAvailable(task *models.Task, progress *models.TaskProgress, now time.Time) *time.Time {
	if progress == nil || progress.CompletionCount == 0 {
		return &now
	}
	if !task.Repeatable {
		return nil
	}
	if task.MaxCompletions != nil && progress.CompletionCount >= *task.MaxCompletions {
		return nil
	}
	next := progress.LastCompletedAt.Add(task.Cooldown())
	if next.Before(now) {
		next = now
	}
	return &next
}
