package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/pkg/logger"
	"github.com/aimd54/reward-economy/test/testdb"
)

func setupService(t *testing.T) (*Service, *repository.Store) {
	t.Helper()
	store := testdb.NewStore(t)
	return NewService(store, logger.Nop()), store
}

func createTask(t *testing.T, store *repository.Store, task *models.Task) *models.Task {
	t.Helper()
	require.NoError(t, store.Tasks.Create(task))
	return task
}

func claim(svc *Service, store *repository.Store, task *models.Task, account *models.Account, at time.Time) (int64, error) {
	var points int64
	err := store.Transaction(context.Background(), func(tx *repository.Store) error {
		var err error
		points, err = svc.Claim(tx, task, account, `{"proof":"ok"}`, multiplier.Baseline, at)
		return err
	})
	return points, err
}

func TestClaim_CooldownScenario(t *testing.T) {
	svc, store := setupService(t)
	account := testdb.CreateAccount(t, store, "alice")
	task := createTask(t, store, &models.Task{
		Code: "share", Title: "Share", PointsReward: 20, Active: true,
		Repeatable: true, RepeatIntervalMinutes: 15,
	})

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	points, err := claim(svc, store, task, account, start)
	require.NoError(t, err)
	assert.Equal(t, int64(20), points)

	_, err = claim(svc, store, task, account, start.Add(10*time.Minute))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeOnCooldown))
	next := apperrors.NextAvailableAt(err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(start.Add(15*time.Minute)))

	_, err = claim(svc, store, task, account, start.Add(16*time.Minute))
	require.NoError(t, err)

	completions, err := store.Tasks.ListCompletions(account.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	assert.Equal(t, `{"proof":"ok"}`, completions[0].VerificationPayload)
}

func TestClaim_MaxCompletions(t *testing.T) {
	svc, store := setupService(t)
	account := testdb.CreateAccount(t, store, "alice")
	limit := 3
	task := createTask(t, store, &models.Task{
		Code: "invite", Title: "Invite", PointsReward: 10, Active: true,
		Repeatable: true, MaxCompletions: &limit,
	})

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	successes := 0
	for i := 0; i < 6; i++ {
		if _, err := claim(svc, store, task, account, start.Add(time.Duration(i)*time.Minute)); err == nil {
			successes++
		} else {
			assert.True(t, apperrors.Is(err, apperrors.CodeMaxCompletions))
		}
	}
	assert.Equal(t, 3, successes)
}

func TestClaim_RollbackLeavesNoCompletion(t *testing.T) {
	svc, store := setupService(t)
	account := testdb.CreateAccount(t, store, "alice")
	task := createTask(t, store, &models.Task{Code: "once", Title: "Once", PointsReward: 10, Active: true})

	_, err := claim(svc, store, task, account, time.Now().UTC())
	require.NoError(t, err)

	_, err = claim(svc, store, task, account, time.Now().UTC())
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyCompleted))

	completions, err := store.Tasks.ListCompletions(account.ID, task.ID)
	require.NoError(t, err)
	assert.Len(t, completions, 1)
}

func TestLoad(t *testing.T) {
	svc, store := setupService(t)
	task := createTask(t, store, &models.Task{Code: "once", Title: "Once", PointsReward: 10, Active: true})

	loaded, err := svc.Load(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "once", loaded.Code)

	_, err = svc.Load(context.Background(), 404)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestList(t *testing.T) {
	svc, store := setupService(t)
	account := testdb.CreateAccount(t, store, "alice")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-time.Hour)

	once := createTask(t, store, &models.Task{Code: "once", Title: "Once", PointsReward: 10, Active: true})
	createTask(t, store, &models.Task{Code: "repeat", Title: "Repeat", PointsReward: 5, Active: true, Repeatable: true, RepeatIntervalMinutes: 30})
	createTask(t, store, &models.Task{Code: "old", Title: "Old", PointsReward: 5, Active: true, AvailableUntil: &ended})

	_, err := claim(svc, store, once, account, now.Add(-time.Minute))
	require.NoError(t, err)

	items, err := svc.List(context.Background(), account.ID, now)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "once", items[0].Task.Code)
	assert.Equal(t, 1, items[0].CompletionCount)
	assert.Nil(t, items[0].NextAvailableAt)

	assert.Equal(t, "repeat", items[1].Task.Code)
	require.NotNil(t, items[1].NextAvailableAt)
	assert.True(t, items[1].NextAvailableAt.Equal(now))
}
