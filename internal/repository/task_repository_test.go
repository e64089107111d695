package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/reward-economy/internal/models"
)

func createTestTask(t *testing.T, repo *TaskRepository, code string) *models.Task {
	t.Helper()

	task := &models.Task{
		Code:                  code,
		Title:                 code,
		PointsReward:          25,
		Repeatable:            true,
		RepeatIntervalMinutes: 15,
		Active:                true,
	}
	require.NoError(t, repo.Create(task))
	return task
}

func TestTaskRepository_AdvanceProgress(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	account := createTestAccount(t, db, "alice")
	task := createTestTask(t, repo, "share")

	progress, err := repo.GetProgress(account.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, progress)

	ok, err := repo.AdvanceProgress(account.ID, task.ID, nil, testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale nil snapshot loses against the existing row.
	ok, err = repo.AdvanceProgress(account.ID, task.ID, nil, testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	progress, err = repo.GetProgress(account.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, 1, progress.CompletionCount)

	stale := *progress
	ok, err = repo.AdvanceProgress(account.ID, task.ID, progress, testNow.Add(20*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdvanceProgress(account.ID, task.ID, &stale, testNow.Add(20*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := repo.ListProgress(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, all[task.ID].CompletionCount)
}

func TestTaskRepository_UpsertAndListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)

	createTestTask(t, repo, "share")
	require.NoError(t, repo.Upsert(&models.Task{Code: "share", Title: "Share the bot", PointsReward: 40, Active: false}))
	require.NoError(t, repo.Upsert(&models.Task{Code: "follow", Title: "Follow", PointsReward: 10, Active: true}))

	share, err := repo.GetByCode("share")
	require.NoError(t, err)
	assert.Equal(t, int64(40), share.PointsReward)
	assert.False(t, share.Active)

	active, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "follow", active[0].Code)
}

func TestTaskRepository_Completions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaskRepository(db)
	account := createTestAccount(t, db, "alice")
	task := createTestTask(t, repo, "share")

	require.NoError(t, repo.CreateCompletion(&models.TaskCompletion{AccountID: account.ID, TaskID: task.ID, PointsAwarded: 25, CompletedAt: testNow}))
	require.NoError(t, repo.CreateCompletion(&models.TaskCompletion{AccountID: account.ID, TaskID: task.ID, PointsAwarded: 28, CompletedAt: testNow.Add(time.Hour)}))

	completions, err := repo.ListCompletions(account.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	assert.Equal(t, int64(28), completions[0].PointsAwarded)
}
