package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_GetByExternalID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)

	created := createTestAccount(t, db, "tg:1001")

	account, err := repo.GetByExternalID("tg:1001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.Zero(t, account.Balance)
	assert.Nil(t, account.LastCheckinAt)

	_, err = repo.GetByExternalID("tg:missing")
	assert.True(t, IsNotFound(err))
}

func TestAccountRepository_RecordCheckin(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)
	account := createTestAccount(t, db, "alice")

	ok, err := repo.RecordCheckin(account.ID, nil, testNow, 1, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second writer still holding the nil snapshot loses.
	ok, err = repo.RecordCheckin(account.ID, nil, testNow.Add(time.Minute), 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastCheckinAt)
	assert.True(t, reloaded.LastCheckinAt.Equal(testNow))

	next := testNow.Add(24 * time.Hour)
	ok, err = repo.RecordCheckin(account.ID, reloaded.LastCheckinAt, next, 2, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err = repo.GetByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.StreakCurrent)
	assert.Equal(t, 2, reloaded.StreakBest)
}

func TestAccountRepository_ApplyBalanceChange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)
	account := createTestAccount(t, db, "bob")

	balance, err := repo.ApplyBalanceChange(account.ID, BalanceChange{Delta: 120, BoxesOpened: 1}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(120), balance)

	balance, err = repo.ApplyBalanceChange(account.ID, BalanceChange{Delta: -20}, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	_, err = repo.ApplyBalanceChange(account.ID, BalanceChange{Delta: -101}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	reloaded, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reloaded.Balance)
	assert.Equal(t, 1, reloaded.BoxesOpened)

	_, err = repo.ApplyBalanceChange(999, BalanceChange{Delta: 1}, testNow)
	assert.True(t, IsNotFound(err))
}

func TestAccountRepository_LinkWallet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)
	account := createTestAccount(t, db, "carol")

	ok, err := repo.LinkWallet(account.ID, "EQC123", testNow)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.LinkWallet(account.ID, "EQC456", testNow)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	require.True(t, reloaded.HasWallet())
	assert.Equal(t, "EQC123", *reloaded.WalletAddress)
}

func TestAccountRepository_ListActiveAndTop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)

	a := createTestAccount(t, db, "a")
	b := createTestAccount(t, db, "b")
	c := createTestAccount(t, db, "c")

	_, err := repo.ApplyBalanceChange(a.ID, BalanceChange{Delta: 10}, testNow)
	require.NoError(t, err)
	_, err = repo.ApplyBalanceChange(b.ID, BalanceChange{Delta: 30}, testNow)
	require.NoError(t, err)
	_, err = repo.ApplyBalanceChange(c.ID, BalanceChange{Delta: 50}, testNow)
	require.NoError(t, err)
	require.NoError(t, repo.SetBanned(c.ID, true))

	active, err := repo.ListActive(0, 10)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, a.ID, active[0].ID)

	page, err := repo.ListActive(a.ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)

	all, err := repo.ListPage(a.ID, 10)
	require.NoError(t, err)
	require.Len(t, all, 2, "ListPage keeps banned accounts")
	assert.Equal(t, c.ID, all[1].ID)

	top, err := repo.Top("balance", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, b.ID, top[0].ID)

	above, err := repo.CountAbove("balance", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), above, "banned accounts are not ranked")

	_, err = repo.Top("external_id; DROP TABLE accounts", 10)
	assert.Error(t, err)
	_, err = repo.CountAbove("external_id", 0)
	assert.Error(t, err)
}
