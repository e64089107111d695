package mocks

import (
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/aimd54/reward-economy/internal/models"
)

// MockAccountRepository is a simple mock for the account ranking queries.
type MockAccountRepository struct {
	Accounts map[uint]*models.Account

	TopFunc        func(column string, limit int) ([]models.Account, error)
	CountAboveFunc func(column string, value int64) (int64, error)
}

// NewMockAccountRepository returns a repository holding the given accounts.
func NewMockAccountRepository(accounts ...models.Account) *MockAccountRepository {
	m := &MockAccountRepository{Accounts: make(map[uint]*models.Account)}
	for i := range accounts {
		a := accounts[i]
		m.Accounts[a.ID] = &a
	}
	return m
}

func (m *MockAccountRepository) GetByID(id uint) (*models.Account, error) {
	account, ok := m.Accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, gorm.ErrRecordNotFound)
	}
	return account, nil
}

func (m *MockAccountRepository) Top(column string, limit int) ([]models.Account, error) {
	if m.TopFunc != nil {
		return m.TopFunc(column, limit)
	}

	ranked := make([]models.Account, 0, len(m.Accounts))
	for _, a := range m.Accounts {
		if !a.Banned {
			ranked = append(ranked, *a)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := mockScore(&ranked[i], column), mockScore(&ranked[j], column)
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MockAccountRepository) CountAbove(column string, value int64) (int64, error) {
	if m.CountAboveFunc != nil {
		return m.CountAboveFunc(column, value)
	}

	var count int64
	for _, a := range m.Accounts {
		if !a.Banned && mockScore(a, column) > value {
			count++
		}
	}
	return count, nil
}

func mockScore(a *models.Account, column string) int64 {
	if column == "streak_best" {
		return int64(a.StreakBest)
	}
	return a.Balance
}
