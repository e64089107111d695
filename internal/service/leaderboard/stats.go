package leaderboard

import (
	"context"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
)

// AccountStats represents comprehensive statistics for an account.
type AccountStats struct {
	AccountID      uint           `json:"account_id"`
	ExternalID     string         `json:"external_id"`
	Balance        int64          `json:"balance"`
	StreakCurrent  int            `json:"streak_current"`
	StreakBest     int            `json:"streak_best"`
	BoxesOpened    int            `json:"boxes_opened"`
	TasksCompleted int            `json:"tasks_completed"`
	Badges         []models.Badge `json:"badges"`
	BalanceRank    int            `json:"balance_rank"`
	StreakRank     int            `json:"streak_rank"`
}

// GetAccountStats returns the account's counters, badges and ranks.
// Rank lookups that fail are logged and reported as 0.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetAccountStats(ctx context.Context, accountID uint) (*AccountStats, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Persistence("failed to load account", err)
	}

	stats := &AccountStats{
		AccountID:      account.ID,
		ExternalID:     account.ExternalID,
		Balance:        account.Balance,
		StreakCurrent:  account.StreakCurrent,
		StreakBest:     account.StreakBest,
		BoxesOpened:    account.BoxesOpened,
		TasksCompleted: account.TasksCompleted,
	}

	earned, err := s.badgeRepo.GetAccountBadges(accountID)
	if err != nil {
		s.log.Warn().Err(err).Uint("account_id", accountID).Msg("Failed to get account badges")
	} else {
		for _, eb := range earned {
			if eb.Badge.ID != 0 {
				stats.Badges = append(stats.Badges, eb.Badge)
			}
		}
	}

	if account.Banned {
		return stats, nil
	}

	if stats.BalanceRank, err = s.rankOf(account, MetricBalance); err != nil {
		s.log.Warn().Err(err).Uint("account_id", accountID).Msg("Failed to get balance rank")
		stats.BalanceRank = 0
	}
	if stats.StreakRank, err = s.rankOf(account, MetricBestStreak); err != nil {
		s.log.Warn().Err(err).Uint("account_id", accountID).Msg("Failed to get streak rank")
		stats.StreakRank = 0
	}

	return stats, nil
}
