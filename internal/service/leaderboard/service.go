// Package leaderboard provides leaderboard and ranking services.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/cache"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// Ranking metrics.
const (
	MetricBalance    = "balance"
	MetricBestStreak = "best_streak"
)

// Limits applied to leaderboard requests.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// AccountRepository interface for account ranking operations.
type AccountRepository interface {
	GetByID(id uint) (*models.Account, error)
	Top(column string, limit int) ([]models.Account, error)
	CountAbove(column string, value int64) (int64, error)
}

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetAccountBadgeCount(accountID uint) (int64, error)
	GetAccountBadges(accountID uint) ([]models.EarnedBadge, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	AccountID  uint   `json:"account_id"`
	ExternalID string `json:"external_id"`
	Balance    int64  `json:"balance"`
	StreakBest int    `json:"streak_best"`
	BadgeCount int    `json:"badge_count"`
	Rank       int    `json:"rank"`
}

// Service handles leaderboard generation and account statistics.
type Service struct {
	accountRepo AccountRepository
	badgeRepo   BadgeRepository
	cache       cache.Cache
	ttl         time.Duration
	log         *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
// A nil cache or zero ttl disables caching.
func NewService(
	accountRepo *repository.AccountRepository,
	badgeRepo *repository.BadgeRepository,
	c cache.Cache,
	ttl time.Duration,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(accountRepo, badgeRepo, c, ttl, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	accountRepo AccountRepository,
	badgeRepo BadgeRepository,
	c cache.Cache,
	ttl time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		accountRepo: accountRepo,
		badgeRepo:   badgeRepo,
		cache:       c,
		ttl:         ttl,
		log:         log,
	}
}

// column maps a ranking metric to its account column.
func column(metric string) (string, error) {
	switch metric {
	case MetricBalance, "":
		return "balance", nil
	case MetricBestStreak:
		return "streak_best", nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unknown leaderboard metric %q", metric))
	}
}

func score(account *models.Account, col string) int64 {
	if col == "streak_best" {
		return int64(account.StreakBest)
	}
	return account.Balance
}

func cacheKey(metric string, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%d", metric, limit)
}

// GetLeaderboard returns the top accounts for a metric. Accounts with equal
// scores share a rank.
func (s *Service) GetLeaderboard(ctx context.Context, metric string, limit int) ([]Entry, error) {
	col, err := column(metric)
	if err != nil {
		return nil, err
	}
	if metric == "" {
		metric = MetricBalance
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	key := cacheKey(metric, limit)
	if entries, ok := s.cached(ctx, key); ok {
		return entries, nil
	}

	accounts, err := s.accountRepo.Top(col, limit)
	if err != nil {
		return nil, apperrors.Persistence("failed to rank accounts", err)
	}

	entries := make([]Entry, 0, len(accounts))
	for i := range accounts {
		account := &accounts[i]

		count, err := s.badgeRepo.GetAccountBadgeCount(account.ID)
		if err != nil {
			s.log.Warn().Err(err).Uint("account_id", account.ID).Msg("Failed to get badge count")
			count = 0
		}

		rank := i + 1
		if i > 0 && score(account, col) == score(&accounts[i-1], col) {
			rank = entries[i-1].Rank
		}

		entries = append(entries, Entry{
			AccountID:  account.ID,
			ExternalID: account.ExternalID,
			Balance:    account.Balance,
			StreakBest: account.StreakBest,
			BadgeCount: int(count),
			Rank:       rank,
		})
	}

	s.store(ctx, key, entries)
	return entries, nil
}

// GetAccountRank returns the account's rank for a metric: one more than the
// number of accounts with a strictly higher score.
func (s *Service) GetAccountRank(ctx context.Context, accountID uint, metric string) (int, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "account not found")
		}
		return 0, apperrors.Persistence("failed to load account", err)
	}
	return s.rankOf(account, metric)
}

func (s *Service) rankOf(account *models.Account, metric string) (int, error) {
	col, err := column(metric)
	if err != nil {
		return 0, err
	}
	above, err := s.accountRepo.CountAbove(col, score(account, col))
	if err != nil {
		return 0, apperrors.Persistence("failed to rank account", err)
	}
	return int(above) + 1, nil
}

//nolint:revive // ctx threads through to the cache client
func (s *Service) cached(ctx context.Context, key string) ([]Entry, bool) {
	if s.cache == nil || s.ttl <= 0 {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
		return nil, false
	}
	if raw == "" {
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed leaderboard cache entry")
		return nil, false
	}
	return entries, true
}

func (s *Service) store(ctx context.Context, key string, entries []Entry) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
}
