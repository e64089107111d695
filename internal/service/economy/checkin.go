package economy

import (
	"context"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
	"github.com/aimd54/reward-economy/internal/service/streak"
)

// CheckinResult is the outcome of a successful daily check-in.
type CheckinResult struct {
	StreakCurrent    int       `json:"streak_current"`
	StreakBest       int       `json:"streak_best"`
	StreakMaintained bool      `json:"streak_maintained"`
	PointsAwarded    int64     `json:"points_awarded"`
	NewBalance       int64     `json:"new_balance"`
	EarnedBadges     []string  `json:"earned_badges"`
	NextCheckinAt    time.Time `json:"next_checkin_at"`
}

// CheckIn records the daily check-in, pays the streak reward and awards any
// streak badges reached. Two concurrent check-ins on the same day produce
// exactly one balance change; the loser gets already_checked_in.
func (s *Service) CheckIn(ctx context.Context, accountID uint) (*CheckinResult, error) {
	const op = "checkin"
	now := s.now()

	account, err := s.loadAccount(s.store.WithContext(ctx), accountID)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	transition, err := s.tracker.Advance(account.LastCheckinAt, account.StreakCurrent, account.StreakBest, now)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	cfg, err := s.settings.Checkin(ctx)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	result := &CheckinResult{
		StreakCurrent:    transition.Current,
		StreakBest:       transition.Best,
		StreakMaintained: transition.Maintained,
		NextCheckinAt:    s.tracker.NextCheckin(now),
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := s.multiplierFor(tx, accountID, now)
		if err != nil {
			return err
		}

		ok, err := tx.Accounts.RecordCheckin(accountID, account.LastCheckinAt, now, transition.Current, transition.Best)
		if err != nil {
			return apperrors.Persistence("failed to record check-in", err)
		}
		if !ok {
			return apperrors.Retryable(apperrors.CodeAlreadyCheckedIn, "already checked in today", s.tracker.NextCheckin(now))
		}

		result.PointsAwarded = streak.Reward(cfg, transition.Current, m)
		result.NewBalance, err = s.apply(tx, accountID, credit{
			change:      repository.BalanceChange{Delta: result.PointsAwarded},
			source:      models.SourceCheckin,
			sourceRef:   now.In(s.tracker.Location()).Format("2006-01-02"),
			description: "Daily check-in",
		}, now)
		if err != nil {
			return err
		}

		result.EarnedBadges, err = s.evaluate(ctx, tx, accountID, badges.EventCheckin, now)
		return err
	})
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	prommetrics.RecordCheckin(transition.Maintained)
	prommetrics.RecordPointsAwarded(models.SourceCheckin, result.PointsAwarded)

	s.log.Info().
		Uint("account_id", accountID).
		Int("streak", result.StreakCurrent).
		Int64("points", result.PointsAwarded).
		Strs("badges", result.EarnedBadges).
		Msg("Check-in recorded")

	return result, nil
}
