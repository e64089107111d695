package badges

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/streak"
)

// Event is the economy action that triggers a badge evaluation.
type Event string

// Event constants.
const (
	EventCheckin       Event = "checkin"
	EventBoxOpened     Event = "box_opened"
	EventTaskCompleted Event = "task_completed"
	EventWalletLinked  Event = "wallet_linked"
)

// Category returns the badge category an event can unlock.
func (e Event) Category() (string, error) {
	switch e {
	case EventCheckin:
		return models.BadgeCategoryStreak, nil
	case EventBoxOpened:
		return models.BadgeCategoryBoxes, nil
	case EventTaskCompleted:
		return models.BadgeCategoryTasks, nil
	case EventWalletLinked:
		return models.BadgeCategoryWallet, nil
	default:
		return "", fmt.Errorf("unknown badge event: %s", e)
	}
}

// progress returns the account counter compared against a badge threshold.
func progress(account *models.Account, category string) int {
	switch category {
	case models.BadgeCategoryStreak:
		return account.StreakCurrent
	case models.BadgeCategoryBoxes:
		return account.BoxesOpened
	case models.BadgeCategoryTasks:
		return account.TasksCompleted
	case models.BadgeCategoryWallet:
		if account.HasWallet() {
			return 1
		}
	}
	return 0
}

// qualifies reports whether the account has reached the badge's threshold.
func qualifies(badge *models.Badge, account *models.Account) bool {
	value := progress(account, badge.Category)
	if badge.Category == models.BadgeCategoryWallet {
		return value > 0
	}
	return value >= badge.Threshold
}

// Evaluate awards every candidate badge of the event that the account now
// qualifies for and does not hold yet. repo must be bound to the transaction
// that applied the triggering change, and account must reflect that change.
// It returns the newly earned badges.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Evaluate(ctx context.Context, repo BadgeRepository, account *models.Account, event Event, now time.Time) ([]models.Badge, error) {
	candidates, err := s.candidates(repo, account, event)
	if err != nil {
		return nil, err
	}

	var newlyEarned []models.Badge
	for i := range candidates {
		badge := &candidates[i]

		if !badge.InWindow(now) || badge.SoldOut() || !qualifies(badge, account) {
			continue
		}

		awarded, err := repo.AwardBadge(account.ID, badge, now)
		if err != nil {
			return nil, err
		}
		if !awarded {
			continue
		}

		prommetrics.RecordBadgeAwarded(badge.Code, string(event))
		s.log.Info().
			Uint("account_id", account.ID).
			Str("badge", badge.Code).
			Str("event", string(event)).
			Msg("Badge awarded")

		newlyEarned = append(newlyEarned, *badge)
	}

	return newlyEarned, nil
}

// candidates lists the badges an event may award. For check-ins the streak
// badge of every reached threshold is looked up by code; other streak badges
// (seasonal, limited) come from the category.
func (s *Service) candidates(repo BadgeRepository, account *models.Account, event Event) ([]models.Badge, error) {
	category, err := event.Category()
	if err != nil {
		return nil, err
	}

	inCategory, err := repo.GetByCategory(category)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s badges: %w", category, err)
	}
	if event != EventCheckin {
		return inCategory, nil
	}

	reached := streak.ReachedThresholds(account.StreakCurrent)
	out := make([]models.Badge, 0, len(reached)+len(inCategory))
	for _, n := range reached {
		code := streak.BadgeCode(n)
		badge, err := repo.GetByCode(code)
		if repository.IsNotFound(err) {
			s.log.Warn().Str("badge", code).Msg("Streak badge missing from catalog")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get badge %s: %w", code, err)
		}
		out = append(out, *badge)
	}
	for i := range inCategory {
		if !isThresholdCode(inCategory[i].Code) {
			out = append(out, inCategory[i])
		}
	}
	return out, nil
}

func isThresholdCode(code string) bool {
	for _, n := range streak.Thresholds {
		if streak.BadgeCode(n) == code {
			return true
		}
	}
	return false
}
