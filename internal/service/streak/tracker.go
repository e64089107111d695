// Package streak tracks consecutive daily check-ins in a reference timezone.
package streak

import (
	"fmt"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/calendar"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/internal/service/settings"
)

// Thresholds are the streak lengths that unlock a streak badge.
var Thresholds = []int{7, 14, 30, 60, 90, 180, 365, 730}

// BadgeCode returns the catalog code of the badge for a streak threshold.
func BadgeCode(threshold int) string {
	return fmt.Sprintf("streak_%d", threshold)
}

// ReachedThresholds returns every threshold at or below streak, ascending.
func ReachedThresholds(streak int) []int {
	var reached []int
	for _, n := range Thresholds {
		if n > streak {
			break
		}
		reached = append(reached, n)
	}
	return reached
}

// Tracker decides check-in eligibility and streak transitions. Calendar days
// are taken in the tracker's location.
type Tracker struct {
	loc *time.Location
}

// NewTracker creates a tracker for loc. A nil loc means UTC.
func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{loc: loc}
}

// Location returns the reference timezone.
func (t *Tracker) Location() *time.Location {
	return t.loc
}

// Day returns ts's calendar day in the reference timezone.
func (t *Tracker) Day(ts time.Time) calendar.Day {
	return calendar.DayOf(ts, t.loc)
}

// NextCheckin returns the start of the calendar day after now.
func (t *Tracker) NextCheckin(now time.Time) time.Time {
	return t.Day(now).AddDays(1).Start(t.loc)
}

// Eligible reports whether a check-in at now is allowed after last.
func (t *Tracker) Eligible(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return t.Day(*last).Before(t.Day(now))
}

// Transition is the streak state after a successful check-in.
type Transition struct {
	Current    int
	Best       int
	Maintained bool
}

// Advance computes the streak after a check-in at now. It rejects with
// already_checked_in, carrying the start of tomorrow, when the last check-in
// falls on today.
func (t *Tracker) Advance(last *time.Time, current, best int, now time.Time) (Transition, error) {
	if !t.Eligible(last, now) {
		return Transition{}, apperrors.Retryable(apperrors.CodeAlreadyCheckedIn,
			"already checked in today", t.NextCheckin(now))
	}

	next := Transition{Current: 1}
	if last != nil {
		if t.Day(*last) == t.Day(now).AddDays(-1) {
			next.Current = current + 1
			next.Maintained = true
		}
	}

	next.Best = best
	if next.Current > next.Best {
		next.Best = next.Current
	}
	return next, nil
}

// Reward returns the check-in payout for a streak length:
// base + min(streak * increment, cap), scaled by m and floored.
func Reward(cfg settings.CheckinSettings, streak int, m multiplier.Multiplier) int64 {
	bonus := int64(streak) * cfg.DailyIncrement
	if bonus > cfg.MaxBonus {
		bonus = cfg.MaxBonus
	}
	return m.Apply(cfg.BaseReward + bonus)
}
