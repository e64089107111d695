// Package multiplier composes the reward multiplier from an account's badges.
package multiplier

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aimd54/reward-economy/internal/models"
)

// Multiplier is an exact decimal reward factor. The zero value pays nothing.
type Multiplier struct {
	factor decimal.Decimal
}

// Baseline is the multiplier of an account without badges.
var Baseline = Multiplier{factor: decimal.NewFromInt(1)}

// FromFloat converts a factor such as 1.15 using the shortest decimal that
// represents the float.
func FromFloat(f float64) Multiplier {
	return Multiplier{factor: decimal.NewFromFloat(f)}
}

// Compute sums the bonuses of the active earned badges whose activity window
// contains now. The result never drops below the baseline for non-negative
// bonuses, and the order of badges does not matter.
func Compute(earned []models.EarnedBadge, now time.Time) Multiplier {
	bonuses := []decimal.Decimal{}
	for i := range earned {
		e := &earned[i]
		if !e.Active || !e.Badge.InWindow(now) {
			continue
		}
		bonuses = append(bonuses, decimal.NewFromFloat(e.Badge.MultiplierBonus))
	}
	return Multiplier{factor: decimal.Sum(Baseline.factor, bonuses...)}
}

// Apply scales points and floors the result.
func (m Multiplier) Apply(points int64) int64 {
	if points <= 0 || m.factor.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(points).Mul(m.factor).Floor().IntPart()
}

// Equal reports whether both multipliers are the same factor.
func (m Multiplier) Equal(other Multiplier) bool {
	return m.factor.Equal(other.factor)
}

// Cmp compares m to other like decimal.Decimal.Cmp.
func (m Multiplier) Cmp(other Multiplier) int {
	return m.factor.Cmp(other.factor)
}

// Float returns the multiplier as a factor, e.g. 1.15.
func (m Multiplier) Float() float64 {
	f, _ := m.factor.Float64()
	return f
}

func (m Multiplier) String() string {
	return m.factor.String() + "x"
}
