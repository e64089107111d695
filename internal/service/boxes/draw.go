package boxes

import (
	"math/rand"

	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/service/settings"
)

// DrawRarity maps a roll in [0, 100) onto the cumulative weights in
// settings.BoxRarities order. Weights must already be validated.
func DrawRarity(weights map[string]int, roll int) string {
	cumulative := 0
	for _, rarity := range settings.BoxRarities {
		cumulative += weights[rarity]
		if roll < cumulative {
			return rarity
		}
	}
	return models.RarityCommon
}

// DrawPoints picks a uniform value in the inclusive range.
func DrawPoints(rng *rand.Rand, r settings.PointRange) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Int63n(r.Max-r.Min+1)
}
