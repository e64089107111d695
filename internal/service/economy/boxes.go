package economy

import (
	"context"
	"strconv"

	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
)

// OpenBoxResult is the outcome of opening a reward box.
type OpenBoxResult struct {
	BoxID             uint     `json:"box_id"`
	Rarity            string   `json:"rarity"`
	BasePoints        int64    `json:"base_points"`
	MultiplierApplied float64  `json:"multiplier_applied"`
	FinalPoints       int64    `json:"final_points"`
	NewBalance        int64    `json:"new_balance"`
	EarnedBadges      []string `json:"earned_badges"`
}

// OpenBox opens a pending box owned by the account and credits its points.
// Of two concurrent opens of the same box exactly one succeeds.
func (s *Service) OpenBox(ctx context.Context, accountID, boxID uint) (*OpenBoxResult, error) {
	const op = "open_box"
	now := s.now()

	if _, err := s.loadAccount(s.store.WithContext(ctx), accountID); err != nil {
		return nil, s.reject(op, accountID, err)
	}

	box, err := s.boxes.Inspect(ctx, accountID, boxID, now)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	result := &OpenBoxResult{
		BoxID:      box.ID,
		Rarity:     box.Rarity,
		BasePoints: box.BasePoints,
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		m, err := s.multiplierFor(tx, accountID, now)
		if err != nil {
			return err
		}

		result.FinalPoints, err = s.boxes.Claim(tx, box, m, now)
		if err != nil {
			return err
		}
		result.MultiplierApplied = m.Float()

		result.NewBalance, err = s.apply(tx, accountID, credit{
			change:      repository.BalanceChange{Delta: result.FinalPoints, BoxesOpened: 1},
			source:      models.SourceBox,
			sourceRef:   "box:" + strconv.FormatUint(uint64(box.ID), 10),
			description: "Opened " + box.Rarity + " box",
		}, now)
		if err != nil {
			return err
		}

		result.EarnedBadges, err = s.evaluate(ctx, tx, accountID, badges.EventBoxOpened, now)
		return err
	})
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	prommetrics.RecordBoxOpened(result.Rarity, result.FinalPoints)
	prommetrics.RecordPointsAwarded(models.SourceBox, result.FinalPoints)

	s.log.Info().
		Uint("account_id", accountID).
		Uint("box_id", box.ID).
		Str("rarity", result.Rarity).
		Int64("points", result.FinalPoints).
		Float64("multiplier", result.MultiplierApplied).
		Msg("Box opened")

	return result, nil
}

// PendingBoxes returns the account's openable boxes.
func (s *Service) PendingBoxes(ctx context.Context, accountID uint) ([]models.RewardBox, error) {
	return s.boxes.ListPending(ctx, accountID)
}
