// Package boxes generates, expires and opens timed reward boxes.
package boxes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/calendar"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/internal/service/settings"
	"github.com/aimd54/reward-economy/pkg/logger"
)

const generationBatchSize = 500

// SettingsProvider supplies the validated box tunables.
type SettingsProvider interface {
	Boxes(ctx context.Context) (settings.BoxSettings, error)
}

// GenerateResult summarizes one generation sweep.
type GenerateResult struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// Service manages the reward box lifecycle.
type Service struct {
	store    *repository.Store
	settings SettingsProvider
	loc      *time.Location
	now      func() time.Time
	log      *logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand overrides the random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// NewService creates a box service. Calendar days for the daily cap are taken in loc.
func NewService(store *repository.Store, provider SettingsProvider, loc *time.Location, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: provider,
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// Slot returns the start of the hourly generation slot containing t.
func (s *Service) Slot(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.loc).UTC()
}

func (s *Service) startOfDay(t time.Time) time.Time {
	return calendar.StartOfDay(t, s.loc).UTC()
}

// draw picks a rarity and base points for a new box.
func (s *Service) draw(cfg settings.BoxSettings) (string, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rarity := DrawRarity(cfg.Weights, s.rng.Intn(100))
	return rarity, DrawPoints(s.rng, cfg.Points[rarity])
}

// Generate gives every active account at most one pending box for the
// current hourly slot, respecting the daily cap. Concurrent runs are safe:
// the (account, slot) uniqueness turns a duplicate insert into a no-op.
func (s *Service) Generate(ctx context.Context) (GenerateResult, error) {
	var result GenerateResult

	cfg, err := s.settings.Boxes(ctx)
	if err != nil {
		return result, err
	}

	now := s.now()
	slot := s.Slot(now)
	dayStart := s.startOfDay(now)
	store := s.store.WithContext(ctx)

	var afterID uint
	for {
		accounts, err := store.Accounts.ListActive(afterID, generationBatchSize)
		if err != nil {
			return result, apperrors.Persistence("failed to list accounts for box generation", err)
		}
		if len(accounts) == 0 {
			break
		}

		for i := range accounts {
			account := &accounts[i]
			afterID = account.ID
			result.Scanned++

			created, err := s.generateFor(store, account.ID, cfg, slot, dayStart, now)
			if err != nil {
				result.Failed++
				s.log.Error().Err(err).Uint("account_id", account.ID).Msg("Failed to generate box")
				continue
			}
			if created {
				result.Created++
			}
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}
	}

	s.log.Info().
		Int("scanned", result.Scanned).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Time("slot", slot).
		Msg("Box generation complete")

	return result, nil
}

func (s *Service) generateFor(store *repository.Store, accountID uint, cfg settings.BoxSettings, slot, dayStart, now time.Time) (bool, error) {
	count, err := store.Boxes.CountGeneratedSince(accountID, dayStart)
	if err != nil {
		return false, err
	}
	if count >= int64(cfg.MaxPerDay) {
		return false, nil
	}

	rarity, points := s.draw(cfg)
	box := &models.RewardBox{
		AccountID:   accountID,
		Slot:        slot,
		Rarity:      rarity,
		BasePoints:  points,
		GeneratedAt: now,
		ExpiresAt:   now.Add(cfg.Expiry()),
	}

	created, err := store.Boxes.CreateIfSlotFree(box)
	if err != nil {
		return false, err
	}
	if created {
		prommetrics.RecordBoxGenerated(rarity)
	}
	return created, nil
}

// Expire marks every overdue pending box as expired and returns how many changed.
func (s *Service) Expire(ctx context.Context) (int64, error) {
	n, err := s.store.WithContext(ctx).Boxes.ExpireDue(s.now())
	if err != nil {
		return 0, apperrors.Persistence("failed to expire boxes", err)
	}

	prommetrics.RecordBoxesExpired(n)
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("Expired reward boxes")
	}
	return n, nil
}

// Inspect loads a box for opening and rejects it unless it is pending and
// owned by accountID. An overdue box is marked expired before the rejection.
func (s *Service) Inspect(ctx context.Context, accountID, boxID uint, now time.Time) (*models.RewardBox, error) {
	store := s.store.WithContext(ctx)

	box, err := store.Boxes.GetByID(boxID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "box not found")
		}
		return nil, apperrors.Persistence("failed to load box", err)
	}

	if box.AccountID != accountID {
		return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotOwned, "box belongs to another account")
	}

	if err := terminalError(box); err != nil {
		return nil, err
	}

	if !now.Before(box.ExpiresAt) {
		if _, err := store.Boxes.MarkExpired(box.ID, now); err != nil {
			return nil, apperrors.Persistence("failed to expire box", err)
		}
		return nil, apperrors.New(apperrors.KindConflict, apperrors.CodeExpired, "box has expired")
	}

	return box, nil
}

// Claim opens box inside tx. It returns the points to credit, or the
// terminal-state rejection when a concurrent open or expiry won.
func (s *Service) Claim(tx *repository.Store, box *models.RewardBox, m multiplier.Multiplier, now time.Time) (int64, error) {
	finalPoints := m.Apply(box.BasePoints)

	ok, err := tx.Boxes.MarkOpened(box.ID, box.AccountID, now, m.Float(), finalPoints)
	if err != nil {
		return 0, apperrors.Persistence("failed to open box", err)
	}

	if !ok {
		current, err := tx.Boxes.GetByID(box.ID)
		if err != nil {
			return 0, apperrors.Persistence("failed to reload box", err)
		}
		if rejection := terminalError(current); rejection != nil {
			return 0, rejection
		}
		return 0, apperrors.New(apperrors.KindConflict, apperrors.CodeExpired, "box has expired")
	}

	applied := m.Float()
	box.OpenedAt = &now
	box.MultiplierApplied = &applied
	box.FinalPoints = &finalPoints
	return finalPoints, nil
}

// ListPending returns an account's openable boxes.
func (s *Service) ListPending(ctx context.Context, accountID uint) ([]models.RewardBox, error) {
	boxes, err := s.store.WithContext(ctx).Boxes.ListPending(accountID, s.now())
	if err != nil {
		return nil, apperrors.Persistence("failed to list boxes", err)
	}
	return boxes, nil
}

func terminalError(box *models.RewardBox) error {
	switch box.State() {
	case models.BoxStateOpened:
		return apperrors.New(apperrors.KindConflict, apperrors.CodeAlreadyOpened, "box already opened")
	case models.BoxStateExpired:
		return apperrors.New(apperrors.KindConflict, apperrors.CodeExpired, "box has expired")
	}
	return nil
}
