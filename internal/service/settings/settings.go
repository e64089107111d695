// Package settings loads the economy tunables from the configuration store and
// merges them over the documented defaults.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/cache"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// Configuration keys.
const (
	KeyCheckin  = "checkin"
	KeyBoxes    = "boxes"
	KeyWallet   = "wallet"
	KeyReferral = "referral"
)

const cacheKeyPrefix = "settings:"

// CheckinSettings controls the daily check-in reward.
type CheckinSettings struct {
	BaseReward     int64 `json:"base_reward"`
	DailyIncrement int64 `json:"daily_increment"`
	MaxBonus       int64 `json:"max_bonus"`
}

// PointRange is an inclusive range of box base points.
type PointRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// BoxSettings controls reward box generation.
type BoxSettings struct {
	Weights     map[string]int        `json:"weights"`
	Points      map[string]PointRange `json:"points"`
	ExpiryHours int                   `json:"expiry_hours"`
	MaxPerDay   int                   `json:"max_per_day"`
}

// Expiry returns the box lifetime.
func (b BoxSettings) Expiry() time.Duration {
	return time.Duration(b.ExpiryHours) * time.Hour
}

// BoxRarities is the fixed draw order of box rarities.
var BoxRarities = []string{models.RarityCommon, models.RarityRare, models.RarityLegendary}

// Validate checks the box section: weights sum to 100, every rarity has a
// point range with min <= max, and the expiry is positive.
func (b BoxSettings) Validate() error {
	total := 0
	for _, rarity := range BoxRarities {
		w := b.Weights[rarity]
		if w < 0 {
			return fmt.Errorf("weight for %s is negative", rarity)
		}
		total += w
	}
	if total != 100 {
		return fmt.Errorf("rarity weights sum to %d, expected 100", total)
	}
	for _, rarity := range BoxRarities {
		r, ok := b.Points[rarity]
		if !ok {
			return fmt.Errorf("no point range for %s", rarity)
		}
		if r.Min < 0 || r.Min > r.Max {
			return fmt.Errorf("invalid point range for %s: [%d, %d]", rarity, r.Min, r.Max)
		}
	}
	if b.ExpiryHours <= 0 {
		return fmt.Errorf("expiry_hours must be positive")
	}
	if b.MaxPerDay < 0 {
		return fmt.Errorf("max_per_day cannot be negative")
	}
	return nil
}

// WalletSettings controls the wallet-link bonus.
type WalletSettings struct {
	ConnectBonus int64 `json:"connect_bonus"`
}

// ReferralSettings controls the referrer bonus.
type ReferralSettings struct {
	Bonus int64 `json:"bonus"`
}

// DefaultCheckin returns the check-in defaults.
func DefaultCheckin() CheckinSettings {
	return CheckinSettings{BaseReward: 50, DailyIncrement: 5, MaxBonus: 100}
}

// DefaultBoxes returns the box defaults.
func DefaultBoxes() BoxSettings {
	return BoxSettings{
		Weights: map[string]int{
			models.RarityCommon:    85,
			models.RarityRare:      14,
			models.RarityLegendary: 1,
		},
		Points: map[string]PointRange{
			models.RarityCommon:    {Min: 10, Max: 50},
			models.RarityRare:      {Min: 100, Max: 250},
			models.RarityLegendary: {Min: 500, Max: 1000},
		},
		ExpiryHours: 3,
		MaxPerDay:   24,
	}
}

// DefaultWallet returns the wallet defaults.
func DefaultWallet() WalletSettings {
	return WalletSettings{ConnectBonus: 500}
}

// DefaultReferral returns the referral defaults.
func DefaultReferral() ReferralSettings {
	return ReferralSettings{Bonus: 100}
}

// ConfigurationRepository reads raw configuration values.
type ConfigurationRepository interface {
	Get(key string) (json.RawMessage, error)
}

// Service reads typed tunables. Values are read fresh from the store unless
// a cache with a positive TTL is configured.
type Service struct {
	repo  ConfigurationRepository
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewService creates a settings service. c may be nil.
func NewService(repo ConfigurationRepository, c cache.Cache, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log}
}

// Checkin returns the check-in tunables.
func (s *Service) Checkin(ctx context.Context) (CheckinSettings, error) {
	out := DefaultCheckin()
	err := s.load(ctx, KeyCheckin, &out)
	return out, err
}

// Boxes returns the validated box tunables. An invalid section is a
// precondition rejection, so generation refuses to run on it.
// The weights and points maps are replaced as a whole when present.
func (s *Service) Boxes(ctx context.Context) (BoxSettings, error) {
	defaults := DefaultBoxes()
	out := defaults
	out.Weights, out.Points = nil, nil
	if err := s.load(ctx, KeyBoxes, &out); err != nil {
		return defaults, err
	}
	if out.Weights == nil {
		out.Weights = defaults.Weights
	}
	if out.Points == nil {
		out.Points = defaults.Points
	}
	if err := out.Validate(); err != nil {
		return out, apperrors.New(apperrors.KindPrecondition, apperrors.CodeInvalidConfiguration, err.Error())
	}
	return out, nil
}

// Wallet returns the wallet tunables.
func (s *Service) Wallet(ctx context.Context) (WalletSettings, error) {
	out := DefaultWallet()
	err := s.load(ctx, KeyWallet, &out)
	return out, err
}

// Referral returns the referral tunables.
func (s *Service) Referral(ctx context.Context) (ReferralSettings, error) {
	out := DefaultReferral()
	err := s.load(ctx, KeyReferral, &out)
	return out, err
}

// load unmarshals the stored JSON for key over dst, which already holds the
// defaults. Fields absent from the JSON keep their defaults.
func (s *Service) load(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.raw(ctx, key)
	if err != nil {
		return apperrors.Persistence("failed to read "+key+" settings", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperrors.New(apperrors.KindPrecondition, apperrors.CodeInvalidConfiguration,
			fmt.Sprintf("malformed %s settings: %v", key, err))
	}
	return nil
}

func (s *Service) raw(ctx context.Context, key string) (json.RawMessage, error) {
	useCache := s.cache != nil && s.ttl > 0
	if useCache {
		cached, err := s.cache.Get(ctx, cacheKeyPrefix+key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Settings cache read failed, falling back to store")
		} else if cached != "" {
			return json.RawMessage(cached), nil
		}
	}

	raw, err := s.repo.Get(key)
	if err != nil {
		return nil, err
	}

	if useCache && len(raw) > 0 {
		if err := s.cache.Set(ctx, cacheKeyPrefix+key, string(raw), s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache settings")
		}
	}
	return raw, nil
}
