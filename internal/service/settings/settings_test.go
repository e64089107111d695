package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/pkg/logger"
	"github.com/aimd54/reward-economy/test/mocks"
)

type mockConfigurationRepository struct {
	values map[string]string
	reads  int
	err    error
}

func (m *mockConfigurationRepository) Get(key string) (json.RawMessage, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return json.RawMessage(v), nil
}

func newTestService(values map[string]string) (*Service, *mockConfigurationRepository) {
	repo := &mockConfigurationRepository{values: values}
	return NewService(repo, nil, 0, logger.Nop()), repo
}

func TestService_Defaults(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	checkin, err := svc.Checkin(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckin(), checkin)

	boxes, err := svc.Boxes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 85, boxes.Weights[models.RarityCommon])
	assert.Equal(t, PointRange{Min: 500, Max: 1000}, boxes.Points[models.RarityLegendary])
	assert.Equal(t, 3*time.Hour, boxes.Expiry())
	assert.Equal(t, 24, boxes.MaxPerDay)

	wallet, err := svc.Wallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.ConnectBonus)

	referral, err := svc.Referral(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), referral.Bonus)
}

func TestService_PartialOverride(t *testing.T) {
	svc, _ := newTestService(map[string]string{
		KeyCheckin: `{"base_reward": 70}`,
		KeyBoxes:   `{"max_per_day": 6}`,
	})
	ctx := context.Background()

	checkin, err := svc.Checkin(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(70), checkin.BaseReward)
	assert.Equal(t, int64(5), checkin.DailyIncrement)
	assert.Equal(t, int64(100), checkin.MaxBonus)

	boxes, err := svc.Boxes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, boxes.MaxPerDay)
	assert.Equal(t, 1, boxes.Weights[models.RarityLegendary])
}

func TestService_BoxesValidation(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"weights not summing to 100", `{"weights": {"common": 80, "rare": 15, "legendary": 1}}`},
		{"negative weight", `{"weights": {"common": 101, "rare": -2, "legendary": 1}}`},
		{"min above max", `{"points": {"common": {"min": 60, "max": 50}, "rare": {"min": 100, "max": 250}, "legendary": {"min": 500, "max": 1000}}}`},
		{"missing rarity range", `{"points": {"common": {"min": 10, "max": 50}}}`},
		{"zero expiry", `{"expiry_hours": 0}`},
		{"malformed json", `{"weights": 12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(map[string]string{KeyBoxes: tt.value})

			_, err := svc.Boxes(context.Background())
			require.Error(t, err)
			assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidConfiguration))
		})
	}
}

func TestService_WeightsReplacedWhole(t *testing.T) {
	svc, _ := newTestService(map[string]string{
		KeyBoxes: `{"weights": {"common": 50, "rare": 40, "legendary": 10}}`,
	})

	boxes, err := svc.Boxes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, boxes.Weights[models.RarityRare])
	assert.Equal(t, PointRange{Min: 10, Max: 50}, boxes.Points[models.RarityCommon])
}

func TestService_StoreFailure(t *testing.T) {
	svc, repo := newTestService(nil)
	repo.err = errors.New("connection refused")

	_, err := svc.Checkin(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
}

func TestService_Cache(t *testing.T) {
	repo := &mockConfigurationRepository{values: map[string]string{KeyWallet: `{"connect_bonus": 900}`}}
	c := mocks.NewMockCache()
	svc := NewService(repo, c, time.Minute, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		wallet, err := svc.Wallet(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(900), wallet.ConnectBonus)
	}
	assert.Equal(t, 1, repo.reads)
	assert.True(t, c.Has(cacheKeyPrefix+KeyWallet))

	// Expired entries are read through again.
	require.NoError(t, c.Del(ctx, cacheKeyPrefix+KeyWallet))
	_, err := svc.Wallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
}

func TestService_CacheFailureFallsBack(t *testing.T) {
	repo := &mockConfigurationRepository{values: map[string]string{KeyReferral: `{"bonus": 10}`}}
	c := mocks.NewMockCache()
	c.Err = errors.New("redis down")
	svc := NewService(repo, c, time.Minute, logger.Nop())

	referral, err := svc.Referral(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), referral.Bonus)
}
