package boxes

import (
	"context"
	"math/rand"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/internal/service/settings"
	"github.com/aimd54/reward-economy/pkg/logger"
	"github.com/aimd54/reward-economy/test/testdb"
)

type staticSettings struct {
	cfg settings.BoxSettings
	err error
}

func (s *staticSettings) Boxes(ctx context.Context) (settings.BoxSettings, error) {
	if s.err != nil {
		return settings.BoxSettings{}, s.err
	}
	if err := s.cfg.Validate(); err != nil {
		return s.cfg, apperrors.New(apperrors.KindPrecondition, apperrors.CodeInvalidConfiguration, err.Error())
	}
	return s.cfg, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func setupService(t *testing.T, cfg settings.BoxSettings) (*Service, *repository.Store, *testClock) {
	t.Helper()

	store := testdb.NewStore(t)
	clock := &testClock{now: time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)}
	svc := NewService(store, &staticSettings{cfg: cfg}, time.UTC, logger.Nop(),
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewSource(42))),
	)
	return svc, store, clock
}

func TestDrawRarity_MatchesWeights(t *testing.T) {
	weights := settings.DefaultBoxes().Weights

	counts := map[string]int{}
	for roll := 0; roll < 100; roll++ {
		counts[DrawRarity(weights, roll)]++
	}

	assert.Equal(t, 85, counts[models.RarityCommon])
	assert.Equal(t, 14, counts[models.RarityRare])
	assert.Equal(t, 1, counts[models.RarityLegendary])
	assert.Equal(t, models.RarityLegendary, DrawRarity(weights, 99))
}

func TestDrawRarity_ZeroWeightNeverDrawn(t *testing.T) {
	weights := map[string]int{models.RarityCommon: 0, models.RarityRare: 100, models.RarityLegendary: 0}
	for roll := 0; roll < 100; roll++ {
		assert.Equal(t, models.RarityRare, DrawRarity(weights, roll))
	}
}

func TestDrawPoints_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := settings.PointRange{Min: 10, Max: 50}

	seen := map[int64]bool{}
	for i := 0; i < 5000; i++ {
		p := DrawPoints(rng, r)
		require.GreaterOrEqual(t, p, int64(10))
		require.LessOrEqual(t, p, int64(50))
		seen[p] = true
	}
	assert.True(t, seen[10], "min is reachable")
	assert.True(t, seen[50], "max is reachable")

	assert.Equal(t, int64(7), DrawPoints(rng, settings.PointRange{Min: 7, Max: 7}))
}

func TestGenerate_OnePerSlot(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	ctx := context.Background()

	alice := testdb.CreateAccount(t, store, "alice")
	testdb.CreateAccount(t, store, "bob")
	banned := testdb.CreateAccount(t, store, "mallory")
	require.NoError(t, store.Accounts.SetBanned(banned.ID, true))

	result, err := svc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenerateResult{Scanned: 2, Created: 2}, result)

	// A second sweep in the same hour is a no-op.
	clock.now = clock.now.Add(30 * time.Minute)
	result, err = svc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)

	clock.now = clock.now.Add(time.Hour)
	result, err = svc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)

	pending, err := store.Boxes.ListPending(alice.ID, clock.now)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, box := range pending {
		assert.True(t, box.GeneratedAt.Add(3*time.Hour).Equal(box.ExpiresAt))
		assert.Equal(t, 0, box.Slot.Minute())
	}
}

func TestGenerate_DailyCap(t *testing.T) {
	cfg := settings.DefaultBoxes()
	cfg.MaxPerDay = 2
	svc, store, clock := setupService(t, cfg)
	ctx := context.Background()

	testdb.CreateAccount(t, store, "alice")

	created := 0
	for hour := 0; hour < 5; hour++ {
		result, err := svc.Generate(ctx)
		require.NoError(t, err)
		created += result.Created
		clock.now = clock.now.Add(time.Hour)
	}
	assert.Equal(t, 2, created)

	// The cap resets with the calendar day.
	clock.now = time.Date(2024, 3, 2, 0, 30, 0, 0, time.UTC)
	result, err := svc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestGenerate_RejectsInvalidWeights(t *testing.T) {
	cfg := settings.DefaultBoxes()
	cfg.Weights = map[string]int{models.RarityCommon: 90, models.RarityRare: 5, models.RarityLegendary: 1}
	svc, store, _ := setupService(t, cfg)
	testdb.CreateAccount(t, store, "alice")

	_, err := svc.Generate(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindPrecondition, apperrors.KindOf(err))

	var count int64
	require.NoError(t, store.DB().Model(&models.RewardBox{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExpire(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	ctx := context.Background()
	testdb.CreateAccount(t, store, "alice")

	_, err := svc.Generate(ctx)
	require.NoError(t, err)

	n, err := svc.Expire(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.now = clock.now.Add(3 * time.Hour)
	n, err = svc.Expire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.Expire(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "expiry is idempotent")
}

func createBox(t *testing.T, store *repository.Store, accountID uint, generatedAt time.Time) *models.RewardBox {
	t.Helper()

	box := &models.RewardBox{
		AccountID:   accountID,
		Slot:        generatedAt.Truncate(time.Hour),
		Rarity:      models.RarityRare,
		BasePoints:  100,
		GeneratedAt: generatedAt,
		ExpiresAt:   generatedAt.Add(3 * time.Hour),
	}
	created, err := store.Boxes.CreateIfSlotFree(box)
	require.NoError(t, err)
	require.True(t, created)
	return box
}

func TestInspect(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	ctx := context.Background()

	owner := testdb.CreateAccount(t, store, "owner")
	other := testdb.CreateAccount(t, store, "other")
	box := createBox(t, store, owner.ID, clock.now)

	_, err := svc.Inspect(ctx, owner.ID, 999, clock.now)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = svc.Inspect(ctx, other.ID, box.ID, clock.now)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotOwned))

	loaded, err := svc.Inspect(ctx, owner.ID, box.ID, clock.now)
	require.NoError(t, err)
	assert.Equal(t, box.ID, loaded.ID)
}

func TestInspect_ExpiryRace(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	ctx := context.Background()

	owner := testdb.CreateAccount(t, store, "owner")
	box := createBox(t, store, owner.ID, clock.now)

	// One second past expiry, sweep not yet run.
	late := box.ExpiresAt.Add(time.Second)
	_, err := svc.Inspect(ctx, owner.ID, box.ID, late)
	assert.True(t, apperrors.Is(err, apperrors.CodeExpired))

	reloaded, err := store.Boxes.GetByID(box.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BoxStateExpired, reloaded.State())

	_, err = svc.Inspect(ctx, owner.ID, box.ID, late.Add(time.Second))
	assert.True(t, apperrors.Is(err, apperrors.CodeExpired))
}

func TestClaim(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	owner := testdb.CreateAccount(t, store, "owner")
	box := createBox(t, store, owner.ID, clock.now)

	m := multiplier.FromFloat(1.15)
	points, err := svc.Claim(store, box, m, clock.now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(115), points)
	require.NotNil(t, box.FinalPoints)
	assert.Equal(t, int64(115), *box.FinalPoints)

	stale := *box
	stale.OpenedAt = nil
	_, err = svc.Claim(store, &stale, m, clock.now.Add(2*time.Minute))
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyOpened))
}

func TestClaim_LosesToSweep(t *testing.T) {
	svc, store, clock := setupService(t, settings.DefaultBoxes())
	owner := testdb.CreateAccount(t, store, "owner")
	box := createBox(t, store, owner.ID, clock.now)

	n, err := store.Boxes.ExpireDue(box.ExpiresAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = svc.Claim(store, box, multiplier.Baseline, box.ExpiresAt.Add(-time.Second))
	assert.True(t, apperrors.Is(err, apperrors.CodeExpired))
}

func TestSlot_HalfHourZone(t *testing.T) {
	loc := time.FixedZone("IST", 5*60*60+30*60)
	svc := NewService(nil, nil, loc, logger.Nop())

	slot := svc.Slot(time.Date(2024, 3, 1, 10, 45, 0, 0, time.UTC)) // 16:15 local
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), slot)
}

func TestStartOfDay_SkippedMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Havana")
	require.NoError(t, err)
	svc := NewService(nil, nil, loc, logger.Nop())

	// 2026-03-08 starts at 01:00 CDT because midnight is skipped.
	start := svc.startOfDay(time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC), start)
}
