package repository

import (
	"testing"
	"time"

	"github.com/aimd54/reward-economy/internal/models"
)

// createTestBadge creates a test badge in the database.
func createTestBadge(t *testing.T, repo *BadgeRepository, code, category string, threshold int) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Code:            code,
		Name:            code,
		Rarity:          models.RarityCommon,
		MultiplierBonus: 0.1,
		Category:        category,
		Threshold:       threshold,
	}

	err := repo.Create(badge)
	if err != nil {
		t.Fatalf("Failed to create test badge: %v", err)
	}

	return badge
}

func TestBadgeRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	badge := &models.Badge{
		Code:            "streak_7",
		Name:            "Week Warrior",
		Description:     "Checked in seven days in a row",
		Rarity:          models.RarityRare,
		MultiplierBonus: 0.15,
		Category:        models.BadgeCategoryStreak,
		Threshold:       7,
	}

	err := repo.Create(badge)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if badge.ID == 0 {
		t.Error("Expected badge ID to be set after creation")
	}

	if badge.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestBadgeRepository_GetByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	created := createTestBadge(t, repo, "streak_7", models.BadgeCategoryStreak, 7)

	badge, err := repo.GetByCode("streak_7")
	if err != nil {
		t.Fatalf("GetByCode() failed: %v", err)
	}

	if badge.ID != created.ID {
		t.Errorf("Expected badge %d, got %d", created.ID, badge.ID)
	}

	_, err = repo.GetByCode("non_existent")
	if !IsNotFound(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestBadgeRepository_GetByCategory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	createTestBadge(t, repo, "streak_30", models.BadgeCategoryStreak, 30)
	createTestBadge(t, repo, "streak_7", models.BadgeCategoryStreak, 7)
	createTestBadge(t, repo, "wallet", models.BadgeCategoryWallet, 0)

	badges, err := repo.GetByCategory(models.BadgeCategoryStreak)
	if err != nil {
		t.Fatalf("GetByCategory() failed: %v", err)
	}

	if len(badges) != 2 {
		t.Fatalf("Expected 2 badges, got %d", len(badges))
	}

	// Ordered by threshold ASC
	if badges[0].Code != "streak_7" {
		t.Errorf("Expected first badge to be 'streak_7', got %q", badges[0].Code)
	}
}

func TestBadgeRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	badge := createTestBadge(t, repo, "streak_7", models.BadgeCategoryStreak, 7)
	if err := db.Model(badge).Update("current_supply", 3).Error; err != nil {
		t.Fatalf("Failed to set supply: %v", err)
	}

	updated := &models.Badge{
		Code:            "streak_7",
		Name:            "Renamed",
		Rarity:          models.RarityRare,
		MultiplierBonus: 0.2,
		Category:        models.BadgeCategoryStreak,
		Threshold:       7,
	}
	if err := repo.Upsert(updated); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	retrieved, err := repo.GetByCode("streak_7")
	if err != nil {
		t.Fatalf("GetByCode() failed: %v", err)
	}

	if retrieved.Name != "Renamed" {
		t.Errorf("Expected name 'Renamed', got %q", retrieved.Name)
	}
	if retrieved.CurrentSupply != 3 {
		t.Errorf("Expected supply to be preserved at 3, got %d", retrieved.CurrentSupply)
	}

	all, _ := repo.GetAll()
	if len(all) != 1 {
		t.Errorf("Expected 1 badge after upsert, got %d", len(all))
	}
}

func TestBadgeRepository_AwardBadge(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	account := createTestAccount(t, db, "alice")
	badge := createTestBadge(t, repo, "streak_7", models.BadgeCategoryStreak, 7)

	awarded, err := repo.AwardBadge(account.ID, badge, testNow)
	if err != nil {
		t.Fatalf("AwardBadge() failed: %v", err)
	}
	if !awarded {
		t.Error("Expected badge to be awarded")
	}

	hasEarned, err := repo.HasEarnedBadge(account.ID, badge.ID)
	if err != nil {
		t.Fatalf("HasEarnedBadge() failed: %v", err)
	}

	if !hasEarned {
		t.Error("Expected account to have earned the badge")
	}
}

func TestBadgeRepository_AwardBadge_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	account := createTestAccount(t, db, "bob")
	badge := createTestBadge(t, repo, "streak_7", models.BadgeCategoryStreak, 7)

	if _, err := repo.AwardBadge(account.ID, badge, testNow); err != nil {
		t.Fatalf("First AwardBadge() failed: %v", err)
	}

	awarded, err := repo.AwardBadge(account.ID, badge, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Second AwardBadge() failed: %v", err)
	}
	if awarded {
		t.Error("Expected second award to be a no-op")
	}

	earned, err := repo.GetAccountBadges(account.ID)
	if err != nil {
		t.Fatalf("GetAccountBadges() failed: %v", err)
	}

	if len(earned) != 1 {
		t.Errorf("Expected 1 earned badge entry, got %d", len(earned))
	}
}

func TestBadgeRepository_AwardBadge_MaxSupply(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	limit := 1
	badge := &models.Badge{
		Code:      "founder",
		Name:      "Founder",
		Rarity:    models.RarityLegendary,
		Category:  models.BadgeCategoryWallet,
		MaxSupply: &limit,
	}
	if err := repo.Create(badge); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	first := createTestAccount(t, db, "first")
	second := createTestAccount(t, db, "second")

	awarded, err := repo.AwardBadge(first.ID, badge, testNow)
	if err != nil || !awarded {
		t.Fatalf("Expected first award to succeed, got awarded=%v err=%v", awarded, err)
	}

	awarded, err = repo.AwardBadge(second.ID, badge, testNow)
	if err != nil {
		t.Fatalf("AwardBadge() failed: %v", err)
	}
	if awarded {
		t.Error("Expected award past max supply to be refused")
	}

	retrieved, _ := repo.GetByCode("founder")
	if retrieved.CurrentSupply != 1 {
		t.Errorf("Expected supply 1, got %d", retrieved.CurrentSupply)
	}
}

func TestBadgeRepository_GetAccountBadges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	account := createTestAccount(t, db, "charlie")
	badge1 := createTestBadge(t, repo, "badge1", models.BadgeCategoryBoxes, 1)
	badge2 := createTestBadge(t, repo, "badge2", models.BadgeCategoryBoxes, 10)

	_, _ = repo.AwardBadge(account.ID, badge1, testNow)
	_, _ = repo.AwardBadge(account.ID, badge2, testNow.Add(time.Minute))

	earned, err := repo.GetAccountBadges(account.ID)
	if err != nil {
		t.Fatalf("GetAccountBadges() failed: %v", err)
	}

	if len(earned) != 2 {
		t.Fatalf("Expected 2 badges, got %d", len(earned))
	}

	// Verify order (DESC by earned_at, so badge2 should be first)
	if earned[0].Badge.Code != "badge2" {
		t.Errorf("Expected first badge to be 'badge2', got %q", earned[0].Badge.Code)
	}
}

func TestBadgeRepository_GetActiveBadges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	account := createTestAccount(t, db, "dave")
	kept := createTestBadge(t, repo, "kept", models.BadgeCategoryTasks, 1)
	paused := createTestBadge(t, repo, "paused", models.BadgeCategoryTasks, 5)
	_, _ = repo.AwardBadge(account.ID, kept, testNow)
	_, _ = repo.AwardBadge(account.ID, paused, testNow)

	err := db.Model(&models.EarnedBadge{}).
		Where("account_id = ? AND badge_id = ?", account.ID, paused.ID).
		Update("active", false).Error
	if err != nil {
		t.Fatalf("Failed to deactivate badge: %v", err)
	}

	active, err := repo.GetActiveBadges(account.ID)
	if err != nil {
		t.Fatalf("GetActiveBadges() failed: %v", err)
	}
	if len(active) != 1 || active[0].Badge.Code != "kept" {
		t.Errorf("Expected only the kept badge, got %v", active)
	}
}

func TestBadgeRepository_GetAccountBadgeCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBadgeRepository(db)

	account := createTestAccount(t, db, "alice")
	first := createTestBadge(t, repo, "first", models.BadgeCategoryBoxes, 1)
	second := createTestBadge(t, repo, "second", models.BadgeCategoryBoxes, 10)

	_, _ = repo.AwardBadge(account.ID, first, testNow)
	_, _ = repo.AwardBadge(account.ID, second, testNow)

	count, err := repo.GetAccountBadgeCount(account.ID)
	if err != nil {
		t.Fatalf("GetAccountBadgeCount() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}
