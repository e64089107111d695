// Package badges provides badge evaluation and management services.
package badges

import (
	"context"
	"time"

	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetAll() ([]models.Badge, error)
	GetByCategory(category string) ([]models.Badge, error)
	GetByCode(code string) (*models.Badge, error)
	AwardBadge(accountID uint, badge *models.Badge, at time.Time) (bool, error)
	GetAccountBadges(accountID uint) ([]models.EarnedBadge, error)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo BadgeRepository
	log       *logger.Logger
}

// NewService creates a new badge service.
func NewService(badgeRepo *repository.BadgeRepository, log *logger.Logger) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		log:       log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(badgeRepo BadgeRepository, log *logger.Logger) *Service {
	return &Service{
		badgeRepo: badgeRepo,
		log:       log,
	}
}

// GetAccountBadges retrieves all badges earned by an account.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetAccountBadges(ctx context.Context, accountID uint) ([]models.EarnedBadge, error) {
	return s.badgeRepo.GetAccountBadges(accountID)
}

// GetBadgeCatalog retrieves all available badges.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}
