// Package economy orchestrates every balance-changing operation. Each one
// runs its state transition, balance update, ledger append and badge
// evaluation in a single transaction.
package economy

import (
	"context"
	"errors"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
	"github.com/aimd54/reward-economy/internal/service/boxes"
	"github.com/aimd54/reward-economy/internal/service/multiplier"
	"github.com/aimd54/reward-economy/internal/service/settings"
	"github.com/aimd54/reward-economy/internal/service/streak"
	"github.com/aimd54/reward-economy/internal/service/tasks"
	"github.com/aimd54/reward-economy/pkg/logger"
)

// SettingsProvider supplies the tunables the orchestrator reads at call time.
type SettingsProvider interface {
	Checkin(ctx context.Context) (settings.CheckinSettings, error)
	Wallet(ctx context.Context) (settings.WalletSettings, error)
	Referral(ctx context.Context) (settings.ReferralSettings, error)
}

// Service is the economy orchestrator.
type Service struct {
	store    *repository.Store
	settings SettingsProvider
	tracker  *streak.Tracker
	boxes    *boxes.Service
	tasks    *tasks.Service
	badges   *badges.Service
	now      func() time.Time
	log      *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the orchestrator.
func NewService(
	store *repository.Store,
	provider SettingsProvider,
	tracker *streak.Tracker,
	boxSvc *boxes.Service,
	taskSvc *tasks.Service,
	badgeSvc *badges.Service,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:    store,
		settings: provider,
		tracker:  tracker,
		boxes:    boxSvc,
		tasks:    taskSvc,
		badges:   badgeSvc,
		now:      Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the default clock. Timestamps are kept in UTC at microsecond
// precision so values read back from PostgreSQL compare equal to what was written.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// loadAccount returns the account or a not_found / account_banned rejection.
func (s *Service) loadAccount(store *repository.Store, accountID uint) (*models.Account, error) {
	account, err := store.Accounts.GetByID(accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Persistence("failed to load account", err)
	}
	if account.Banned {
		return nil, apperrors.New(apperrors.KindPrecondition, apperrors.CodeAccountBanned, "account is banned")
	}
	return account, nil
}

// multiplierFor composes the account's current multiplier.
func (s *Service) multiplierFor(store *repository.Store, accountID uint, now time.Time) (multiplier.Multiplier, error) {
	active, err := store.Badges.GetActiveBadges(accountID)
	if err != nil {
		return multiplier.Multiplier{}, apperrors.Persistence("failed to load badges", err)
	}
	return multiplier.Compute(active, now), nil
}

// credit is one balance change routed through apply.
type credit struct {
	change      repository.BalanceChange
	source      string
	sourceRef   string
	description string
}

// apply is the shared balance path: a guarded balance update followed by
// the ledger entry carrying the resulting balance. It must run inside tx.
func (s *Service) apply(tx *repository.Store, accountID uint, c credit, now time.Time) (int64, error) {
	balance, err := tx.Accounts.ApplyBalanceChange(accountID, c.change, now)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return 0, apperrors.New(apperrors.KindPrecondition, apperrors.CodeInsufficientBalance, "balance cannot go negative")
		}
		return 0, apperrors.Persistence("failed to update balance", err)
	}

	entry := &models.LedgerEntry{
		AccountID:    accountID,
		Amount:       c.change.Delta,
		BalanceAfter: balance,
		Source:       c.source,
		Description:  c.description,
		CreatedAt:    now,
	}
	if c.sourceRef != "" {
		ref := c.sourceRef
		entry.SourceRef = &ref
	}
	if err := tx.Ledger.Append(entry); err != nil {
		return 0, apperrors.Persistence("failed to append ledger entry", err)
	}

	return balance, nil
}

// evaluate reloads the account inside tx and runs the badge step for event.
// It returns the codes of the newly earned badges.
func (s *Service) evaluate(ctx context.Context, tx *repository.Store, accountID uint, event badges.Event, now time.Time) ([]string, error) {
	fresh, err := tx.Accounts.GetByID(accountID)
	if err != nil {
		return nil, apperrors.Persistence("failed to reload account", err)
	}
	earned, err := s.badges.Evaluate(ctx, tx.Badges, fresh, event, now)
	if err != nil {
		return nil, apperrors.Persistence("failed to evaluate badges", err)
	}
	return badgeCodes(earned), nil
}

// reject records a rejection metric and passes err through.
func (s *Service) reject(operation string, accountID uint, err error) error {
	if apperrors.KindOf(err) == apperrors.KindPersistence {
		s.log.Error().Err(err).Str("operation", operation).Uint("account_id", accountID).Msg("Economy operation failed")
	} else {
		s.log.Debug().Err(err).Str("operation", operation).Uint("account_id", accountID).Msg("Economy operation rejected")
	}
	prommetrics.RecordRejection(operation, string(apperrors.CodeOf(err)))
	return err
}

func badgeCodes(earned []models.Badge) []string {
	codes := make([]string, 0, len(earned))
	for i := range earned {
		codes = append(codes, earned[i].Code)
	}
	return codes
}
