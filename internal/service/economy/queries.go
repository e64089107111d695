package economy

import (
	"context"
	"time"

	"github.com/aimd54/reward-economy/internal/apperrors"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
)

// Ledger page bounds.
const (
	DefaultLedgerLimit = 20
	MaxLedgerLimit     = 100
)

// Profile is the account summary shown to its owner.
type Profile struct {
	Account       *models.Account `json:"account"`
	Multiplier    float64         `json:"multiplier"`
	CanCheckin    bool            `json:"can_checkin"`
	NextCheckinAt time.Time       `json:"next_checkin_at"`
}

// Profile returns the account with its current multiplier and check-in state.
func (s *Service) Profile(ctx context.Context, accountID uint) (*Profile, error) {
	store := s.store.WithContext(ctx)
	now := s.now()

	account, err := s.loadAccount(store, accountID)
	if err != nil {
		return nil, err
	}
	m, err := s.multiplierFor(store, accountID, now)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Account:    account,
		Multiplier: m.Float(),
		CanCheckin: s.tracker.Eligible(account.LastCheckinAt, now),
	}
	if profile.CanCheckin {
		profile.NextCheckinAt = now
	} else {
		profile.NextCheckinAt = s.tracker.NextCheckin(now)
	}
	return profile, nil
}

// Ledger returns the newest ledger entries first. Limit is clamped to
// [1, MaxLedgerLimit]; zero selects DefaultLedgerLimit.
func (s *Service) Ledger(ctx context.Context, accountID uint, limit int) ([]models.LedgerEntry, error) {
	switch {
	case limit < 0:
		return nil, apperrors.Validation("limit cannot be negative")
	case limit == 0:
		limit = DefaultLedgerLimit
	case limit > MaxLedgerLimit:
		limit = MaxLedgerLimit
	}

	entries, err := s.store.WithContext(ctx).Ledger.ListByAccount(accountID, limit)
	if err != nil {
		return nil, apperrors.Persistence("failed to list ledger", err)
	}
	return entries, nil
}

// EarnedBadges returns every badge the account holds.
func (s *Service) EarnedBadges(ctx context.Context, accountID uint) ([]models.EarnedBadge, error) {
	earned, err := s.badges.GetAccountBadges(ctx, accountID)
	if err != nil {
		return nil, apperrors.Persistence("failed to list badges", err)
	}
	return earned, nil
}

// BadgeCatalog returns every badge definition.
func (s *Service) BadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	catalog, err := s.badges.GetBadgeCatalog(ctx)
	if err != nil {
		return nil, apperrors.Persistence("failed to list badge catalog", err)
	}
	return catalog, nil
}

// AuditResult compares a stored balance with the sum of its ledger.
type AuditResult struct {
	AccountID  uint  `json:"account_id"`
	Balance    int64 `json:"balance"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}

// Audit checks that the account balance equals the sum of its ledger entries.
func (s *Service) Audit(ctx context.Context, accountID uint) (*AuditResult, error) {
	store := s.store.WithContext(ctx)

	account, err := store.Accounts.GetByID(accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, apperrors.CodeNotFound, "account not found")
		}
		return nil, apperrors.Persistence("failed to load account", err)
	}
	sum, err := store.Ledger.SumByAccount(accountID)
	if err != nil {
		return nil, apperrors.Persistence("failed to sum ledger", err)
	}

	result := &AuditResult{
		AccountID:  accountID,
		Balance:    account.Balance,
		LedgerSum:  sum,
		Consistent: account.Balance == sum,
	}
	if !result.Consistent {
		s.log.Warn().
			Uint("account_id", accountID).
			Int64("balance", account.Balance).
			Int64("ledger_sum", sum).
			Msg("Balance does not match ledger")
	}
	return result, nil
}
