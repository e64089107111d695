package economy

import (
	"context"
	"strconv"
	"strings"

	"github.com/aimd54/reward-economy/internal/apperrors"
	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/models"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/internal/service/badges"
)

// MaxWalletAddressLength bounds a linked wallet address.
const MaxWalletAddressLength = 128

// EnsureAccount returns the account for externalID, creating it on first
// sight. A new account with a known, distinct referrer credits that referrer
// the referral bonus in the same transaction.
func (s *Service) EnsureAccount(ctx context.Context, externalID, referrerExternalID string) (*models.Account, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, apperrors.Validation("external id is required")
	}

	store := s.store.WithContext(ctx)
	existing, err := store.Accounts.GetByExternalID(externalID)
	if err == nil {
		return existing, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, apperrors.Persistence("failed to load account", err)
	}

	cfg, err := s.settings.Referral(ctx)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	account := &models.Account{ExternalID: externalID, CreatedAt: now, UpdatedAt: now}
	var referrer *models.Account

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		referrer = s.findReferrer(tx, referrerExternalID, externalID)
		if referrer != nil {
			account.ReferredBy = &referrer.ID
		}

		if err := tx.Accounts.Create(account); err != nil {
			return err
		}

		if referrer == nil || cfg.Bonus <= 0 {
			return nil
		}
		_, err := s.apply(tx, referrer.ID, credit{
			change:      repository.BalanceChange{Delta: cfg.Bonus},
			source:      models.SourceReferral,
			sourceRef:   "account:" + strconv.FormatUint(uint64(account.ID), 10),
			description: "Referral bonus",
		}, now)
		return err
	})
	if err != nil {
		// A concurrent first request may have created the account already.
		existing, lookupErr := store.Accounts.GetByExternalID(externalID)
		if lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, apperrors.Persistence("failed to create account", err)
	}

	if referrer != nil && cfg.Bonus > 0 {
		prommetrics.RecordPointsAwarded(models.SourceReferral, cfg.Bonus)
	}

	s.log.Info().
		Uint("account_id", account.ID).
		Str("external_id", externalID).
		Bool("referred", referrer != nil).
		Msg("Account created")

	return account, true, nil
}

// findReferrer resolves the referrer, ignoring unknown, banned and
// self references.
func (s *Service) findReferrer(tx *repository.Store, referrerExternalID, externalID string) *models.Account {
	referrerExternalID = strings.TrimSpace(referrerExternalID)
	if referrerExternalID == "" || referrerExternalID == externalID {
		return nil
	}
	referrer, err := tx.Accounts.GetByExternalID(referrerExternalID)
	if err != nil || referrer.Banned {
		return nil
	}
	return referrer
}

// ConnectWalletResult is the outcome of linking a wallet.
type ConnectWalletResult struct {
	WalletAddress string   `json:"wallet_address"`
	PointsAwarded int64    `json:"points_awarded"`
	NewBalance    int64    `json:"new_balance"`
	EarnedBadges  []string `json:"earned_badges"`
}

// ConnectWallet links an external wallet once and pays the flat connect bonus.
func (s *Service) ConnectWallet(ctx context.Context, accountID uint, address string) (*ConnectWalletResult, error) {
	const op = "connect_wallet"
	now := s.now()

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, s.reject(op, accountID, apperrors.Validation("wallet address is required"))
	}
	if len(address) > MaxWalletAddressLength {
		return nil, s.reject(op, accountID, apperrors.Validation("wallet address is too long"))
	}

	account, err := s.loadAccount(s.store.WithContext(ctx), accountID)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}
	if account.HasWallet() {
		return nil, s.reject(op, accountID, walletLinked())
	}

	cfg, err := s.settings.Wallet(ctx)
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	result := &ConnectWalletResult{WalletAddress: address, PointsAwarded: cfg.ConnectBonus}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Accounts.LinkWallet(accountID, address, now)
		if err != nil {
			return apperrors.Persistence("failed to link wallet", err)
		}
		if !ok {
			return walletLinked()
		}

		result.NewBalance, err = s.apply(tx, accountID, credit{
			change:      repository.BalanceChange{Delta: cfg.ConnectBonus},
			source:      models.SourceWalletBonus,
			description: "Wallet connected",
		}, now)
		if err != nil {
			return err
		}

		result.EarnedBadges, err = s.evaluate(ctx, tx, accountID, badges.EventWalletLinked, now)
		return err
	})
	if err != nil {
		return nil, s.reject(op, accountID, err)
	}

	prommetrics.RecordPointsAwarded(models.SourceWalletBonus, result.PointsAwarded)

	s.log.Info().
		Uint("account_id", accountID).
		Int64("points", result.PointsAwarded).
		Strs("badges", result.EarnedBadges).
		Msg("Wallet connected")

	return result, nil
}

func walletLinked() error {
	return apperrors.New(apperrors.KindConflict, apperrors.CodeWalletAlreadyLinked, "a wallet is already linked")
}
