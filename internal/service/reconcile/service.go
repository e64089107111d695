// Package reconcile provides the nightly ledger reconciliation sweep.
package reconcile

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/aimd54/reward-economy/internal/metrics"
	"github.com/aimd54/reward-economy/internal/repository"
	"github.com/aimd54/reward-economy/pkg/logger"
)

const defaultBatchSize = 500

// Mismatch is an account whose stored balance disagrees with its ledger.
type Mismatch struct {
	AccountID  uint
	ExternalID string
	Balance    int64
	LedgerSum  int64
}

// Drift is how far the balance is from the ledger sum.
func (m Mismatch) Drift() int64 {
	return m.Balance - m.LedgerSum
}

// Result summarizes one reconciliation run.
type Result struct {
	Scanned    int
	Mismatches []Mismatch
}

// Service compares every account balance with the sum of its ledger entries.
// It only reports drift; balances are never rewritten.
type Service struct {
	store     *repository.Store
	batchSize int
	log       *logger.Logger
}

// NewService creates a new reconciliation service. A batchSize of zero
// selects the default page size.
func NewService(store *repository.Store, batchSize int, log *logger.Logger) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{store: store, batchSize: batchSize, log: log}
}

// Run scans all accounts, banned ones included, page by page.
func (s *Service) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	store := s.store.WithContext(ctx)

	s.log.Info().Msg("Starting ledger reconciliation")

	var result Result
	var afterID uint
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		accounts, err := store.Accounts.ListPage(afterID, s.batchSize)
		if err != nil {
			return result, fmt.Errorf("failed to list accounts: %w", err)
		}
		if len(accounts) == 0 {
			break
		}

		ids := make([]uint, len(accounts))
		for i := range accounts {
			ids[i] = accounts[i].ID
		}
		sums, err := store.Ledger.SumByAccounts(ids)
		if err != nil {
			return result, fmt.Errorf("failed to sum ledgers: %w", err)
		}

		for _, account := range accounts {
			result.Scanned++
			if sum := sums[account.ID]; sum != account.Balance {
				m := Mismatch{
					AccountID:  account.ID,
					ExternalID: account.ExternalID,
					Balance:    account.Balance,
					LedgerSum:  sum,
				}
				result.Mismatches = append(result.Mismatches, m)
				s.log.Warn().
					Uint("account_id", m.AccountID).
					Str("external_id", m.ExternalID).
					Int64("balance", m.Balance).
					Int64("ledger_sum", m.LedgerSum).
					Int64("drift", m.Drift()).
					Msg("Balance does not match ledger")
			}
		}

		afterID = accounts[len(accounts)-1].ID
		if len(accounts) < s.batchSize {
			break
		}
	}

	prommetrics.SetLedgerMismatches(len(result.Mismatches))

	s.log.Info().
		Int("scanned", result.Scanned).
		Int("mismatched", len(result.Mismatches)).
		Dur("duration", time.Since(start)).
		Msg("Ledger reconciliation completed")

	return result, nil
}
