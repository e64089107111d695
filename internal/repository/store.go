package repository

import "context"

// Store bundles the repositories that share one connection or transaction.
type Store struct {
	db       *DB
	Accounts *AccountRepository
	Ledger   *LedgerRepository
	Badges   *BadgeRepository
	Boxes    *BoxRepository
	Tasks    *TaskRepository
	Settings *ConfigurationRepository
}

// NewStore creates repositories bound to db.
func NewStore(db *DB) *Store {
	return &Store{
		db:       db,
		Accounts: NewAccountRepository(db),
		Ledger:   NewLedgerRepository(db),
		Badges:   NewBadgeRepository(db),
		Boxes:    NewBoxRepository(db),
		Tasks:    NewTaskRepository(db),
		Settings: NewConfigurationRepository(db),
	}
}

// WithContext returns a store whose queries are bound to ctx.
func (s *Store) WithContext(ctx context.Context) *Store {
	return NewStore(&DB{s.db.WithContext(ctx)})
}

// Transaction runs fn with a store bound to a single transaction.
// Every write made through tx commits or rolls back together.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.Transaction(ctx, func(tx *DB) error {
		return fn(NewStore(tx))
	})
}

// DB returns the underlying connection.
func (s *Store) DB() *DB {
	return s.db
}
