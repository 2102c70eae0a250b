package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
)

// TransactionManager manages store transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Automatically commits if the function succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a store transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// AccountRepository is the credential-store adapter for account records.
// Lookups are read-only; the only mutation is DebitCredits, which the ledger
// calls inside a transaction.
type AccountRepository interface {
	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)

	// GetByCredential retrieves an account by exact credential match
	GetByCredential(ctx context.Context, credential string) (*models.Account, error)

	// DebitCredits atomically decrements credits by cost, increments
	// total_requests and sets last_used_at, guarded by credits >= cost.
	// Returns the post-debit snapshot; sql.ErrNoRows from the guarded update
	// is surfaced so the caller can distinguish a missing account from an
	// insufficient balance.
	DebitCredits(ctx context.Context, id uuid.UUID, cost int64, now time.Time) (*models.Account, error)

	// Exists reports whether an account with the given ID exists
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// RequestRecordRepository handles append-only audit entries for metered calls
type RequestRecordRepository interface {
	// Insert appends a new request record
	Insert(ctx context.Context, rec *models.RequestRecord) error

	// GetByAccountID retrieves records for an account with pagination,
	// newest first
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.RequestRecord, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Accounts       AccountRepository
	RequestRecords RequestRecordRepository
}
