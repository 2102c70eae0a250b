package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/repositories"
	"go.uber.org/zap"
)

// AccountRepository implements the repositories.AccountRepository interface
type AccountRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB, logger *zap.Logger) repositories.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

const accountColumns = "id, credential, credits, total_requests, status, last_used_at, created_at, updated_at"

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	return scanAccount(executor.QueryRowContext(ctx, query, id))
}

// GetByCredential retrieves an account by exact credential match
func (r *AccountRepository) GetByCredential(ctx context.Context, credential string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE credential = $1
	`

	executor := GetExecutor(ctx, r.db)
	return scanAccount(executor.QueryRowContext(ctx, query, credential))
}

// DebitCredits applies the debit as a single guarded update: the balance
// check, decrement, request counter and last-used timestamp all land together
// or not at all. A concurrent debit that drains the balance first makes the
// guard fail and the update returns no rows.
func (r *AccountRepository) DebitCredits(ctx context.Context, id uuid.UUID, cost int64, now time.Time) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET credits = credits - $2,
		    total_requests = total_requests + 1,
		    last_used_at = $3,
		    updated_at = $3
		WHERE id = $1 AND credits >= $2
		RETURNING ` + accountColumns + `
	`

	executor := GetExecutor(ctx, r.db)
	account, err := scanAccount(executor.QueryRowContext(ctx, query, id, cost, now))
	if err != nil {
		return nil, err
	}

	r.logger.Debug("account debited",
		zap.String("id", id.String()),
		zap.Int64("cost", cost),
		zap.Int64("credits_remaining", account.Credits))
	return account, nil
}

// Exists reports whether an account with the given ID exists
func (r *AccountRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	executor := GetExecutor(ctx, r.db)
	var exists bool
	if err := executor.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// scanAccount scans a single account row. sql.ErrNoRows passes through
// untouched so callers can classify it.
func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.Credential,
		&account.Credits,
		&account.TotalRequests,
		&account.Status,
		&account.LastUsedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return account, nil
}
