// Package ledger owns the billing side of a metered call. The debit is a
// single guarded update inside a transaction, so two concurrent requests can
// never spend the same credit twice.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/repositories"
	"github.com/quotagate/gateway/services"
	"go.uber.org/zap"
)

// DefaultCost is the number of credits one metered request consumes
const DefaultCost int64 = 1

// Service debits account credits atomically
type Service struct {
	accounts repositories.AccountRepository
	txMgr    repositories.TransactionManager
	logger   *zap.Logger
}

// NewService creates a new ledger service
func NewService(accounts repositories.AccountRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		txMgr:    txMgr,
		logger:   logger,
	}
}

// Debit charges cost credits to the account and returns the post-debit
// snapshot. A guard failure is classified by re-checking existence: a present
// account means the balance was short, an absent one means the account is
// gone.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, cost int64) (*models.Account, error) {
	if cost <= 0 {
		return nil, services.WrapError(services.ErrInvalidInput,
			fmt.Errorf("debit cost must be positive, got %d", cost))
	}

	var updated *models.Account
	err := s.txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		account, err := s.accounts.DebitCredits(txCtx, accountID, cost, time.Now().UTC())
		if err == nil {
			updated = account
			return nil
		}

		if !errors.Is(err, sql.ErrNoRows) {
			return services.WrapError(services.ErrStoreUnavailable, err)
		}

		exists, existsErr := s.accounts.Exists(txCtx, accountID)
		if existsErr != nil {
			return services.WrapError(services.ErrStoreUnavailable, existsErr)
		}
		if !exists {
			return services.ErrAccountNotFound
		}
		return services.ErrInsufficientCredits
	})
	if err != nil {
		s.logger.Warn("debit failed",
			zap.String("account_id", accountID.String()),
			zap.Int64("cost", cost),
			zap.String("code", services.GetErrorCode(err)))
		return nil, err
	}

	s.logger.Debug("debit applied",
		zap.String("account_id", accountID.String()),
		zap.Int64("cost", cost),
		zap.Int64("credits_remaining", updated.Credits))
	return updated, nil
}
