// Package authgate authenticates callers and applies the admission policy
// for metered requests.
package authgate

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/repositories"
	"github.com/quotagate/gateway/services"
	"go.uber.org/zap"
)

// AdmissionGate reports whether the process is accepting new metered work
type AdmissionGate interface {
	AllowAdmission() bool
}

// Service authenticates a caller credential against the account store.
// The admission check runs before any store access so a draining process
// rejects cheaply.
type Service struct {
	accounts repositories.AccountRepository
	gate     AdmissionGate
	logger   *zap.Logger
}

// NewService creates a new authentication gate
func NewService(accounts repositories.AccountRepository, gate AdmissionGate, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		gate:     gate,
		logger:   logger,
	}
}

// Authenticate resolves the Authorization header to an active account with
// available credits. Every rejection maps to a distinct domain error.
func (s *Service) Authenticate(ctx context.Context, authHeader string) (*models.Account, error) {
	credential, ok := extractBearer(authHeader)
	if !ok {
		s.logger.Debug("request rejected: missing or malformed credential")
		return nil, services.ErrMissingCredential
	}

	if !s.gate.AllowAdmission() {
		s.logger.Info("request rejected: not accepting new work")
		return nil, services.ErrServiceDraining
	}

	account, err := s.lookupActive(ctx, credential)
	if err != nil {
		return nil, err
	}

	if !account.HasCredits() {
		s.logger.Info("request rejected: no credits remaining",
			zap.String("account_id", account.ID.String()))
		return nil, services.ErrInsufficientCredits
	}

	s.logger.Debug("request admitted",
		zap.String("account_id", account.ID.String()),
		zap.Int64("credits", account.Credits))
	return account, nil
}

// Resolve authenticates the Authorization header for read-only account
// surfaces. It skips the admission gate and the balance check so an account
// with an empty balance can still inspect itself while the process drains.
func (s *Service) Resolve(ctx context.Context, authHeader string) (*models.Account, error) {
	credential, ok := extractBearer(authHeader)
	if !ok {
		s.logger.Debug("request rejected: missing or malformed credential")
		return nil, services.ErrMissingCredential
	}

	return s.lookupActive(ctx, credential)
}

// lookupActive resolves a credential to a non-suspended account
func (s *Service) lookupActive(ctx context.Context, credential string) (*models.Account, error) {
	account, err := s.accounts.GetByCredential(ctx, credential)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("request rejected: unknown credential")
			return nil, services.ErrInvalidCredential
		}
		s.logger.Error("account lookup failed", zap.Error(err))
		return nil, services.WrapError(services.ErrStoreUnavailable, err)
	}

	if !account.IsActive() {
		s.logger.Info("request rejected: account suspended",
			zap.String("account_id", account.ID.String()))
		return nil, services.ErrAccountSuspended
	}

	return account, nil
}

// extractBearer pulls the token out of an Authorization header. The scheme
// comparison is case-insensitive per RFC 7235.
func extractBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
