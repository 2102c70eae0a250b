package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/middleware"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/services"
	"github.com/quotagate/gateway/utils"
	"go.uber.org/zap"
)

// AccountResolver authenticates a credential for read-only account surfaces
type AccountResolver interface {
	Resolve(ctx context.Context, authHeader string) (*models.Account, error)
}

// AccountGetter loads an account snapshot by ID
type AccountGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// HistoryLister returns audit entries for an account, newest first
type HistoryLister interface {
	History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.RequestRecord, error)
}

// AccountHandler serves the self-service account endpoints. Callers see only
// their own account: the credential itself scopes every lookup.
type AccountHandler struct {
	auth     AccountResolver
	accounts AccountGetter
	history  HistoryLister
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(auth AccountResolver, accounts AccountGetter, history HistoryLister, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		auth:     auth,
		accounts: accounts,
		history:  history,
		logger:   logger,
	}
}

// RequireAccount authenticates the credential and stores the resolved account
// ID in the request context for the handlers downstream.
func (h *AccountHandler) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := h.auth.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}

		ctx := middleware.WithAccountID(r.Context(), account.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleGetAccount handles GET /api/v1/account.
// Re-reads the account by ID so the response reflects the current balance,
// not the snapshot taken during authentication.
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())
	if accountID == uuid.Nil {
		HandleServiceError(w, services.ErrMissingCredential, h.logger)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			HandleServiceError(w, services.ErrAccountNotFound, h.logger)
			return
		}
		h.logger.Error("account read failed",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		HandleServiceError(w, services.WrapError(services.ErrStoreUnavailable, err), h.logger)
		return
	}

	_ = utils.WriteOK(w, account)
}

// HandleHistory handles GET /api/v1/account/history with limit and offset
// query parameters. Out-of-range values fall back to the service defaults.
func (h *AccountHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountIDFromContext(r.Context())
	if accountID == uuid.Nil {
		HandleServiceError(w, services.ErrMissingCredential, h.logger)
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	records, err := h.history.History(r.Context(), accountID, limit, offset)
	if err != nil {
		h.logger.Error("history read failed",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		HandleServiceError(w, services.WrapError(services.ErrStoreUnavailable, err), h.logger)
		return
	}

	if records == nil {
		records = []*models.RequestRecord{}
	}
	_ = utils.WriteOK(w, records)
}

// queryInt parses an integer query parameter, falling back on absence or junk
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
