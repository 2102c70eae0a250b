package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/internal/observability"
	"github.com/quotagate/gateway/middleware"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/services/audit"
	"github.com/quotagate/gateway/services/generation"
	"github.com/quotagate/gateway/services/ledger"
	"github.com/quotagate/gateway/utils"
	"go.uber.org/zap"
)

// defaultMaxTokens applies when the request leaves max_tokens unset
const defaultMaxTokens = 256

// Authenticator resolves a raw Authorization header to an admitted account
type Authenticator interface {
	Authenticate(ctx context.Context, authHeader string) (*models.Account, error)
}

// CreditDebiter charges credits and returns the post-debit snapshot
type CreditDebiter interface {
	Debit(ctx context.Context, accountID uuid.UUID, cost int64) (*models.Account, error)
}

// AuditRecorder appends a request record without blocking the caller
type AuditRecorder interface {
	Record(entry audit.Entry)
}

// GenerateRequest is the request body for POST /api/v1/generate
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required,min=1"`
	MaxTokens int    `json:"max_tokens" validate:"gte=0,lte=4096"`
}

// GenerateResponse is the success payload for POST /api/v1/generate
type GenerateResponse struct {
	Text             string `json:"text"`
	RequestID        string `json:"request_id"`
	CreditsRemaining int64  `json:"credits_remaining"`
}

// GenerateHandler serves the metered generation endpoint
type GenerateHandler struct {
	auth      Authenticator
	generator generation.Generator
	ledger    CreditDebiter
	audit     AuditRecorder
	logger    *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(auth Authenticator, generator generation.Generator, debiter CreditDebiter, recorder AuditRecorder, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		auth:      auth,
		generator: generator,
		ledger:    debiter,
		audit:     recorder,
		logger:    logger,
	}
}

// HandleGenerate handles POST /api/v1/generate.
// Flow: authenticate, call the generator, debit exactly one credit, then
// record the audit entry off the hot path. The debit happens after generation
// so a failed upstream call costs nothing.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestIDFromContext(r.Context())

	account, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		observability.RecordMeteredRequest("rejected", 0)
		HandleServiceError(w, err, h.logger)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordMeteredRequest("invalid_request", 0)
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		observability.RecordMeteredRequest("invalid_request", 0)
		HandleValidationError(w, err, h.logger)
		return
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaultMaxTokens
	}

	genStart := time.Now()
	text, err := h.generator.Generate(r.Context(), req.Prompt, req.MaxTokens)
	genElapsed := time.Since(genStart)
	if err != nil {
		observability.RecordMeteredRequest("upstream_error", genElapsed)
		h.logger.Warn("generation failed",
			zap.String("request_id", requestID),
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	updated, err := h.ledger.Debit(r.Context(), account.ID, ledger.DefaultCost)
	if err != nil {
		// sunk generation cost: the result is discarded when the debit loses
		// the race or the store fails
		observability.RecordMeteredRequest("debit_failed", genElapsed)
		h.logger.Warn("debit failed after successful generation",
			zap.String("request_id", requestID),
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.audit.Record(audit.Entry{
		AccountID:      updated.ID,
		PromptLength:   len(req.Prompt),
		ResponseLength: len(text),
		LatencyMs:      time.Since(start).Milliseconds(),
		CreditsCharged: ledger.DefaultCost,
	})

	observability.RecordMeteredRequest("success", genElapsed)
	observability.RecordCreditsDebited(ledger.DefaultCost)

	h.logger.Info("metered request served",
		zap.String("request_id", requestID),
		zap.String("account_id", updated.ID.String()),
		zap.Int64("credits_remaining", updated.Credits),
		zap.Duration("latency", time.Since(start)))

	_ = utils.WriteOK(w, GenerateResponse{
		Text:             text,
		RequestID:        requestID,
		CreditsRemaining: updated.Credits,
	})
}
