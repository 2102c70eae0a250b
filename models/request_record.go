package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxStoredPromptLength caps RequestRecord.PromptLength before storage to
// bound record size. Longer prompts are recorded as this value.
const MaxStoredPromptLength = 4096

// RequestRecord is an append-only audit entry for one metered call.
// Records are created after a successful debit and never mutated; failure to
// create one is non-fatal to the request.
type RequestRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	AccountID      uuid.UUID `json:"account_id" db:"account_id"` // relation only, not ownership
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	PromptLength   int       `json:"prompt_length" db:"prompt_length"`
	ResponseLength int       `json:"response_length" db:"response_length"`
	LatencyMs      int64     `json:"latency_ms" db:"latency_ms"`
	CreditsCharged int64     `json:"credits_charged" db:"credits_charged"`
}

// TableName returns the table name for the RequestRecord model
func (RequestRecord) TableName() string {
	return "request_records"
}

// NewRequestRecord creates a new RequestRecord, capping the stored prompt length
func NewRequestRecord(accountID uuid.UUID, promptLength, responseLength int, latencyMs, creditsCharged int64) *RequestRecord {
	if promptLength > MaxStoredPromptLength {
		promptLength = MaxStoredPromptLength
	}
	return &RequestRecord{
		ID:             uuid.New(),
		AccountID:      accountID,
		Timestamp:      time.Now(),
		PromptLength:   promptLength,
		ResponseLength: responseLength,
		LatencyMs:      latencyMs,
		CreditsCharged: creditsCharged,
	}
}
