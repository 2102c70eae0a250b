package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the gating status of a metered account
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Account represents a metered caller's balance and status record.
// Credits and TotalRequests are mutated exclusively by the ledger debit;
// every other component only reads.
type Account struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Credential    string        `json:"-" db:"credential"` // opaque bearer secret, unique
	Credits       int64         `json:"credits" db:"credits"`
	TotalRequests int64         `json:"total_requests" db:"total_requests"`
	Status        AccountStatus `json:"status" db:"status"`
	LastUsedAt    *time.Time    `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new Account instance
func NewAccount(credential string, credits int64) *Account {
	now := time.Now()
	return &Account{
		ID:         uuid.New(),
		Credential: credential,
		Credits:    credits,
		Status:     StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive returns true if the account may be admitted
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// HasCredits returns true if the account has a positive balance.
// This check is advisory; the ledger re-verifies inside its transaction.
func (a *Account) HasCredits() bool {
	return a.Credits > 0
}
