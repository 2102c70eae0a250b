package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Account tests
func TestNewAccount(t *testing.T) {
	acct := NewAccount("sk-test-credential", 100)

	assert.NotEqual(t, uuid.Nil, acct.ID)
	assert.Equal(t, "sk-test-credential", acct.Credential)
	assert.Equal(t, int64(100), acct.Credits)
	assert.Equal(t, int64(0), acct.TotalRequests)
	assert.Equal(t, StatusActive, acct.Status)
	assert.Nil(t, acct.LastUsedAt)
	assert.False(t, acct.CreatedAt.IsZero())
	assert.Equal(t, acct.CreatedAt, acct.UpdatedAt)
}

func TestAccount_TableName(t *testing.T) {
	assert.Equal(t, "accounts", Account{}.TableName())
}

func TestAccount_IsActive(t *testing.T) {
	acct := NewAccount("cred", 10)
	assert.True(t, acct.IsActive())

	acct.Status = StatusSuspended
	assert.False(t, acct.IsActive())
}

func TestAccount_HasCredits(t *testing.T) {
	acct := NewAccount("cred", 1)
	assert.True(t, acct.HasCredits())

	acct.Credits = 0
	assert.False(t, acct.HasCredits())

	acct.Credits = -1 // never observable in practice, the check still holds
	assert.False(t, acct.HasCredits())
}

func TestAccount_CredentialNotMarshaled(t *testing.T) {
	acct := NewAccount("super-secret", 5)

	data, err := json.Marshal(acct)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "super-secret")
	assert.Contains(t, string(data), `"credits":5`)
}

// RequestRecord tests
func TestNewRequestRecord(t *testing.T) {
	accountID := uuid.New()

	rec := NewRequestRecord(accountID, 128, 512, 250, 1)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, accountID, rec.AccountID)
	assert.Equal(t, 128, rec.PromptLength)
	assert.Equal(t, 512, rec.ResponseLength)
	assert.Equal(t, int64(250), rec.LatencyMs)
	assert.Equal(t, int64(1), rec.CreditsCharged)
	assert.WithinDuration(t, time.Now(), rec.Timestamp, time.Second)
}

func TestNewRequestRecord_CapsPromptLength(t *testing.T) {
	longPrompt := len(strings.Repeat("x", MaxStoredPromptLength)) + 1000

	rec := NewRequestRecord(uuid.New(), longPrompt, 0, 10, 1)

	assert.Equal(t, MaxStoredPromptLength, rec.PromptLength)
}

func TestRequestRecord_TableName(t *testing.T) {
	assert.Equal(t, "request_records", RequestRecord{}.TableName())
}
