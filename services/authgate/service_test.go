package authgate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quotagate/gateway/models"
	"github.com/quotagate/gateway/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAccountRepo struct {
	getByCredential func(ctx context.Context, credential string) (*models.Account, error)
}

func (s *stubAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, sql.ErrNoRows
}

func (s *stubAccountRepo) GetByCredential(ctx context.Context, credential string) (*models.Account, error) {
	return s.getByCredential(ctx, credential)
}

func (s *stubAccountRepo) DebitCredits(ctx context.Context, id uuid.UUID, cost int64, now time.Time) (*models.Account, error) {
	return nil, sql.ErrNoRows
}

func (s *stubAccountRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

type stubGate struct{ open bool }

func (g stubGate) AllowAdmission() bool { return g.open }

func activeAccount(credits int64) *models.Account {
	return &models.Account{
		ID:         uuid.New(),
		Credential: "tok-1",
		Credits:    credits,
		Status:     models.StatusActive,
	}
}

func TestAuthenticate_Success(t *testing.T) {
	want := activeAccount(10)
	svc := NewService(&stubAccountRepo{
		getByCredential: func(_ context.Context, credential string) (*models.Account, error) {
			assert.Equal(t, "tok-1", credential)
			return want, nil
		},
	}, stubGate{open: true}, zap.NewNop())

	got, err := svc.Authenticate(context.Background(), "Bearer tok-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestAuthenticate_MissingCredential(t *testing.T) {
	svc := NewService(&stubAccountRepo{}, stubGate{open: true}, zap.NewNop())

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcg==", "tok-1"} {
		_, err := svc.Authenticate(context.Background(), header)
		assert.ErrorIs(t, err, services.ErrMissingCredential, "header=%q", header)
	}
}

func TestAuthenticate_DrainingRejectsBeforeStore(t *testing.T) {
	storeTouched := false
	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			storeTouched = true
			return activeAccount(10), nil
		},
	}, stubGate{open: false}, zap.NewNop())

	_, err := svc.Authenticate(context.Background(), "Bearer tok-1")
	assert.ErrorIs(t, err, services.ErrServiceDraining)
	assert.False(t, storeTouched)
}

func TestAuthenticate_UnknownCredential(t *testing.T) {
	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			return nil, sql.ErrNoRows
		},
	}, stubGate{open: true}, zap.NewNop())

	_, err := svc.Authenticate(context.Background(), "Bearer nope")
	assert.ErrorIs(t, err, services.ErrInvalidCredential)
}

func TestAuthenticate_StoreUnavailable(t *testing.T) {
	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			return nil, errors.New("connection refused")
		},
	}, stubGate{open: true}, zap.NewNop())

	_, err := svc.Authenticate(context.Background(), "Bearer tok-1")
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
}

func TestAuthenticate_Suspended(t *testing.T) {
	acct := activeAccount(10)
	acct.Status = models.StatusSuspended

	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			return acct, nil
		},
	}, stubGate{open: true}, zap.NewNop())

	_, err := svc.Authenticate(context.Background(), "Bearer tok-1")
	assert.ErrorIs(t, err, services.ErrAccountSuspended)
}

func TestAuthenticate_NoCredits(t *testing.T) {
	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			return activeAccount(0), nil
		},
	}, stubGate{open: true}, zap.NewNop())

	_, err := svc.Authenticate(context.Background(), "Bearer tok-1")
	assert.ErrorIs(t, err, services.ErrInsufficientCredits)
}

func TestResolve_EmptyBalanceAllowed(t *testing.T) {
	want := activeAccount(0)
	svc := NewService(&stubAccountRepo{
		getByCredential: func(_ context.Context, credential string) (*models.Account, error) {
			assert.Equal(t, "tok-1", credential)
			return want, nil
		},
	}, stubGate{open: true}, zap.NewNop())

	got, err := svc.Resolve(context.Background(), "Bearer tok-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
}

func TestResolve_IgnoresAdmissionGate(t *testing.T) {
	// read-only surfaces stay reachable while the process drains
	svc := NewService(&stubAccountRepo{
		getByCredential: func(context.Context, string) (*models.Account, error) {
			return activeAccount(5), nil
		},
	}, stubGate{open: false}, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "Bearer tok-1")
	assert.NoError(t, err)
}

func TestResolve_Rejections(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		svc := NewService(&stubAccountRepo{}, stubGate{open: true}, zap.NewNop())
		_, err := svc.Resolve(context.Background(), "")
		assert.ErrorIs(t, err, services.ErrMissingCredential)
	})

	t.Run("unknown credential", func(t *testing.T) {
		svc := NewService(&stubAccountRepo{
			getByCredential: func(context.Context, string) (*models.Account, error) {
				return nil, sql.ErrNoRows
			},
		}, stubGate{open: true}, zap.NewNop())
		_, err := svc.Resolve(context.Background(), "Bearer nope")
		assert.ErrorIs(t, err, services.ErrInvalidCredential)
	})

	t.Run("suspended account", func(t *testing.T) {
		acct := activeAccount(10)
		acct.Status = models.StatusSuspended
		svc := NewService(&stubAccountRepo{
			getByCredential: func(context.Context, string) (*models.Account, error) {
				return acct, nil
			},
		}, stubGate{open: true}, zap.NewNop())
		_, err := svc.Resolve(context.Background(), "Bearer tok-1")
		assert.ErrorIs(t, err, services.ErrAccountSuspended)
	})
}

func TestExtractBearer_CaseInsensitiveScheme(t *testing.T) {
	token, ok := extractBearer("bearer tok-1")
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	token, ok = extractBearer("BEARER tok-2")
	assert.True(t, ok)
	assert.Equal(t, "tok-2", token)
}
