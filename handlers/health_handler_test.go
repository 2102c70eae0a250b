package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quotagate/gateway/config"
	"github.com/quotagate/gateway/internal/lifecycle"
	"github.com/quotagate/gateway/internal/memguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	err   error
	calls int
}

func (s *stubStore) HealthCheck(ctx context.Context) error {
	s.calls++
	return s.err
}

func readyLifecycle() *lifecycle.Controller {
	c := lifecycle.NewController(zap.NewNop())
	c.Advance(lifecycle.StateValidating)
	c.Advance(lifecycle.StateReady)
	return c
}

func guardianAt(used uint64) *memguard.Guardian {
	g := memguard.NewGuardian(config.MemoryConfig{
		Enabled:        true,
		WarningBytes:   300,
		CriticalBytes:  400,
		MaxBytes:       450,
		SampleInterval: time.Second,
	}, zap.NewNop(),
		memguard.WithSampleFunc(func() (uint64, uint64, error) { return used, 1000, nil }),
		memguard.WithReclaimFunc(func() {}))
	g.Tick()
	return g
}

func disabledGuardian() *memguard.Guardian {
	return memguard.NewGuardian(config.MemoryConfig{Enabled: false}, zap.NewNop())
}

func TestHandleLiveness_AlwaysAlive(t *testing.T) {
	// store down and lifecycle draining must not matter
	ctrl := readyLifecycle()
	ctrl.Advance(lifecycle.StateDraining)
	h := NewHealthHandler(&stubStore{err: errors.New("down")}, ctrl, disabledGuardian(), zap.NewNop())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.HandleLiveness(rec, httptest.NewRequest("GET", "/health/live", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "alive", body.Status)
	}
}

func TestHandleReadiness(t *testing.T) {
	t.Run("ready when lifecycle admits and store answers", func(t *testing.T) {
		h := NewHealthHandler(&stubStore{}, readyLifecycle(), disabledGuardian(), zap.NewNop())

		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, httptest.NewRequest("GET", "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
	})

	t.Run("not ready while starting, store untouched", func(t *testing.T) {
		store := &stubStore{}
		h := NewHealthHandler(store, lifecycle.NewController(zap.NewNop()), disabledGuardian(), zap.NewNop())

		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, httptest.NewRequest("GET", "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Zero(t, store.calls)
	})

	t.Run("not ready while draining", func(t *testing.T) {
		ctrl := readyLifecycle()
		ctrl.Advance(lifecycle.StateDraining)
		h := NewHealthHandler(&stubStore{}, ctrl, disabledGuardian(), zap.NewNop())

		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, httptest.NewRequest("GET", "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body.Status)
	})

	t.Run("not ready when store unreachable", func(t *testing.T) {
		h := NewHealthHandler(&stubStore{err: errors.New("refused")}, readyLifecycle(), disabledGuardian(), zap.NewNop())

		rec := httptest.NewRecorder()
		h.HandleReadiness(rec, httptest.NewRequest("GET", "/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleHealth_Basic(t *testing.T) {
	h := NewHealthHandler(&stubStore{}, readyLifecycle(), disabledGuardian(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDetailed(t *testing.T) {
	tests := []struct {
		name       string
		store      *stubStore
		lifecycle  func() *lifecycle.Controller
		guardian   *memguard.Guardian
		wantCode   int
		wantStatus string
	}{
		{
			name:       "healthy",
			store:      &stubStore{},
			lifecycle:  readyLifecycle,
			guardian:   guardianAt(100),
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "degraded on memory warning",
			store:      &stubStore{},
			lifecycle:  readyLifecycle,
			guardian:   guardianAt(350),
			wantCode:   http.StatusMultiStatus,
			wantStatus: "degraded",
		},
		{
			name:       "degraded on memory critical",
			store:      &stubStore{},
			lifecycle:  readyLifecycle,
			guardian:   guardianAt(420),
			wantCode:   http.StatusMultiStatus,
			wantStatus: "degraded",
		},
		{
			name:       "unhealthy on memory max",
			store:      &stubStore{},
			lifecycle:  readyLifecycle,
			guardian:   guardianAt(460),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:       "unhealthy on store failure",
			store:      &stubStore{err: errors.New("down")},
			lifecycle:  readyLifecycle,
			guardian:   guardianAt(100),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:  "degraded while draining",
			store: &stubStore{},
			lifecycle: func() *lifecycle.Controller {
				c := readyLifecycle()
				c.Advance(lifecycle.StateDraining)
				return c
			},
			guardian:   guardianAt(100),
			wantCode:   http.StatusMultiStatus,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.store, tt.lifecycle(), tt.guardian, zap.NewNop())

			rec := httptest.NewRecorder()
			h.HandleDetailed(rec, httptest.NewRequest("GET", "/health/detailed", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body DetailedHealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.NotEmpty(t, body.Checks["store"])
			assert.NotEmpty(t, body.Checks["lifecycle"])
			assert.GreaterOrEqual(t, body.UptimeSeconds, 0.0)
		})
	}
}

func TestHandleDetailed_DisabledGuardianOmitsMemory(t *testing.T) {
	h := NewHealthHandler(&stubStore{}, readyLifecycle(), disabledGuardian(), zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleDetailed(rec, httptest.NewRequest("GET", "/health/detailed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Memory)
	assert.Equal(t, "disabled", body.Checks["memory"])
}
