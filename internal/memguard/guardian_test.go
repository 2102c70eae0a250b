package memguard

import (
	"context"
	"testing"
	"time"

	"github.com/quotagate/gateway/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testConfig() config.MemoryConfig {
	return config.MemoryConfig{
		Enabled:        true,
		WarningBytes:   300,
		CriticalBytes:  400,
		MaxBytes:       450,
		SampleInterval: time.Second,
	}
}

func fixedSample(used uint64) SampleFunc {
	return func() (uint64, uint64, error) { return used, 1000, nil }
}

func TestGuardian_Classification(t *testing.T) {
	tests := []struct {
		used uint64
		want Level
	}{
		{0, LevelHealthy},
		{299, LevelHealthy},
		{300, LevelWarning},
		{399, LevelWarning},
		{400, LevelCritical},
		{449, LevelCritical},
		{450, LevelMax},
		{10000, LevelMax},
	}

	for _, tt := range tests {
		g := NewGuardian(testConfig(), zap.NewNop(),
			WithSampleFunc(fixedSample(tt.used)),
			WithReclaimFunc(func() {}))
		g.Tick()

		s := g.Status()
		assert.Equal(t, tt.want, s.Level, "used=%d", tt.used)
		assert.Equal(t, tt.used, s.UsedBytes)
	}
}

func TestGuardian_Percent(t *testing.T) {
	g := NewGuardian(testConfig(), zap.NewNop(),
		WithSampleFunc(fixedSample(250)),
		WithReclaimFunc(func() {}))
	g.Tick()

	assert.InDelta(t, 25.0, g.Status().Percent, 0.01)
}

func TestGuardian_ReclaimOncePerBreach(t *testing.T) {
	used := uint64(100)
	reclaims := 0

	g := NewGuardian(testConfig(), zap.NewNop(),
		WithSampleFunc(func() (uint64, uint64, error) { return used, 1000, nil }),
		WithReclaimFunc(func() { reclaims++ }))

	// healthy: no reclamation
	g.Tick()
	assert.Equal(t, 0, reclaims)

	// breach: exactly one reclamation even across repeated ticks
	used = 420
	g.Tick()
	g.Tick()
	g.Tick()
	assert.Equal(t, 1, reclaims)

	// recover, then breach again: latch resets
	used = 100
	g.Tick()
	used = 460
	g.Tick()
	g.Tick()
	assert.Equal(t, 2, reclaims)
}

func TestGuardian_WarningDoesNotReclaim(t *testing.T) {
	reclaims := 0
	g := NewGuardian(testConfig(), zap.NewNop(),
		WithSampleFunc(fixedSample(350)),
		WithReclaimFunc(func() { reclaims++ }))

	g.Tick()
	assert.Equal(t, LevelWarning, g.Status().Level)
	assert.Equal(t, 0, reclaims)
}

func TestGuardian_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	g := NewGuardian(cfg, zap.NewNop(), WithSampleFunc(fixedSample(999)))

	assert.Equal(t, LevelDisabled, g.Status().Level)

	// Run returns immediately for a disabled guardian
	done := make(chan struct{})
	go func() {
		g.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled guardian did not return from Run")
	}
}

func TestGuardian_StatusBeforeFirstSample(t *testing.T) {
	g := NewGuardian(testConfig(), zap.NewNop())
	assert.Equal(t, LevelDisabled, g.Status().Level)
}

func TestGuardian_SampleErrorKeepsLastSample(t *testing.T) {
	failing := false
	g := NewGuardian(testConfig(), zap.NewNop(),
		WithSampleFunc(func() (uint64, uint64, error) {
			if failing {
				return 0, 0, assert.AnError
			}
			return 200, 1000, nil
		}),
		WithReclaimFunc(func() {}))

	g.Tick()
	assert.Equal(t, LevelHealthy, g.Status().Level)

	failing = true
	g.Tick()
	// failed sample must not clobber the last good one
	assert.Equal(t, uint64(200), g.Status().UsedBytes)
}
