package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestController_HappyPath(t *testing.T) {
	c := NewController(zap.NewNop())

	assert.Equal(t, StateStarting, c.State())
	assert.False(t, c.AllowAdmission())

	assert.True(t, c.Advance(StateValidating))
	assert.False(t, c.AllowAdmission())

	assert.True(t, c.Advance(StateReady))
	assert.True(t, c.AllowAdmission())

	assert.True(t, c.Advance(StateDraining))
	assert.False(t, c.AllowAdmission())

	assert.True(t, c.Advance(StateStopped))
	assert.Equal(t, StateStopped, c.State())
}

func TestController_FailedTerminal(t *testing.T) {
	t.Run("from starting", func(t *testing.T) {
		c := NewController(zap.NewNop())
		assert.True(t, c.Advance(StateFailed))
		assert.Equal(t, StateFailed, c.State())
		// terminal: nothing moves out of failed
		assert.False(t, c.Advance(StateValidating))
		assert.False(t, c.Advance(StateReady))
	})

	t.Run("from validating", func(t *testing.T) {
		c := NewController(zap.NewNop())
		c.Advance(StateValidating)
		assert.True(t, c.Advance(StateFailed))
	})

	t.Run("not reachable from ready", func(t *testing.T) {
		c := NewController(zap.NewNop())
		c.Advance(StateValidating)
		c.Advance(StateReady)
		assert.False(t, c.Advance(StateFailed))
		assert.Equal(t, StateReady, c.State())
	})
}

func TestController_NoRegressions(t *testing.T) {
	c := NewController(zap.NewNop())
	c.Advance(StateValidating)
	c.Advance(StateReady)
	c.Advance(StateDraining)

	assert.False(t, c.Advance(StateReady))
	assert.False(t, c.Advance(StateValidating))
	assert.Equal(t, StateDraining, c.State())
}

func TestController_SecondSignalIgnored(t *testing.T) {
	c := NewController(zap.NewNop())
	c.Advance(StateValidating)
	c.Advance(StateReady)

	assert.True(t, c.Advance(StateDraining))
	// a second termination signal maps to the same transition and is a no-op
	assert.False(t, c.Advance(StateDraining))
	assert.Equal(t, StateDraining, c.State())
}

func TestController_DrainAndWait(t *testing.T) {
	t.Run("clean drain when no work in flight", func(t *testing.T) {
		c := NewController(zap.NewNop())
		assert.True(t, c.DrainAndWait(time.Second))
	})

	t.Run("waits for in-flight work", func(t *testing.T) {
		c := NewController(zap.NewNop())
		done := c.TrackRequest()

		go func() {
			time.Sleep(50 * time.Millisecond)
			done()
		}()

		start := time.Now()
		assert.True(t, c.DrainAndWait(2*time.Second))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("forced after timeout", func(t *testing.T) {
		c := NewController(zap.NewNop())
		done := c.TrackRequest()
		defer done()

		assert.False(t, c.DrainAndWait(50*time.Millisecond))
	})

	t.Run("completion callback is idempotent", func(t *testing.T) {
		c := NewController(zap.NewNop())
		done := c.TrackRequest()
		done()
		done() // must not panic the WaitGroup
		assert.True(t, c.DrainAndWait(time.Second))
	})
}

func TestController_TryTrackRequest(t *testing.T) {
	c := NewController(zap.NewNop())

	_, ok := c.TryTrackRequest()
	assert.False(t, ok, "starting process must not accept work")

	c.Advance(StateValidating)
	c.Advance(StateReady)

	done, ok := c.TryTrackRequest()
	assert.True(t, ok)
	done()

	c.Advance(StateDraining)
	_, ok = c.TryTrackRequest()
	assert.False(t, ok, "draining process must not accept work")
}

func TestController_DrainStarted(t *testing.T) {
	c := NewController(zap.NewNop())
	c.Advance(StateValidating)
	c.Advance(StateReady)

	select {
	case <-c.DrainStarted():
		t.Fatal("drain channel signaled before draining")
	default:
	}

	c.Advance(StateDraining)

	select {
	case <-c.DrainStarted():
	default:
		t.Fatal("drain channel not signaled after draining began")
	}

	// a second (ignored) transition must not re-close the channel
	assert.False(t, c.Advance(StateDraining))
}

func TestController_Uptime(t *testing.T) {
	c := NewController(zap.NewNop())
	time.Sleep(10 * time.Millisecond)
	assert.Greater(t, c.Uptime(), time.Duration(0))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "starting", StateStarting.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
