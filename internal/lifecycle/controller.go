// Package lifecycle owns the process-wide startup/ready/drain/stop state
// machine. The controller is the single writer; every other component only
// reads, and the state only ever advances forward.
package lifecycle

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the process lifecycle state
type State int32

const (
	StateStarting State = iota
	StateValidating
	StateReady
	StateDraining
	StateStopped
	StateFailed
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateValidating:
		return "validating"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validTransitions encodes the forward-only state machine. FAILED is terminal
// and reachable only from the startup phases.
var validTransitions = map[State][]State{
	StateStarting:   {StateValidating, StateFailed},
	StateValidating: {StateReady, StateFailed},
	StateReady:      {StateDraining},
	StateDraining:   {StateStopped},
}

// Controller owns the lifecycle state and in-flight request accounting.
// It replaces ambient globals: main constructs one and hands it to signal
// handling, admission checks and health reporting.
type Controller struct {
	mu        sync.Mutex
	state     State
	startedAt time.Time
	inflight  sync.WaitGroup
	drainCh   chan struct{}
	logger    *zap.Logger
}

// NewController creates a controller in the STARTING state
func NewController(logger *zap.Logger) *Controller {
	return &Controller{
		state:     StateStarting,
		startedAt: time.Now(),
		drainCh:   make(chan struct{}),
		logger:    logger,
	}
}

// Advance moves the state machine forward. Invalid transitions (including a
// repeated move to the current state, e.g. a second termination signal while
// already draining) are ignored and return false.
func (c *Controller) Advance(to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, next := range validTransitions[c.state] {
		if next == to {
			c.logger.Info("lifecycle transition",
				zap.String("from", c.state.String()),
				zap.String("to", to.String()))
			c.state = to
			if to == StateDraining {
				// forward-only machine: draining is entered at most once
				close(c.drainCh)
			}
			return true
		}
	}

	c.logger.Debug("lifecycle transition ignored",
		zap.String("from", c.state.String()),
		zap.String("to", to.String()))
	return false
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AllowAdmission reports whether new metered work may be admitted.
// False during startup phases and from the moment draining begins.
func (c *Controller) AllowAdmission() bool {
	return c.State() == StateReady
}

// DrainStarted returns a channel closed when draining begins, whatever
// triggered it. main selects on it alongside signals so an internally
// initiated drain also shuts the server down.
func (c *Controller) DrainStarted() <-chan struct{} {
	return c.drainCh
}

// Uptime returns the time since the controller was constructed
func (c *Controller) Uptime() time.Duration {
	return time.Since(c.startedAt)
}

// TrackRequest registers one unit of in-flight work and returns its
// completion callback. Call only after admission succeeded, so no new work
// registers once draining has started.
func (c *Controller) TrackRequest() func() {
	c.inflight.Add(1)
	var once sync.Once
	return func() {
		once.Do(c.inflight.Done)
	}
}

// TryTrackRequest registers in-flight work only while the process is
// admitting. The state check and registration happen under the same lock as
// Advance, so no work can register once draining has begun.
func (c *Controller) TryTrackRequest() (func(), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return nil, false
	}

	c.inflight.Add(1)
	var once sync.Once
	return func() {
		once.Do(c.inflight.Done)
	}, true
}

// DrainAndWait blocks until all in-flight work completes or the timeout
// elapses. Returns true on a clean drain, false when work had to be
// abandoned.
func (c *Controller) DrainAndWait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("drain complete, all in-flight work finished")
		return true
	case <-time.After(timeout):
		c.logger.Warn("drain timeout elapsed with work still in flight",
			zap.Duration("timeout", timeout))
		return false
	}
}
