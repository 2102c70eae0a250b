// Package memguard samples process memory on a timer, classifies pressure
// against configured thresholds and requests a runtime reclamation pass when
// pressure turns critical. It never sits on the request path; health
// reporting reads the last sample synchronously.
package memguard

import (
	"context"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/quotagate/gateway/config"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Level classifies memory pressure
type Level string

const (
	LevelHealthy  Level = "healthy"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelMax      Level = "max"
	LevelDisabled Level = "disabled"
)

// Sample is an ephemeral snapshot of process memory usage
type Sample struct {
	UsedBytes  uint64  `json:"used_bytes"`
	TotalBytes uint64  `json:"total_bytes"`
	Percent    float64 `json:"percent"`
	Level      Level   `json:"level"`
}

// SampleFunc reports current process usage and total system memory
type SampleFunc func() (used, total uint64, err error)

// ReclaimFunc requests a reclamation pass from the runtime
type ReclaimFunc func()

// Guardian owns the sampling loop. The zero-interval or disabled guardian is
// a no-op and reports LevelDisabled.
type Guardian struct {
	cfg     config.MemoryConfig
	sample  SampleFunc
	reclaim ReclaimFunc
	logger  *zap.Logger

	mu      sync.Mutex
	last    Sample
	sampled bool
	latched bool // reclamation already requested for the current breach
}

// Option customizes a Guardian, mainly for tests
type Option func(*Guardian)

// WithSampleFunc overrides the memory sampler
func WithSampleFunc(fn SampleFunc) Option {
	return func(g *Guardian) { g.sample = fn }
}

// WithReclaimFunc overrides the reclamation hook
func WithReclaimFunc(fn ReclaimFunc) Option {
	return func(g *Guardian) { g.reclaim = fn }
}

// NewGuardian creates a memory guardian. The default sampler reads the
// process RSS via gopsutil; the default reclaimer returns freed heap to the
// OS via debug.FreeOSMemory.
func NewGuardian(cfg config.MemoryConfig, logger *zap.Logger, opts ...Option) *Guardian {
	g := &Guardian{
		cfg:     cfg,
		sample:  processSample,
		reclaim: func() { debug.FreeOSMemory() },
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run starts the sampling loop and blocks until the context is canceled.
// A disabled guardian returns immediately.
func (g *Guardian) Run(ctx context.Context) {
	if !g.cfg.Enabled {
		g.logger.Info("memory guardian disabled by configuration")
		return
	}

	ticker := time.NewTicker(g.cfg.SampleInterval)
	defer ticker.Stop()

	g.logger.Info("memory guardian started",
		zap.Duration("interval", g.cfg.SampleInterval),
		zap.Uint64("warning_bytes", g.cfg.WarningBytes),
		zap.Uint64("critical_bytes", g.cfg.CriticalBytes),
		zap.Uint64("max_bytes", g.cfg.MaxBytes))

	g.Tick() // first sample up front so health never reports stale zeroes

	for {
		select {
		case <-ticker.C:
			g.Tick()
		case <-ctx.Done():
			g.logger.Info("memory guardian stopped")
			return
		}
	}
}

// Tick takes one sample, classifies it and requests reclamation at most once
// per breach of the critical threshold.
func (g *Guardian) Tick() {
	used, total, err := g.sample()
	if err != nil {
		g.logger.Warn("memory sample failed", zap.Error(err))
		return
	}

	s := Sample{
		UsedBytes:  used,
		TotalBytes: total,
		Level:      g.classify(used),
	}
	if total > 0 {
		s.Percent = float64(used) / float64(total) * 100
	}

	g.mu.Lock()
	g.last = s
	g.sampled = true
	needReclaim := false
	switch s.Level {
	case LevelCritical, LevelMax:
		if !g.latched {
			g.latched = true
			needReclaim = true
		}
	default:
		g.latched = false
	}
	g.mu.Unlock()

	if s.Level != LevelHealthy {
		g.logger.Warn("memory pressure",
			zap.String("level", string(s.Level)),
			zap.Uint64("used_bytes", used),
			zap.Float64("percent", s.Percent))
	}

	if needReclaim {
		if g.reclaim != nil {
			g.logger.Warn("requesting memory reclamation pass",
				zap.Uint64("used_bytes", used))
			g.reclaim()
		} else {
			g.logger.Warn("memory reclamation unavailable")
		}
	}
}

// Status returns the latest sample synchronously. Before the first sample,
// or when disabled, the level is LevelDisabled.
func (g *Guardian) Status() Sample {
	if !g.cfg.Enabled {
		return Sample{Level: LevelDisabled}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.sampled {
		return Sample{Level: LevelDisabled}
	}
	return g.last
}

func (g *Guardian) classify(used uint64) Level {
	switch {
	case used >= g.cfg.MaxBytes:
		return LevelMax
	case used >= g.cfg.CriticalBytes:
		return LevelCritical
	case used >= g.cfg.WarningBytes:
		return LevelWarning
	default:
		return LevelHealthy
	}
}

// processSample reads the process RSS and total system memory
func processSample() (uint64, uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return info.RSS, vm.Total, nil
}
