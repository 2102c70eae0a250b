package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quotagate/gateway/app"
	"github.com/quotagate/gateway/config"
	"github.com/quotagate/gateway/internal/lifecycle"
	"github.com/quotagate/gateway/internal/observability"
	"github.com/quotagate/gateway/routes"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run owns the whole lifecycle: starting -> validating -> ready -> draining
// -> stopped, with failed terminal when startup validation does not pass.
// The exit code is 0 only for a clean drain.
func run() int {
	// bootstrap logger until configuration tells us the real level
	logger, err := observability.NewLogger("info", os.Getenv("ENVIRONMENT"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctrl := lifecycle.NewController(logger)
	observability.SetLifecycleState(int(ctrl.State()))

	ctrl.Advance(lifecycle.StateValidating)
	observability.SetLifecycleState(int(lifecycle.StateValidating))

	cfg, err := config.New()
	if err != nil {
		// the port is never bound when validation fails
		ctrl.Advance(lifecycle.StateFailed)
		observability.SetLifecycleState(int(lifecycle.StateFailed))
		logger.Error("startup validation failed", zap.Error(err))
		return 1
	}

	if cfgLogger, lerr := observability.NewLogger(cfg.LogLevel, cfg.Environment); lerr == nil {
		logger = cfgLogger
		defer func() { _ = logger.Sync() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.NewDependencies(ctx, cfg, logger, ctrl)
	if err != nil {
		ctrl.Advance(lifecycle.StateFailed)
		observability.SetLifecycleState(int(lifecycle.StateFailed))
		logger.Error("dependency initialization failed", zap.Error(err))
		return 1
	}

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go deps.Guardian.Run(ctx)
	go publishGauges(ctx, deps)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment))
		serverErr <- server.ListenAndServe()
	}()

	ctrl.Advance(lifecycle.StateReady)
	observability.SetLifecycleState(int(lifecycle.StateReady))

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return 1
		}
		return 0
	case sig := <-signals:
		logger.Info("termination signal received", zap.String("signal", sig.String()))
	case <-ctrl.DrainStarted():
		logger.Info("drain initiated by fault recovery")
	}

	// forward-only state machine makes a second signal a no-op
	ctrl.Advance(lifecycle.StateDraining)
	observability.SetLifecycleState(int(lifecycle.StateDraining))
	go func() {
		for sig := range signals {
			logger.Info("already draining, signal ignored", zap.String("signal", sig.String()))
		}
	}()

	clean := drainWithin(ctrl, server, cfg.Lifecycle.DrainTimeout, logger)

	cancel() // stops the guardian and gauge publisher

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := deps.Close(closeCtx); err != nil {
		logger.Error("failed to close dependencies", zap.Error(err))
		clean = false
	}

	ctrl.Advance(lifecycle.StateStopped)
	observability.SetLifecycleState(int(lifecycle.StateStopped))

	if !clean {
		logger.Warn("shutdown forced, some work may have been abandoned")
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

// drainWithin stops accepting connections and waits for in-flight work,
// sharing one timeout across both phases so shutdown is bounded by DrainTimeout
// total rather than per phase. Returns true on a clean drain.
func drainWithin(ctrl *lifecycle.Controller, server *http.Server, timeout time.Duration, logger *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clean := true
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown forced", zap.Error(err))
		clean = false
	}

	deadline, _ := ctx.Deadline()
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	if !ctrl.DrainAndWait(remaining) {
		clean = false
	}
	return clean
}

// publishGauges mirrors guardian samples into the metrics registry
func publishGauges(ctx context.Context, deps *app.Dependencies) {
	interval := deps.Config.Memory.SampleInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			observability.SetMemoryUsage(deps.Guardian.Status().UsedBytes)
		case <-ctx.Done():
			return
		}
	}
}
