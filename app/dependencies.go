// Package app is the central wiring point for dependency injection. Every
// component receives its collaborators explicitly; there are no ambient
// globals.
package app

import (
	"context"
	"fmt"

	"github.com/quotagate/gateway/config"
	"github.com/quotagate/gateway/internal/lifecycle"
	"github.com/quotagate/gateway/internal/memguard"
	"github.com/quotagate/gateway/repositories"
	"github.com/quotagate/gateway/repositories/postgres"
	"github.com/quotagate/gateway/services/audit"
	"github.com/quotagate/gateway/services/authgate"
	"github.com/quotagate/gateway/services/generation"
	"github.com/quotagate/gateway/services/ledger"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Accounts       repositories.AccountRepository
	RequestRecords repositories.RequestRecordRepository
	TxManager      repositories.TransactionManager

	// Process state
	Lifecycle *lifecycle.Controller
	Guardian  *memguard.Guardian

	// Services
	AuthGate  *authgate.Service
	Ledger    *ledger.Service
	Audit     *audit.Service
	Generator generation.Generator
}

// NewDependencies creates and wires up all application dependencies.
// The lifecycle controller is constructed by main before configuration is
// validated, so it arrives as a parameter rather than being built here.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, ctrl *lifecycle.Controller) (*Dependencies, error) {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Lifecycle: ctrl,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)

	deps.Guardian = memguard.NewGuardian(cfg.Memory, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := factory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Accounts = repos.Accounts
	d.RequestRecords = repos.RequestRecords
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initServices initializes the domain services
func (d *Dependencies) initServices(cfg *config.Config) {
	d.AuthGate = authgate.NewService(d.Accounts, d.Lifecycle, d.Logger)
	d.Ledger = ledger.NewService(d.Accounts, d.TxManager, d.Logger)
	d.Audit = audit.NewService(d.RequestRecords, d.Logger)
	d.Generator = generation.NewOpenAIClient(cfg.Generation, d.Logger)

	d.Logger.Info("services initialized",
		zap.String("generation_model", cfg.Generation.Model))
}

// Close releases all resources. In-flight audit writes are drained first so
// billed requests keep their records.
func (d *Dependencies) Close(ctx context.Context) error {
	if d.Audit != nil {
		done := make(chan struct{})
		go func() {
			d.Audit.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.Logger.Warn("audit drain interrupted by shutdown deadline")
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	d.Logger.Info("dependencies closed")
	return nil
}
