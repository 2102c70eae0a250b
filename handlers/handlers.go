// Package handlers holds the thin HTTP layer: decode, delegate to a service,
// encode. All policy lives in the services.
package handlers

import (
	"github.com/quotagate/gateway/app"
)

// Handlers bundles the HTTP handlers for route wiring
type Handlers struct {
	Health   *HealthHandler
	Generate *GenerateHandler
	Account  *AccountHandler
}

// New builds all handlers from the application dependencies
func New(deps *app.Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.DB, deps.Lifecycle, deps.Guardian, deps.Logger),
		Generate: NewGenerateHandler(deps.AuthGate, deps.Generator, deps.Ledger, deps.Audit, deps.Logger),
		Account:  NewAccountHandler(deps.AuthGate, deps.Accounts, deps.Audit, deps.Logger),
	}
}
