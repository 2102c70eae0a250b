package middleware

import (
	"net/http"

	"github.com/quotagate/gateway/internal/lifecycle"
	"github.com/quotagate/gateway/utils"
	"go.uber.org/zap"
)

// Recoverer converts a handler panic into a 500 response. Outside production
// a fault also moves the lifecycle to draining so the process restarts under
// orchestration instead of serving from an unknown state; production logs
// the fault and keeps serving.
func Recoverer(ctrl *lifecycle.Controller, production bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					zap.Any("panic", rvr),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))

				if !production {
					ctrl.Advance(lifecycle.StateDraining)
				}

				_ = utils.WriteInternalServerError(w, "")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
