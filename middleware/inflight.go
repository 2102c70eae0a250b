package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/quotagate/gateway/internal/lifecycle"
)

// InFlightTracker registers each request as in-flight work on the lifecycle
// controller so drain can wait for it. Requests arriving once admission has
// closed pass through untracked; the handler rejects them anyway.
func InFlightTracker(ctrl *lifecycle.Controller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done, tracked := ctrl.TryTrackRequest()
			if tracked {
				defer done()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PropagateRequestID copies the chi request ID into the application context
// key so handlers and services can log it without importing chi.
func PropagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
