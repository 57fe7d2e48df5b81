package middleware

import (
	"net/http"

	"github.com/nur1kesh/ai-model-marketplace/internal/api/httpx"
)

// RequireRole allows only callers whose JWT role matches. The owner-only
// ledger operations still re-check identity in the service layer; this
// just fails fast at the edge.
func RequireRole(need string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := Role(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing credentials", nil)
				return
			}
			if role != need {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
