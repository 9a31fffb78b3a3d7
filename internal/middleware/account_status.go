package middleware

import (
	"net/http"

	"github.com/cehpoint/backend/internal/models"
)

// RequireActiveWorker rejects workers whose account is not active (pending
// review, suspended, or terminated). Admins pass through untouched. Apply
// after JWTAuth on task-mutating routes.
func RequireActiveWorker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromCtx(r.Context())
		if user == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if user.Role == models.RoleWorker && user.AccountStatus != models.AccountStatusActive {
			http.Error(w, `{"error":"account is not active"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
