package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"storefront/internal/domain"
)

// RequireAdmin rejects any request whose session role is not admin.
// It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok || role != domain.RoleAdmin {
				userID, _ := GetUserID(r.Context())
				logger.Warn("Non-admin request to admin endpoint",
					zap.String("user_id", userID),
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusUnauthorized, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
