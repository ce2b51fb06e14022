package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// AdminSecretHeader is the header carrying the shared administrative
// credential.
const AdminSecretHeader = "X-Admin-Secret"

// AdminAuth guards the administrative surface with a shared secret header.
// Comparison is constant-time. An empty configured secret rejects
// everything; enabling the admin API without a secret is a config error
// caught at startup.
func AdminAuth(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	authLogger := logger.With(slog.String("component", "admin_auth"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := r.Header.Get(AdminSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
				authLogger.WarnContext(r.Context(), "admin authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"header_present", supplied != "",
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status_code":401,"error_code":"UNAUTHORIZED","message":"Missing or invalid admin credential"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
