// Package api implements the studyshelf REST API using chi.
package api

import (
	"net/http"
	"strings"
)

// Auth modes for mutating routes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeReadOnly = "readonly"
)

// AuthMiddleware guards mutating routes.
//   - disabled: every request passes (anyone may edit).
//   - token: requests must carry "Authorization: Bearer <token>".
//   - readonly: every request is rejected with 403.
func AuthMiddleware(mode, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch mode {
			case AuthModeReadOnly:
				writeJSON(w, http.StatusForbidden, errorBody("catalog is read-only"))
				return
			case AuthModeToken:
				auth := r.Header.Get("Authorization")
				if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
