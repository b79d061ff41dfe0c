package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/types"
)

// TenantAuth resolves the bearer token to a tenant binding and attaches it
// to the request context. Requests without a valid binding get 401 with the
// uniform error envelope; the tenant is never taken from the request body.
func TenantAuth(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, r, "missing bearer token")
				return
			}

			binding, ok := cfg.Keys[token]
			if !ok {
				unauthorized(w, r, "invalid bearer token")
				return
			}

			identity := Identity{
				TenantID:   binding.TenantID,
				UserID:     binding.UserID,
				TenantName: binding.TenantName,
				UserName:   binding.UserName,
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	slog.WarnContext(r.Context(), "unauthenticated request",
		"path", r.URL.Path,
		"request_id", GetRequestID(r.Context()),
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "authentication required"})
}
