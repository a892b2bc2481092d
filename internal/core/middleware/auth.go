package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/akimov/peerwallet/internal/core/auth"
	"github.com/akimov/peerwallet/internal/core/logger"
)

// Auth requires a bearer token on every route it wraps and places the
// authenticated user id into the request context.
func Auth(secret string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if header == "" || !found || token == "" {
				unauthenticated(w)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				log.Warn("Rejected token",
					logger.StringField("path", r.URL.Path),
					logger.ErrorField("error", err))
				unauthenticated(w)
				return
			}

			ctx := auth.ContextWithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Unauthenticated."})
}
