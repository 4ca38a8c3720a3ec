package server

import (
	"context"
	"net/http"

	"github.com/nmorel/lexidraft/internal/auth"
	"github.com/nmorel/lexidraft/internal/cabinet"
)

// cabinetKey is the context key for the authenticated cabinet.
type cabinetKey struct{}

// AuthMiddleware validates API keys and injects the cabinet into the request
// context. The API key comes from the Authorization header (Bearer format).
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			c, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}

			AddLogField(r.Context(), "cabinet_id", c.ID)
			ctx := context.WithValue(r.Context(), cabinetKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCabinet retrieves the authenticated cabinet from context.
// Returns nil if no cabinet is set.
func GetCabinet(ctx context.Context) *cabinet.Cabinet {
	if c, ok := ctx.Value(cabinetKey{}).(*cabinet.Cabinet); ok {
		return c
	}
	return nil
}
