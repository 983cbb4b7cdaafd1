package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pesokrava/product_catalog/internal/auth"
	"github.com/Pesokrava/product_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
)

type principalKey struct{}

// Authorizer resolves an Authorization header to a principal
type Authorizer interface {
	Authorize(header string) (string, error)
}

// BasicAuth returns a middleware that rejects requests without valid Basic credentials
// and stores the authenticated username in the request context
func BasicAuth(authorizer Authorizer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authorizer.Authorize(r.Header.Get("Authorization"))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrMissingCredentials):
					w.Header().Set("WWW-Authenticate", `Basic realm="catalog"`)
					response.Error(w, http.StatusUnauthorized, "Unauthorized")
				case errors.Is(err, auth.ErrForbidden):
					log.WithFields(map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
					}).Warn("Rejected credentials")
					response.Error(w, http.StatusForbidden, "Forbidden")
				default:
					log.Error("Failed to authorize request", err)
					response.Error(w, http.StatusInternalServerError, "Internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated username, if any
func PrincipalFromContext(ctx context.Context) (string, bool) {
	principal, ok := ctx.Value(principalKey{}).(string)
	return principal, ok
}
