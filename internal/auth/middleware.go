package auth

import (
	"context"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"net/http"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware rejects requests without a valid bearer token with 401. revoked may be nil.
// A revocation lookup that fails is logged and the token is accepted.
func Middleware(verifier TokenVerifier, revoked RevocationList, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("MISSING_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Authentication required", err)
				return
			}

			principal, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, http.StatusUnauthorized, "Invalid token", models.ErrUnauthorized)
				return
			}

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(r.Context(), principal.TokenID)
				if err != nil {
					log.Warn("AUTH", fmt.Sprintf("Revocation check failed: %v", err))
				} else if isRevoked {
					log.LogSecurity("REVOKED_TOKEN", fmt.Sprintf("user=%s token=%s", principal.UserID, principal.TokenID))
					utils.WriteError(w, http.StatusUnauthorized, "Token has been revoked", models.ErrUnauthorized)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// WithUser is a shorthand for tests and tools that have no token.
func WithUser(ctx context.Context, id models.Identity) context.Context {
	return WithPrincipal(ctx, &Principal{Identity: id})
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// UserFrom returns the caller established by Middleware.
func UserFrom(ctx context.Context) (models.Identity, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return models.Identity{}, false
	}
	return p.Identity, true
}

// UserID is a helper to extract the user id in handlers.
func UserID(ctx context.Context) string {
	id, _ := UserFrom(ctx)
	return id.UserID
}
