package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/openpublish/sitetree/pkg/sitetree"
)

type contextKey string

const principalKey contextKey = "principal"

// NewTokenAuth builds the JWT verifier used by the authenticator middleware
func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Verifier extracts and parses a JWT from the request (header or cookie)
// without rejecting it; Authenticator does the rejection.
func Verifier(tokenAuth *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verifier(tokenAuth)
}

// Authenticator rejects requests without a valid token and places the
// principal built from the token claims into the request context.
//
// Expected claims: sub (principal UUID), username, role, active.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			slog.Warn("Rejected unauthenticated request", "path", r.URL.Path, "error", err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		principal, err := principalFromClaims(claims)
		if err != nil {
			slog.Warn("Rejected token with bad claims", "path", r.URL.Path, "error", err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request never passed the authenticator.
func PrincipalFromContext(ctx context.Context) *sitetree.Principal {
	principal, _ := ctx.Value(principalKey).(*sitetree.Principal)
	return principal
}

func principalFromClaims(claims map[string]interface{}) (*sitetree.Principal, error) {
	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)

	// Absent "active" claim means the account is active; only an explicit
	// false disables it.
	active := true
	if v, ok := claims["active"].(bool); ok {
		active = v
	}

	return &sitetree.Principal{
		ID:       id,
		Username: username,
		Role:     sitetree.Role(role),
		Active:   active,
	}, nil
}
