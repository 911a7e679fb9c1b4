package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"reelhouse.org/internal/auth"
	"reelhouse.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth verifies a presented bearer token and attaches the claim set to
// the context. A missing token on a guarded path passes through anonymous;
// the policy check turns that into a 401. A present but invalid token is
// rejected here.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", authHeader)

		header := strings.TrimSpace(r.Header.Get(authHeader))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			obs.CountAuthFailure("bad_header")
			unauthorized(w, r, err.Error())
			return
		}

		cs, err := a.verifier.Verify(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.CountAuthFailure("invalid_token")
				unauthorized(w, r, "invalid or expired token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), cs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePolicy evaluates the named policies against the caller's claims.
// No claims at all means the caller never authenticated.
func (a *API) requirePolicy(ctx context.Context, names ...string) error {
	cs, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return auth.ErrNoClaims
	}
	for _, name := range names {
		if !auth.Evaluate(name, cs) {
			return auth.ErrForbidden
		}
	}
	return nil
}

// guard writes the two-tier error response: 401 when the caller never
// proved an identity, 403 when the identity lacks the required grants.
func (a *API) guard(w http.ResponseWriter, r *http.Request, names ...string) bool {
	err := a.requirePolicy(r.Context(), names...)
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrNoClaims) {
		obs.CountAuthFailure("missing_token")
		unauthorized(w, r, "authentication required")
		return false
	}
	obs.CountAuthFailure("forbidden")
	writeError(w, r, http.StatusForbidden, "insufficient permissions")
	return false
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
