package auth

import "context"

type claimsContextKey struct{}

// ContextWithClaims attaches the verified claim set to the context.
func ContextWithClaims(ctx context.Context, cs ClaimSet) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, &cs)
}

// ClaimsFromContext extracts the verified claim set from the context.
func ClaimsFromContext(ctx context.Context) (ClaimSet, bool) {
	if ctx == nil {
		return ClaimSet{}, false
	}
	v, ok := ctx.Value(claimsContextKey{}).(*ClaimSet)
	if !ok || v == nil {
		return ClaimSet{}, false
	}
	return *v, true
}
