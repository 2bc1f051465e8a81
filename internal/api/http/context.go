package http

import (
	"context"

	"ticketdesk-backoffice/internal/security"
)

type ctxKey int

const claimsKey ctxKey = iota

func withClaims(ctx context.Context, claims *security.OperatorClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the operator claims set by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*security.OperatorClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.OperatorClaims)
	return claims, ok && claims != nil
}
