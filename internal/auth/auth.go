// Package auth supplies caller identity to the API layer. Authentication
// itself happens upstream (gateway session); this package only trusts the
// identity header the gateway injects and makes it available through the
// request context.
package auth

import (
	"context"
	"net/http"
)

// IdentityHeader carries the authenticated caller's email, set by the
// upstream session gateway.
const IdentityHeader = "X-User-Email"

// AnonymousUser is recorded as the actor when no identity header is present.
const AnonymousUser = "anonymous"

type contextKey struct{}

// Identity returns the caller identity stored in the request context.
// Outside the middleware it returns AnonymousUser.
func Identity(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok && v != "" {
		return v
	}
	return AnonymousUser
}

// Middleware extracts the identity header into the request context.
// Requests without the header proceed as AnonymousUser; endpoints stay
// usable without a session for local development.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(IdentityHeader)
		if id == "" {
			id = AnonymousUser
		}
		ctx := context.WithValue(r.Context(), contextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
