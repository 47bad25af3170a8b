package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/tokenlife"
)

// Resolver is the subset of *tokenlife.Engine the guards need.
type Resolver interface {
	ResolvePrincipal(ctx context.Context, bearer string) (tokenlife.Principal, error)
}

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by a guard.
func PrincipalFromContext(ctx context.Context) (tokenlife.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(tokenlife.Principal)
	return p, ok
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p tokenlife.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard rejects requests whose bearer token does not resolve.
func Guard(resolver Resolver) func(http.Handler) http.Handler {
	return guard(resolver, false)
}

func guard(resolver Resolver, requireRegistered bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := tokenlife.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			p, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil {
				if tokenlife.IsAuthFailure(err) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if requireRegistered && !p.Registered {
				http.Error(w, "registration required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
