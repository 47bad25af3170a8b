package middleware

import (
	"net/http"

	"github.com/MrEthical07/tokenlife"
)

// Optional resolves the bearer token when present and passes every request
// through. Handlers check PrincipalFromContext.
func Optional(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver != nil {
				if token, ok := tokenlife.BearerToken(r.Header.Get("Authorization")); ok {
					if p, err := resolver.ResolvePrincipal(r.Context(), token); err == nil {
						r = r.WithContext(WithPrincipal(r.Context(), p))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
