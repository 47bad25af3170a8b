package middleware

import "net/http"

// RequireRegistered is Guard that also answers 403 for principals still
// holding only a registration token.
func RequireRegistered(resolver Resolver) func(http.Handler) http.Handler {
	return guard(resolver, true)
}
