package tokenlife

import "errors"

var (
	// ErrInvalidToken reports an unknown, malformed, expired, or
	// signature-invalid bearer token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRefreshTokenUnavailable reports a refresh token that is unknown or
	// already spent.
	ErrRefreshTokenUnavailable = errors.New("refresh token unavailable")
	// ErrTokenNotExpired reports a refresh attempted while the referenced
	// token is still valid.
	ErrTokenNotExpired = errors.New("token not expired")
	// ErrTokenMismatch reports a refresh whose presented bearer (or
	// username) does not match the pair being rotated.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrNotFound reports a missing identity or an already consumed
	// registration token.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned by Login for unknown identifiers or
	// wrong secrets.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistration reports a registration payload that fails
	// validation.
	ErrInvalidRegistration = errors.New("invalid registration payload")
	// ErrCacheUnavailable wraps token cache failures.
	ErrCacheUnavailable = errors.New("token cache unavailable")
	// ErrEngineNotReady is returned when an Engine is used without its
	// collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// IsAuthFailure reports whether err is one of the client-facing
// authentication failures that a boundary should answer with 401.
func IsAuthFailure(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrRefreshTokenUnavailable),
		errors.Is(err, ErrTokenNotExpired),
		errors.Is(err, ErrTokenMismatch),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCredentials):
		return true
	default:
		return false
	}
}
