package tokenlife

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks github.com/MrEthical07/tokenlife TokenCache,TokenCodec,IdentityResolver

import (
	"context"
	"time"
)

// Principal is an identity loaded from an [IdentityResolver]. It is treated
// as immutable for the duration of one request.
type Principal struct {
	Username       string   `json:"userName"`
	DisplayName    string   `json:"displayName,omitempty"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Registered     bool     `json:"registered"`
	Features       []string `json:"features,omitempty"`
}

// RegistrationPayload is the profile an unregistered principal submits to
// finish registration. DateOfBirth uses the YYYY-MM-DD layout.
type RegistrationPayload struct {
	DisplayName      string `json:"displayName"`
	DateOfBirth      string `json:"dateOfBirth"`
	IdentityDocument string `json:"identityDocument"`
}

// Credentials is the login input.
type Credentials struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// Response is the single shape returned to the HTTP boundary. Exactly one of
// (AuthToken and RefreshToken) or RegistrationToken is populated.
type Response struct {
	UserName          string   `json:"userName"`
	DisplayName       string   `json:"displayName,omitempty"`
	AuthToken         string   `json:"authToken,omitempty"`
	// ExpiresInMillis is when refresh opens: the token ttl plus any codec
	// leeway.
	ExpiresInMillis   int64    `json:"expiresInMillis,omitempty"`
	RefreshToken      string   `json:"refreshToken,omitempty"`
	RegistrationToken string   `json:"registrationToken,omitempty"`
	ProfilePicture    string   `json:"profilePicture,omitempty"`
	Features          []string `json:"features,omitempty"`
}

// Active reports whether r carries an auth/refresh pair.
func (r *Response) Active() bool {
	return r != nil && r.AuthToken != "" && r.RefreshToken != ""
}

// TokenCache is the opaque-string keyspace shared by all token kinds.
// Implementations must tolerate arbitrarily interleaved concurrent calls.
//
//	Implementations: cache.Memory, cache.Redis
type TokenCache interface {
	Put(ctx context.Context, key, value string) error
	// Get returns ok == false for an absent key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Evict of an absent key is a no-op.
	Evict(ctx context.Context, key string) error
	// Take atomically reads and evicts key. When callers race on one key,
	// at most one observes ok == true.
	Take(ctx context.Context, key string) (value string, ok bool, err error)
}

// TokenCodec signs and inspects self-contained tokens.
//
//	Implementations: jwt.Manager
type TokenCodec interface {
	// Encode embeds subject and an absolute expiry ttl from now.
	Encode(subject string, ttl time.Duration) (string, error)
	// IsExpired verifies the signature and reports whether the expiry has
	// passed. It must succeed for already-expired tokens.
	IsExpired(token string) (bool, error)
	// SubjectOf verifies the signature and returns the subject.
	SubjectOf(token string) (string, error)
}

// IdentityResolver is the identity store the engine consults.
//
//	Implementations: identity.Memory, identity.Postgres
type IdentityResolver interface {
	// LoadPrincipal returns an error wrapping ErrNotFound when username is unknown.
	LoadPrincipal(ctx context.Context, username string) (Principal, error)
	// Authenticate returns an error wrapping ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, identifier, secret string) (Principal, error)
	// CompleteRegistration persists payload and marks username registered.
	// It must be idempotent.
	CompleteRegistration(ctx context.Context, username string, payload RegistrationPayload) (Principal, error)
}
