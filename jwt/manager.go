package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWS algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// ErrInvalidToken is returned for any token whose signature, algorithm, key
// id, issuer, audience, or required claims fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Config defines a public type used by tokenlife APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// TTL is used by Encode when the caller passes a non-positive ttl.
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Leeway extends the instant at which a token is reported expired.
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Manager defines a public type used by tokenlife APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// Claims is the payload of every token Manager signs. ExpMillis carries the
// expiry with millisecond precision; the registered exp claim is rounded up
// to the next whole second for verifiers that only understand NumericDate.
type Claims struct {
	ExpMillis int64 `json:"exp_ms,omitempty"`
	jwt.RegisteredClaims
}

// ExpiresAtMillis returns the expiry as Unix milliseconds, falling back to
// the registered exp claim. Zero means the token carries no expiry.
func (c *Claims) ExpiresAtMillis() int64 {
	if c.ExpMillis > 0 {
		return c.ExpMillis
	}
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time.UnixMilli()
	}
	return 0
}

// NewManager validates cfg and returns a ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// Encode signs a token for subject that expires ttl from now.
func (j *Manager) Encode(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	if ttl <= 0 {
		ttl = j.config.TTL
	}
	if ttl <= 0 {
		return "", errors.New("invalid TTL")
	}

	now := j.config.Now()
	expMs := now.Add(ttl).UnixMilli()
	// round up so a NumericDate-only verifier never sees an earlier expiry
	expSec := (expMs + 999) / 1000

	claims := Claims{
		ExpMillis: expMs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Unix(expSec, 0)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// IsExpired verifies tokenStr and reports whether its expiry has passed.
// Expired tokens are not an error.
// Leeway returns the configured grace past a token's expiry.
func (j *Manager) Leeway() time.Duration {
	return j.config.Leeway
}

func (j *Manager) IsExpired(tokenStr string) (bool, error) {
	claims, err := j.Parse(tokenStr)
	if err != nil {
		return false, err
	}
	now := j.config.Now().UnixMilli()
	return now >= claims.ExpiresAtMillis()+j.config.Leeway.Milliseconds(), nil
}

// SubjectOf verifies tokenStr and returns its subject, whether or not the
// token has expired.
func (j *Manager) SubjectOf(tokenStr string) (string, error) {
	claims, err := j.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse verifies signature, algorithm, key id, issuer, audience, and
// issued-at, but not expiry. Every failure is reported as ErrInvalidToken.
func (j *Manager) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(j.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := j.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return j.keyBytesToVerifyKey(key)
		}

		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return j.getVerifyKey()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := j.checkClaims(claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}

func (j *Manager) checkClaims(claims *Claims) error {
	if claims.Subject == "" {
		return errors.New("missing sub")
	}
	if claims.ExpiresAtMillis() == 0 {
		return errors.New("missing exp")
	}
	if j.config.Issuer != "" && claims.Issuer != j.config.Issuer {
		return errors.New("issuer mismatch")
	}
	if j.config.Audience != "" {
		found := false
		for _, aud := range claims.Audience {
			if aud == j.config.Audience {
				found = true
				break
			}
		}
		if !found {
			return errors.New("audience mismatch")
		}
	}
	if claims.IssuedAt == nil {
		if j.config.RequireIAT {
			return errors.New("missing iat")
		}
		return nil
	}
	if j.config.MaxFutureIAT > 0 {
		maxAllowed := j.config.Now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return errors.New("token iat too far in the future")
		}
	}
	return nil
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		if len(j.config.PrivateKey) == 0 {
			return nil, errors.New("ed25519 signing requires private key")
		}
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
