package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const tokenKeySize = 32

// ErrInvalidTokenKey is returned by ParseTokenKey for values that could not
// have been produced by NewTokenKey.
var ErrInvalidTokenKey = errors.New("invalid token key")

// NewTokenKey returns a fresh opaque cache key: 32 random bytes, base64url
// without padding. All token kinds draw from this one keyspace.
func NewTokenKey() (string, error) {
	var raw [tokenKeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}

	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ParseTokenKey checks the shape of a presented key without touching the
// cache. It lets callers reject garbage before a round-trip.
func ParseTokenKey(key string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return nil, ErrInvalidTokenKey
	}
	if len(raw) != tokenKeySize {
		return nil, ErrInvalidTokenKey
	}
	return raw, nil
}

// NewTokenPair returns two distinct keys for an auth/refresh pair.
func NewTokenPair() (authKey, refreshKey string, err error) {
	authKey, err = NewTokenKey()
	if err != nil {
		return "", "", err
	}
	for {
		refreshKey, err = NewTokenKey()
		if err != nil {
			return "", "", err
		}
		if refreshKey != authKey {
			return authKey, refreshKey, nil
		}
	}
}
