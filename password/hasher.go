package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownHashFormat is returned by Verify for hashes it cannot dispatch.
var ErrUnknownHashFormat = errors.New("unknown hash format")

const minSecretBytes = 8

// Hasher produces and checks encoded secret hashes.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// Bcrypt hashes with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. A zero cost means bcrypt.DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Hash(secret string) (string, error) {
	if len(secret) < minSecretBytes {
		return "", errors.New("secret must be at least 8 bytes")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b *Bcrypt) Verify(secret, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsRehash reports whether encoded uses a lower cost than b, or is not a
// bcrypt hash at all.
func (b *Bcrypt) NeedsRehash(encoded string) (bool, error) {
	if !isBcrypt(encoded) {
		return true, nil
	}
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}

// Verify checks secret against an encoded hash of either supported kind.
func Verify(secret, encoded string) (bool, error) {
	switch {
	case isBcrypt(encoded):
		return (&Bcrypt{}).Verify(secret, encoded)
	case strings.HasPrefix(encoded, "$"+algorithmID+"$"):
		return verifyArgon2(secret, encoded)
	default:
		return false, ErrUnknownHashFormat
	}
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
