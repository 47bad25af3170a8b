package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Argon2Config tunes Argon2id. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns interactive-login parameters.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes with Argon2id and encodes in PHC format.
type Argon2 struct {
	config Argon2Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory must be >= 8192 KiB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("argon2 time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("argon2 salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

func (a *Argon2) Hash(secret string) (string, error) {
	// raw bytes, no Unicode normalization
	if len(secret) < minSecretBytes {
		return "", errors.New("secret must be at least 8 bytes")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(secret, encoded string) (bool, error) {
	return verifyArgon2(secret, encoded)
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than a's, or is not an Argon2id hash at all.
func (a *Argon2) NeedsRehash(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.hash)), nil
}

func verifyArgon2(secret, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.hash)))
	return subtle.ConstantTimeCompare(computed, p.hash) == 1, nil
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errors.New("invalid PHC format")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &phc{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	var err error
	if out.salt, err = decodeB64(parts[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	if out.hash, err = decodeB64(parts[5]); err != nil || len(out.hash) == 0 {
		return nil, errors.New("invalid hash")
	}
	return out, nil
}

func (p *phc) parseParams(part string) error {
	seen := 0
	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s parameter", k)
		}
		switch k {
		case "m":
			if n < uint64(minMemoryKB) {
				return errors.New("invalid memory parameter")
			}
			p.memory = uint32(n)
		case "t":
			if n < uint64(minTimeCost) {
				return errors.New("invalid time parameter")
			}
			p.time = uint32(n)
		case "p":
			if n < uint64(minParallelism) || n > 255 {
				return errors.New("invalid parallelism parameter")
			}
			p.parallelism = uint8(n)
		default:
			return errors.New("unsupported parameter")
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return errors.New("missing parameters")
	}
	return nil
}

// decodeB64 accepts both padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
