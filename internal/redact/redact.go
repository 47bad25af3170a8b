// Package redact turns secrets into stable, log-safe fingerprints.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Token returns the first 12 hex characters of the SHA-256 of v. Two log
// lines mentioning the same token share a fingerprint; the token itself
// cannot be recovered.
func Token(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:6])
}

// Attr builds a slog attribute holding the fingerprint of v.
func Attr(key, v string) slog.Attr {
	return slog.String(key, Token(v))
}
