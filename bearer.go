package tokenlife

import "strings"

const bearerScheme = "bearer"

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively and surrounding spaces are dropped.
// A value without the Bearer scheme, or with an empty token, is rejected.
//
// Every engine entry point expects the stripped value; the raw header is
// never used as a cache key.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerScheme) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	rest := header[len(bearerScheme):]
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	token := strings.TrimSpace(rest)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
