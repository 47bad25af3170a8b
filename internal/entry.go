package internal

import (
	"errors"
	"strings"
)

// EntryKind tags every value stored in the token cache so the three token
// kinds sharing one keyspace can never be mistaken for each other.
type EntryKind byte

const (
	// KindAuth marks an AuthToken entry: sibling refresh key + signed token.
	KindAuth EntryKind = 'a'
	// KindRefresh marks a RefreshToken entry: the auth key it was issued with.
	KindRefresh EntryKind = 'r'
	// KindRegistration marks a RegistrationToken entry: a bare username.
	KindRegistration EntryKind = 'w'
)

const entrySep = "|"

// ErrMalformedEntry is returned when a cached value is not a valid envelope.
var ErrMalformedEntry = errors.New("malformed cache entry")

// Entry is the decoded form of a cache value.
//
// Field use by kind:
//
//	KindAuth:         Ref = refresh key,  Token = signed token
//	KindRefresh:      Ref = auth key
//	KindRegistration: Subject = username
type Entry struct {
	Kind    EntryKind
	Ref     string
	Token   string
	Subject string
}

// AuthEntry builds the envelope for an AuthToken.
func AuthEntry(refreshKey, signed string) Entry {
	return Entry{Kind: KindAuth, Ref: refreshKey, Token: signed}
}

// RefreshEntry builds the envelope for a RefreshToken.
func RefreshEntry(authKey string) Entry {
	return Entry{Kind: KindRefresh, Ref: authKey}
}

// RegistrationEntry builds the envelope for a RegistrationToken.
func RegistrationEntry(username string) Entry {
	return Entry{Kind: KindRegistration, Subject: username}
}

// Encode renders the wire form "<kind>|<field>[|<field>]". The username is
// always the last field, so usernames containing the separator round-trip.
func (e Entry) Encode() string {
	switch e.Kind {
	case KindAuth:
		return string(KindAuth) + entrySep + e.Ref + entrySep + e.Token
	case KindRefresh:
		return string(KindRefresh) + entrySep + e.Ref
	case KindRegistration:
		return string(KindRegistration) + entrySep + e.Subject
	default:
		return ""
	}
}

// DecodeEntry parses a cached value.
func DecodeEntry(raw string) (Entry, error) {
	if len(raw) < 2 || raw[1] != entrySep[0] {
		return Entry{}, ErrMalformedEntry
	}
	body := raw[2:]

	switch EntryKind(raw[0]) {
	case KindAuth:
		ref, token, ok := strings.Cut(body, entrySep)
		if !ok || ref == "" || token == "" {
			return Entry{}, ErrMalformedEntry
		}
		return AuthEntry(ref, token), nil
	case KindRefresh:
		if body == "" || strings.Contains(body, entrySep) {
			return Entry{}, ErrMalformedEntry
		}
		return RefreshEntry(body), nil
	case KindRegistration:
		if body == "" {
			return Entry{}, ErrMalformedEntry
		}
		return RegistrationEntry(body), nil
	default:
		return Entry{}, ErrMalformedEntry
	}
}
