package flows

import (
	"context"

	"github.com/MrEthical07/tokenlife/internal"
)

type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureInvalidToken
	ResolveFailureExpired
	ResolveFailureCache
)

// ResolveResult names the subject a bearer resolves to.
type ResolveResult struct {
	Failure  ResolveFailureKind
	Err      error
	Kind     internal.EntryKind
	Username string
}

// ResolveDeps captures read-path dependencies.
type ResolveDeps struct {
	Cache     Cache
	IsExpired func(string) (bool, error)
	SubjectOf func(string) (string, error)
}

// RunResolve maps a bearer key to a username without mutating the cache.
//
// Registration entries resolve to their stored username. Auth entries must
// carry a verifiable, unexpired token. Refresh entries are never bearer
// credentials.
func RunResolve(ctx context.Context, bearer string, deps ResolveDeps) ResolveResult {
	if _, err := internal.ParseTokenKey(bearer); err != nil {
		return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err}
	}
	raw, ok, err := deps.Cache.Get(ctx, bearer)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureCache, Err: err}
	}
	if !ok {
		return ResolveResult{Failure: ResolveFailureInvalidToken}
	}
	entry, err := internal.DecodeEntry(raw)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err}
	}

	switch entry.Kind {
	case internal.KindRegistration:
		return ResolveResult{Kind: entry.Kind, Username: entry.Subject}
	case internal.KindAuth:
		subject, err := deps.SubjectOf(entry.Token)
		if err != nil || subject == "" {
			return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err, Kind: entry.Kind}
		}
		expired, err := deps.IsExpired(entry.Token)
		if err != nil {
			return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err, Kind: entry.Kind, Username: subject}
		}
		if expired {
			return ResolveResult{Failure: ResolveFailureExpired, Kind: entry.Kind, Username: subject}
		}
		return ResolveResult{Kind: entry.Kind, Username: subject}
	default:
		return ResolveResult{Failure: ResolveFailureInvalidToken, Kind: entry.Kind}
	}
}
