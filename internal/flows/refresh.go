package flows

import (
	"context"

	"github.com/MrEthical07/tokenlife/internal"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureUnavailable
	RefreshFailureInvalidToken
	RefreshFailureNotExpired
	RefreshFailureMismatch
	RefreshFailureNotFound
	RefreshFailureCache
)

// RefreshResult carries the rotated subject or failure metadata. Issuing the
// replacement pair is left to the caller.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	Username string
	AuthKey  string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Cache     Cache
	IsExpired func(string) (bool, error)
	SubjectOf func(string) (string, error)
	// LoadPrincipal runs after every token check and before any eviction.
	LoadPrincipal func(ctx context.Context, username string) error
}

// RunRefresh validates and consumes an auth/refresh pair.
//
// Checks run in a fixed order: refresh key shape, refresh entry, auth entry,
// expiry, bearer match, subject match, principal lookup. Only then are both
// keys taken.
func RunRefresh(ctx context.Context, bearer, refreshKey, username string, deps RefreshDeps) RefreshResult {
	if _, err := internal.ParseTokenKey(refreshKey); err != nil {
		return RefreshResult{Failure: RefreshFailureUnavailable, Err: err}
	}
	rawRefresh, ok, err := deps.Cache.Get(ctx, refreshKey)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCache, Err: err}
	}
	if !ok {
		return RefreshResult{Failure: RefreshFailureUnavailable}
	}
	refreshEntry, err := internal.DecodeEntry(rawRefresh)
	if err != nil || refreshEntry.Kind != internal.KindRefresh {
		return RefreshResult{Failure: RefreshFailureUnavailable, Err: err}
	}
	authKey := refreshEntry.Ref

	rawAuth, ok, err := deps.Cache.Get(ctx, authKey)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCache, Err: err, AuthKey: authKey}
	}
	if !ok {
		// a racing refresh that already rotated the pair removes both halves
		_, live, err := deps.Cache.Get(ctx, refreshKey)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureCache, Err: err, AuthKey: authKey}
		}
		if !live {
			return RefreshResult{Failure: RefreshFailureUnavailable, AuthKey: authKey}
		}
		return RefreshResult{Failure: RefreshFailureInvalidToken, AuthKey: authKey}
	}
	authEntry, err := internal.DecodeEntry(rawAuth)
	if err != nil || authEntry.Kind != internal.KindAuth || authEntry.Ref != refreshKey {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Err: err, AuthKey: authKey}
	}

	expired, err := deps.IsExpired(authEntry.Token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Err: err, AuthKey: authKey}
	}
	if !expired {
		return RefreshResult{Failure: RefreshFailureNotExpired, AuthKey: authKey}
	}

	if bearer != authKey {
		return RefreshResult{Failure: RefreshFailureMismatch, AuthKey: authKey}
	}

	subject, err := deps.SubjectOf(authEntry.Token)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Err: err, AuthKey: authKey}
	}
	if username != "" && username != subject {
		return RefreshResult{Failure: RefreshFailureMismatch, Username: subject, AuthKey: authKey}
	}

	if deps.LoadPrincipal != nil {
		if err := deps.LoadPrincipal(ctx, subject); err != nil {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err, Username: subject, AuthKey: authKey}
		}
	}

	taken, ok, err := deps.Cache.Take(ctx, refreshKey)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCache, Err: err, Username: subject, AuthKey: authKey}
	}
	if !ok || taken != rawRefresh {
		return RefreshResult{Failure: RefreshFailureUnavailable, Username: subject, AuthKey: authKey}
	}

	// A concurrent logout may have revoked the auth half after we won the
	// refresh half. Revocation wins.
	_, ok, err = deps.Cache.Take(ctx, authKey)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureCache, Err: err, Username: subject, AuthKey: authKey}
	}
	if !ok {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Username: subject, AuthKey: authKey}
	}

	return RefreshResult{
		Failure:  RefreshFailureNone,
		Username: subject,
		AuthKey:  authKey,
	}
}
