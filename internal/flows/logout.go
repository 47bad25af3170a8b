package flows

import (
	"context"

	"github.com/MrEthical07/tokenlife/internal"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Cache Cache
}

// LogoutResult reports what a logout removed. Revoked is false when the
// bearer was already gone, which is not an error.
type LogoutResult struct {
	Revoked bool
	Kind    internal.EntryKind
	Sibling string
	Err     error
}

// RunLogout takes the bearer key and evicts the other half of its pair, if
// any. Repeated calls are no-ops.
func RunLogout(ctx context.Context, bearer string, deps LogoutDeps) LogoutResult {
	if _, err := internal.ParseTokenKey(bearer); err != nil {
		return LogoutResult{}
	}
	raw, ok, err := deps.Cache.Take(ctx, bearer)
	if err != nil {
		return LogoutResult{Err: err}
	}
	if !ok {
		return LogoutResult{}
	}

	entry, err := internal.DecodeEntry(raw)
	if err != nil {
		// the key is gone either way
		return LogoutResult{Revoked: true}
	}

	result := LogoutResult{Revoked: true, Kind: entry.Kind}
	switch entry.Kind {
	case internal.KindAuth, internal.KindRefresh:
		result.Sibling = entry.Ref
		result.Err = deps.Cache.Evict(ctx, entry.Ref)
	}
	return result
}
