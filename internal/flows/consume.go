package flows

import (
	"context"

	"github.com/MrEthical07/tokenlife/internal"
)

// ConsumeFailureKind classifies single-use registration token failures.
type ConsumeFailureKind int

const (
	ConsumeFailureNone ConsumeFailureKind = iota
	ConsumeFailureUnknown
	ConsumeFailurePrepare
	ConsumeFailureLost
	ConsumeFailureCache
)

type ConsumeResult struct {
	Failure  ConsumeFailureKind
	Err      error
	Username string
}

// ConsumeDeps captures registration-token consumption dependencies.
type ConsumeDeps struct {
	Cache Cache
}

// RunConsume spends a registration token exactly once.
//
// prepare runs with the stored username after the token is confirmed live
// and before it is taken; its error aborts the flow and leaves the token in
// place. A racing caller that takes the token first makes this call fail
// with ConsumeFailureLost.
func RunConsume(
	ctx context.Context,
	bearer string,
	deps ConsumeDeps,
	prepare func(ctx context.Context, username string) error,
) ConsumeResult {
	if _, err := internal.ParseTokenKey(bearer); err != nil {
		return ConsumeResult{Failure: ConsumeFailureUnknown, Err: err}
	}
	raw, ok, err := deps.Cache.Get(ctx, bearer)
	if err != nil {
		return ConsumeResult{Failure: ConsumeFailureCache, Err: err}
	}
	if !ok {
		return ConsumeResult{Failure: ConsumeFailureUnknown}
	}
	entry, err := internal.DecodeEntry(raw)
	if err != nil || entry.Kind != internal.KindRegistration {
		return ConsumeResult{Failure: ConsumeFailureUnknown, Err: err}
	}

	if prepare != nil {
		if err := prepare(ctx, entry.Subject); err != nil {
			return ConsumeResult{Failure: ConsumeFailurePrepare, Err: err, Username: entry.Subject}
		}
	}

	taken, ok, err := deps.Cache.Take(ctx, bearer)
	if err != nil {
		return ConsumeResult{Failure: ConsumeFailureCache, Err: err, Username: entry.Subject}
	}
	if !ok || taken != raw {
		return ConsumeResult{Failure: ConsumeFailureLost, Username: entry.Subject}
	}

	return ConsumeResult{Username: entry.Subject}
}
