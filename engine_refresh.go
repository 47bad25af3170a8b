package tokenlife

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/MrEthical07/tokenlife/internal/redact"
)

// Refresh rotates an expired auth/refresh pair.
//
// bearer is the auth key presented in the Authorization header and must be
// the key the refresh token was issued with. username, when non-empty, must
// match the subject of the expired token. The refresh is accepted only after
// the signed token has expired. On success both old keys are consumed and a
// wholly new pair is issued; a rejected refresh leaves the cache untouched.
//
// Failure mapping:
//   - unknown or spent refresh token: ErrRefreshTokenUnavailable
//   - referenced auth token missing or unverifiable: ErrInvalidToken
//   - referenced token still valid: ErrTokenNotExpired
//   - bearer or username does not match the pair: ErrTokenMismatch
//   - principal no longer exists: ErrNotFound
func (e *Engine) Refresh(ctx context.Context, bearer, refreshToken, username string) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var principal Principal
	deps := e.flows.Refresh
	deps.LoadPrincipal = func(ctx context.Context, subject string) error {
		p, err := e.loadPrincipal(ctx, subject)
		if err != nil {
			return err
		}
		principal = p
		return nil
	}

	res := flows.RunRefresh(ctx, bearer, refreshToken, username, deps)
	if res.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		err := e.refreshError(res)
		e.log(ctx).Info("refresh_rejected",
			redact.Attr("refresh", refreshToken),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	resp, err := e.issuePair(ctx, principal)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.log(ctx).Debug("pair_rotated", slog.String("user", res.Username), redact.Attr("previous_auth", res.AuthKey))
	return resp, nil
}

func (e *Engine) refreshError(res flows.RefreshResult) error {
	switch res.Failure {
	case flows.RefreshFailureUnavailable:
		e.metricInc(MetricRefreshUnavailable)
		return ErrRefreshTokenUnavailable
	case flows.RefreshFailureNotExpired:
		e.metricInc(MetricRefreshNotExpired)
		return ErrTokenNotExpired
	case flows.RefreshFailureMismatch:
		e.metricInc(MetricRefreshMismatch)
		return ErrTokenMismatch
	case flows.RefreshFailureNotFound:
		// already mapped by loadPrincipal
		return res.Err
	case flows.RefreshFailureCache:
		return cacheError(res.Err)
	default:
		return ErrInvalidToken
	}
}
