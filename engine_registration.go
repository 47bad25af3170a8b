package tokenlife

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/MrEthical07/tokenlife/internal/redact"
)

const (
	dateOfBirthLayout    = "2006-01-02"
	maxDisplayNameLength = 128
	maxIdentityDocLength = 256
)

// CompleteRegistration finishes registration for the principal behind a
// registration token.
//
// The token must still be live, otherwise ErrNotFound. The payload is
// validated (ErrInvalidRegistration), persisted through the IdentityResolver,
// and only then is the token consumed. A racing call that consumes the token
// first makes this one fail with ErrNotFound. On success the now-registered
// principal receives a fresh auth/refresh pair.
func (e *Engine) CompleteRegistration(ctx context.Context, bearer string, payload RegistrationPayload) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var registered Principal
	res := flows.RunConsume(ctx, bearer, e.flows.Consume, func(ctx context.Context, username string) error {
		normalized, err := normalizeRegistration(payload)
		if err != nil {
			return err
		}
		p, err := e.resolver.CompleteRegistration(ctx, username, normalized)
		if err != nil {
			return resolverError(err)
		}
		registered = p
		return nil
	})

	switch res.Failure {
	case flows.ConsumeFailureNone:
	case flows.ConsumeFailureCache:
		e.metricInc(MetricRegistrationFailure)
		return nil, cacheError(res.Err)
	case flows.ConsumeFailurePrepare:
		e.metricInc(MetricRegistrationFailure)
		e.log(ctx).Info("registration_rejected",
			slog.String("user", res.Username),
			slog.String("reason", res.Err.Error()),
		)
		return nil, res.Err
	default:
		e.metricInc(MetricRegistrationFailure)
		e.log(ctx).Info("registration_rejected",
			redact.Attr("bearer", bearer),
			slog.String("reason", "token_unavailable"),
		)
		return nil, ErrNotFound
	}

	if registered.Username == "" {
		registered.Username = res.Username
	}
	registered.Registered = true

	resp, err := e.IssueForLogin(ctx, registered)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegistrationCompleted)
	e.log(ctx).Info("registration_completed", slog.String("user", registered.Username))
	return resp, nil
}

// Upgrade exchanges a registration token for a full auth/refresh pair (the
// "/me" path). The token is single-use: a second call with the same value
// fails with ErrInvalidToken.
func (e *Engine) Upgrade(ctx context.Context, bearer string) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var principal Principal
	res := flows.RunConsume(ctx, bearer, e.flows.Consume, func(ctx context.Context, username string) error {
		p, err := e.loadPrincipal(ctx, username)
		if err != nil {
			return err
		}
		principal = p
		return nil
	})

	switch res.Failure {
	case flows.ConsumeFailureNone:
	case flows.ConsumeFailureCache:
		e.metricInc(MetricUpgradeFailure)
		return nil, cacheError(res.Err)
	case flows.ConsumeFailurePrepare:
		e.metricInc(MetricUpgradeFailure)
		return nil, res.Err
	default:
		e.metricInc(MetricUpgradeFailure)
		e.log(ctx).Info("upgrade_rejected", redact.Attr("bearer", bearer))
		return nil, ErrInvalidToken
	}

	resp, err := e.issuePair(ctx, principal)
	if err != nil {
		e.metricInc(MetricUpgradeFailure)
		return nil, err
	}

	e.metricInc(MetricUpgradeSuccess)
	return resp, nil
}

// normalizeRegistration trims every field and validates the result. The
// trimmed payload is what gets persisted.
func normalizeRegistration(p RegistrationPayload) (RegistrationPayload, error) {
	out := RegistrationPayload{
		DisplayName:      strings.TrimSpace(p.DisplayName),
		DateOfBirth:      strings.TrimSpace(p.DateOfBirth),
		IdentityDocument: strings.TrimSpace(p.IdentityDocument),
	}

	if out.DisplayName == "" {
		return RegistrationPayload{}, fmt.Errorf("%w: display name required", ErrInvalidRegistration)
	}
	if len(out.DisplayName) > maxDisplayNameLength {
		return RegistrationPayload{}, fmt.Errorf("%w: display name too long", ErrInvalidRegistration)
	}

	dob, err := time.Parse(dateOfBirthLayout, out.DateOfBirth)
	if err != nil {
		return RegistrationPayload{}, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", ErrInvalidRegistration)
	}
	if dob.After(time.Now()) {
		return RegistrationPayload{}, fmt.Errorf("%w: date of birth is in the future", ErrInvalidRegistration)
	}

	if out.IdentityDocument == "" {
		return RegistrationPayload{}, fmt.Errorf("%w: identity document required", ErrInvalidRegistration)
	}
	if len(out.IdentityDocument) > maxIdentityDocLength {
		return RegistrationPayload{}, fmt.Errorf("%w: identity document too long", ErrInvalidRegistration)
	}
	return out, nil
}
