package tokenlife

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenlife/internal"
	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/MrEthical07/tokenlife/internal/redact"
)

// Engine is the token lifecycle manager.
//
// Engine holds no goroutines and no per-session state of its own: the
// [TokenCache] is the only shared mutable state it touches.
type Engine struct {
	config   Config
	cache    TokenCache
	codec    TokenCodec
	resolver IdentityResolver
	metrics  *Metrics
	logger   *slog.Logger
	flows    flows.Deps
	closed   atomic.Bool
}

// Close marks the engine unusable. Every later call fails with
// ErrEngineNotReady. Collaborators passed to the Builder are owned by the
// caller and are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closed.Store(true)
}

// MetricsSnapshot returns a copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() || e.cache == nil || e.codec == nil || e.resolver == nil {
		return ErrEngineNotReady
	}
	return nil
}

// IssueForLogin issues credentials for an authenticated principal.
//
// An unregistered principal gets a single-use registration token and nothing
// else. A registered principal gets a fresh auth/refresh pair together with
// its display attributes and features.
func (e *Engine) IssueForLogin(ctx context.Context, p Principal) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, ErrNotFound
	}

	if !p.Registered {
		return e.issueRegistration(ctx, p)
	}

	resp, err := e.issuePair(ctx, p)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, err
	}
	e.metricInc(MetricLoginIssued)
	return resp, nil
}

// Login authenticates identifier and secret through the IdentityResolver and
// then behaves like [Engine.IssueForLogin].
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if identifier == "" || secret == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	p, err := e.resolver.Authenticate(ctx, identifier, secret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNotFound) {
			e.log(ctx).Info("login_rejected", slog.String("reason", "invalid_credentials"))
			return nil, ErrInvalidCredentials
		}
		e.log(ctx).Error("login_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return e.IssueForLogin(ctx, p)
}

// ResolvePrincipal maps a bearer token to its principal.
//
// Registration tokens resolve to their stored username directly. Auth tokens
// must carry a verifiable signature and must not have expired; an expired
// token fails with ErrInvalidToken and the client is expected to refresh.
// Refresh tokens are never accepted as bearer credentials.
func (e *Engine) ResolvePrincipal(ctx context.Context, bearer string) (Principal, error) {
	if err := e.ready(); err != nil {
		return Principal{}, err
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricResolveLatency, time.Since(start))
		}
	}()

	res := flows.RunResolve(ctx, bearer, e.flows.Resolve)
	switch res.Failure {
	case flows.ResolveFailureNone:
	case flows.ResolveFailureCache:
		e.metricInc(MetricResolveFailure)
		return Principal{}, cacheError(res.Err)
	default:
		e.metricInc(MetricResolveFailure)
		e.log(ctx).Debug("resolve_rejected",
			redact.Attr("bearer", bearer),
			slog.Bool("expired", res.Failure == flows.ResolveFailureExpired),
		)
		return Principal{}, ErrInvalidToken
	}

	p, err := e.loadPrincipal(ctx, res.Username)
	if err != nil {
		e.metricInc(MetricResolveFailure)
		return Principal{}, err
	}

	e.metricInc(MetricResolveSuccess)
	return p, nil
}

// Logout revokes the token named by bearer. Revoking an auth token also
// evicts its refresh token. Unknown or already revoked tokens are a no-op.
func (e *Engine) Logout(ctx context.Context, bearer string) error {
	if err := e.ready(); err != nil {
		return err
	}

	res := flows.RunLogout(ctx, bearer, e.flows.Logout)
	if res.Err != nil {
		return cacheError(res.Err)
	}
	if res.Revoked {
		e.metricInc(MetricLogout)
		e.log(ctx).Debug("token_revoked",
			redact.Attr("bearer", bearer),
			slog.String("kind", string(res.Kind)),
		)
	}
	return nil
}

func (e *Engine) issueRegistration(ctx context.Context, p Principal) (*Response, error) {
	key, err := internal.NewTokenKey()
	if err != nil {
		return nil, err
	}
	if err := e.cache.Put(ctx, key, internal.RegistrationEntry(p.Username).Encode()); err != nil {
		return nil, cacheError(err)
	}

	e.metricInc(MetricRegistrationTokenIssued)
	e.log(ctx).Debug("registration_token_issued", slog.String("user", p.Username))

	return &Response{
		UserName:          p.Username,
		RegistrationToken: key,
	}, nil
}

// issuePair signs a fresh token and stores a new auth/refresh pair. The
// refresh half is written first so an auth key never points at nothing.
func (e *Engine) issuePair(ctx context.Context, p Principal) (*Response, error) {
	ttl := e.config.Token.TTL
	signed, err := e.codec.Encode(p.Username, ttl)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}

	authKey, refreshKey, err := internal.NewTokenPair()
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(ctx, refreshKey, internal.RefreshEntry(authKey).Encode()); err != nil {
		return nil, cacheError(err)
	}
	if err := e.cache.Put(ctx, authKey, internal.AuthEntry(refreshKey, signed).Encode()); err != nil {
		_ = e.cache.Evict(ctx, refreshKey)
		return nil, cacheError(err)
	}

	e.log(ctx).Debug("pair_issued", slog.String("user", p.Username), redact.Attr("auth", authKey))

	return &Response{
		UserName:        p.Username,
		DisplayName:     p.DisplayName,
		AuthToken:       authKey,
		ExpiresInMillis: (ttl + e.expiryGrace()).Milliseconds(),
		RefreshToken:    refreshKey,
		ProfilePicture:  p.ProfilePicture,
		Features:        e.featuresFor(p),
	}, nil
}

func (e *Engine) loadPrincipal(ctx context.Context, username string) (Principal, error) {
	p, err := e.resolver.LoadPrincipal(ctx, username)
	if err != nil {
		return Principal{}, resolverError(err)
	}
	p.Features = e.featuresFor(p)
	return p, nil
}

// featuresFor merges the principal's own features with configured
// capabilities, sorted and de-duplicated.
func (e *Engine) featuresFor(p Principal) []string {
	configured := e.config.featuresFor(p.Username)
	if len(p.Features) == 0 && len(configured) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(p.Features)+len(configured))
	out := make([]string, 0, len(p.Features)+len(configured))
	for _, list := range [][]string{p.Features, configured} {
		for _, f := range list {
			if f == "" {
				continue
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// expiryGrace is how long past its ttl a token stays unexpired for a codec
// that applies leeway. Refresh opens only after ttl plus this grace.
func (e *Engine) expiryGrace() time.Duration {
	if g, ok := e.codec.(interface{ Leeway() time.Duration }); ok {
		return g.Leeway()
	}
	return 0
}

func cacheError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
}

func resolverError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("identity resolver: %w", err)
}
