package tokenlife

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/tokenlife/cache"
	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder may be used for one Build call.
type Builder struct {
	config Config
	cache  TokenCache
	redis  redis.UniversalClient

	codec    TokenCodec
	resolver IdentityResolver
	logger   *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCache sets the token cache. It takes precedence over WithRedis.
func (b *Builder) WithCache(c TokenCache) *Builder {
	b.cache = c
	return b
}

// WithRedis builds a [cache.Redis] over client using Config.Cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCodec sets the token codec, typically a *jwt.Manager.
func (b *Builder) WithCodec(codec TokenCodec) *Builder {
	b.codec = codec
	return b
}

// WithIdentityResolver sets the identity store.
func (b *Builder) WithIdentityResolver(r IdentityResolver) *Builder {
	b.resolver = r
	return b
}

// WithLogger sets the fallback logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the ResolvePrincipal latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.cache
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("token cache or redis client required")
		}
		store = cache.NewRedis(b.redis, cfg.Cache.RedisPrefix, cfg.Cache.Retention)
	}
	if b.codec == nil {
		return nil, errors.New("token codec required")
	}
	if b.resolver == nil {
		return nil, errors.New("identity resolver required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:   cfg,
		cache:    store,
		codec:    b.codec,
		resolver: b.resolver,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
	}
	engine.flows = flows.Deps{
		Refresh: flows.RefreshDeps{
			Cache:     store,
			IsExpired: b.codec.IsExpired,
			SubjectOf: b.codec.SubjectOf,
		},
		Resolve: flows.ResolveDeps{
			Cache:     store,
			IsExpired: b.codec.IsExpired,
			SubjectOf: b.codec.SubjectOf,
		},
		Logout:  flows.LogoutDeps{Cache: store},
		Consume: flows.ConsumeDeps{Cache: store},
	}

	b.built = true

	return engine, nil
}
