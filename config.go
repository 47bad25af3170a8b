package tokenlife

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config holds engine settings. Build clones it, so later changes to the
// caller's copy have no effect.
type Config struct {
	Token   TokenConfig
	Cache   CacheConfig
	Metrics MetricsConfig
	// Features maps a capability name to the usernames that hold it.
	Features map[string][]string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls issued auth tokens.
type TokenConfig struct {
	// TTL is the lifetime of every signed token. Refresh is accepted only
	// once it has elapsed.
	TTL time.Duration
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the Redis-backed cache created by [Builder.WithRedis].
type CacheConfig struct {
	RedisPrefix string
	// Retention bounds how long an unconsumed entry may linger. Zero keeps
	// entries until they are consumed or revoked.
	Retention time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL: 15 * time.Minute,
		},
		Cache: CacheConfig{
			RedisPrefix: "tl",
			Retention:   30 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Features: map[string][]string{},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Features != nil {
		out.Features = make(map[string][]string, len(cfg.Features))
		for name, users := range cfg.Features {
			out.Features[name] = append([]string(nil), users...)
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}

	if strings.ContainsAny(c.Cache.RedisPrefix, " \t\n") {
		return errors.New("Cache RedisPrefix must not contain whitespace")
	}
	if c.Cache.Retention < 0 {
		return errors.New("Cache Retention must be >= 0")
	}
	// refresh needs the pair to outlive the token it guards
	if c.Cache.Retention > 0 && c.Cache.Retention <= c.Token.TTL {
		return errors.New("Cache Retention must exceed Token TTL")
	}

	for name, users := range c.Features {
		if strings.TrimSpace(name) == "" {
			return errors.New("Features contains an empty capability name")
		}
		for _, u := range users {
			if strings.TrimSpace(u) == "" {
				return fmt.Errorf("Features[%q] contains an empty username", name)
			}
		}
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a non-fatal configuration smell.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the ordered list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but probably unintended.
func (c *Config) Lint() LintResult {
	var ws LintResult

	if c.Token.TTL > time.Hour {
		ws = append(ws, LintWarning{
			Code:    "token_ttl_long",
			Message: "Token TTL above one hour widens the window for a stolen auth token",
		})
	}
	if c.Token.TTL > 0 && c.Token.TTL < time.Second {
		ws = append(ws, LintWarning{
			Code:    "token_ttl_short",
			Message: "Token TTL below one second forces a refresh on almost every request",
		})
	}
	if c.Cache.Retention == 0 {
		ws = append(ws, LintWarning{
			Code:    "cache_retention_unbounded",
			Message: "abandoned tokens are never dropped from the cache",
		})
	}

	names := make([]string, 0, len(c.Features))
	for name := range c.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(c.Features[name]) == 0 {
			ws = append(ws, LintWarning{
				Code:    "feature_without_users",
				Message: fmt.Sprintf("capability %q is granted to nobody", name),
			})
		}
	}

	return ws
}

// featuresFor returns the configured capabilities held by username, sorted.
func (c *Config) featuresFor(username string) []string {
	var out []string
	for name, users := range c.Features {
		for _, u := range users {
			if u == username {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
