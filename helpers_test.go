package tokenlife_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/cache"
	"github.com/MrEthical07/tokenlife/identity"
	"github.com/MrEthical07/tokenlife/internal"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/password"
)

const testTTL = 1500 * time.Millisecond

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine *tokenlife.Engine
	cache  tokenlife.TokenCache
	mem    *cache.Memory
	ids    *identity.Memory
	clock  *fakeClock
	codec  *jwt.Manager
}

type harnessOption func(*harnessOptions)

type harnessOptions struct {
	redis    bool
	features map[string][]string
	metrics  bool
	leeway   time.Duration
}

func withRedis() harnessOption {
	return func(o *harnessOptions) { o.redis = true }
}

func withFeatures(f map[string][]string) harnessOption {
	return func(o *harnessOptions) { o.features = f }
}

func withMetrics() harnessOption {
	return func(o *harnessOptions) { o.metrics = true }
}

func withLeeway(d time.Duration) harnessOption {
	return func(o *harnessOptions) { o.leeway = d }
}

func newHarness(t testing.TB, opts ...harnessOption) *harness {
	t.Helper()

	var o harnessOptions
	for _, opt := range opts {
		opt(&o)
	}

	clock := newFakeClock()
	codec, err := jwt.NewManager(jwt.Config{
		TTL:           testTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("engine-test-secret"),
		Issuer:        "tokenlife-test",
		Leeway:        o.leeway,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("password.NewBcrypt: %v", err)
	}
	ids := identity.NewMemory(hasher)
	seed := []struct {
		p      tokenlife.Principal
		secret string
	}{
		{tokenlife.Principal{Username: "alice", DisplayName: "Alice", ProfilePicture: "https://img/alice.png", Registered: true, Features: []string{"search"}}, "alice-secret"},
		{tokenlife.Principal{Username: "mallory", DisplayName: "Mallory", Registered: true}, "mallory-secret"},
		{tokenlife.Principal{Username: "bob"}, "bob-secret"},
	}
	for _, s := range seed {
		if err := ids.Put(s.p, s.secret); err != nil {
			t.Fatalf("seed %s: %v", s.p.Username, err)
		}
	}

	cfg := tokenlife.DefaultConfig()
	cfg.Token.TTL = testTTL
	cfg.Cache.Retention = 0
	if o.features != nil {
		cfg.Features = o.features
	}
	cfg.Metrics.Enabled = o.metrics
	cfg.Metrics.EnableLatencyHistograms = o.metrics

	h := &harness{ids: ids, clock: clock, codec: codec}

	b := tokenlife.New().
		WithConfig(cfg).
		WithCodec(codec).
		WithIdentityResolver(ids).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if o.redis {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		b = b.WithRedis(rdb)
		h.cache = cache.NewRedis(rdb, cfg.Cache.RedisPrefix, 0)
	} else {
		h.mem = cache.NewMemory()
		h.cache = h.mem
		b = b.WithCache(h.mem)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h.engine = engine
	return h
}

func (h *harness) login(t *testing.T, user string) *tokenlife.Response {
	t.Helper()
	resp, err := h.engine.Login(context.Background(), user, user+"-secret")
	if err != nil {
		t.Fatalf("login %s: %v", user, err)
	}
	return resp
}

func (h *harness) mustGet(t *testing.T, key string) string {
	t.Helper()
	v, ok, err := h.cache.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("expected key to be present: ok=%v err=%v", ok, err)
	}
	return v
}

func (h *harness) mustBeAbsent(t *testing.T, key string) {
	t.Helper()
	_, ok, err := h.cache.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected key to be absent")
	}
}

// newKey returns a well-formed key that was never issued.
func newKey(t testing.TB) string {
	t.Helper()
	key, err := internal.NewTokenKey()
	if err != nil {
		t.Fatalf("NewTokenKey: %v", err)
	}
	return key
}
