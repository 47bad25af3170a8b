//go:build integration
// +build integration

package test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/identity"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/password"
)

const (
	integrationPrefix = "it"
	integrationTTL    = time.Minute
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type integrationEnv struct {
	engine *tokenlife.Engine
	ids    *identity.Memory
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *stepClock
}

func newIntegrationEnv(t *testing.T, retention time.Duration) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
	codec, err := jwt.NewManager(jwt.Config{
		TTL:           integrationTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("integration-secret"),
		Issuer:        "tokenlife-it",
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
	if err := ids.Put(tokenlife.Principal{Username: "alice", Registered: true}, "alice-secret"); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if err := ids.Put(tokenlife.Principal{Username: "bob"}, "bob-secret"); err != nil {
		t.Fatalf("seed bob: %v", err)
	}

	cfg := tokenlife.DefaultConfig()
	cfg.Token.TTL = integrationTTL
	cfg.Cache.RedisPrefix = integrationPrefix
	cfg.Cache.Retention = retention

	engine, err := tokenlife.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCodec(codec).
		WithIdentityResolver(ids).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	return &integrationEnv{engine: engine, ids: ids, mr: mr, rdb: rdb, clock: clock}
}

func redisKey(k string) string {
	return integrationPrefix + ":" + k
}
