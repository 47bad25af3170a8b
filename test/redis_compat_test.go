//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokenlife"
)

func TestRedisKeyLayout(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t, 0)

	resp, err := env.engine.Login(ctx, "alice", "alice-secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	authRaw, err := env.mr.Get(redisKey(resp.AuthToken))
	if err != nil {
		t.Fatalf("auth key missing: %v", err)
	}
	if !strings.HasPrefix(authRaw, "a|"+resp.RefreshToken+"|") {
		t.Fatalf("unexpected auth entry: %q", authRaw)
	}

	refreshRaw, err := env.mr.Get(redisKey(resp.RefreshToken))
	if err != nil {
		t.Fatalf("refresh key missing: %v", err)
	}
	if refreshRaw != "r|"+resp.AuthToken {
		t.Fatalf("unexpected refresh entry: %q", refreshRaw)
	}

	reg, err := env.engine.Login(ctx, "bob", "bob-secret")
	if err != nil {
		t.Fatalf("Login bob failed: %v", err)
	}
	regRaw, err := env.mr.Get(redisKey(reg.RegistrationToken))
	if err != nil {
		t.Fatalf("registration key missing: %v", err)
	}
	if regRaw != "w|bob" {
		t.Fatalf("unexpected registration entry: %q", regRaw)
	}
}

func TestRedisRetentionApplied(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t, 2*time.Hour)

	resp, err := env.engine.Login(ctx, "alice", "alice-secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	for _, k := range []string{resp.AuthToken, resp.RefreshToken} {
		if ttl := env.mr.TTL(redisKey(k)); ttl != 2*time.Hour {
			t.Fatalf("expected retention 2h on %s, got %v", k, ttl)
		}
	}

	env.mr.FastForward(2*time.Hour + time.Second)
	if _, err := env.engine.ResolvePrincipal(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after retention, got %v", err)
	}
}

func TestRedisUnavailableSurfacesCacheError(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t, 0)

	env.mr.Close()

	_, err := env.engine.Login(ctx, "alice", "alice-secret")
	if !errors.Is(err, tokenlife.ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if tokenlife.IsAuthFailure(err) {
		t.Fatal("cache outage must not look like an auth failure")
	}
}

func TestRedisUpgradeSingleUse(t *testing.T) {
	ctx := context.Background()
	env := newIntegrationEnv(t, 0)

	reg, err := env.engine.Login(ctx, "bob", "bob-secret")
	if err != nil {
		t.Fatalf("Login bob failed: %v", err)
	}

	resp, err := env.engine.CompleteRegistration(ctx, reg.RegistrationToken, tokenlife.RegistrationPayload{
		DisplayName:      "Bob",
		DateOfBirth:      "1990-04-01",
		IdentityDocument: "ID-42",
	})
	if err != nil {
		t.Fatalf("CompleteRegistration failed: %v", err)
	}
	if !resp.Active() {
		t.Fatal("expected an auth/refresh pair")
	}
	if env.mr.Exists(redisKey(reg.RegistrationToken)) {
		t.Fatal("registration token must be consumed")
	}

	if _, err := env.engine.Upgrade(ctx, reg.RegistrationToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
}
