package tokenlife_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/MrEthical07/tokenlife"
)

func TestIssueForLoginRegisteredResolvesToPrincipal(t *testing.T) {
	h := newHarness(t, withFeatures(map[string][]string{
		"admin":  {"alice"},
		"search": {"alice"},
		"beta":   {"bob"},
	}))
	ctx := context.Background()

	resp := h.login(t, "alice")
	if !resp.Active() || resp.RegistrationToken != "" {
		t.Fatalf("expected auth pair only, got %+v", resp)
	}
	if resp.AuthToken == resp.RefreshToken {
		t.Fatal("auth and refresh keys must differ")
	}
	if resp.ExpiresInMillis != testTTL.Milliseconds() {
		t.Fatalf("expected ttl %d, got %d", testTTL.Milliseconds(), resp.ExpiresInMillis)
	}
	if resp.DisplayName != "Alice" || resp.ProfilePicture != "https://img/alice.png" {
		t.Fatalf("unexpected display attributes %+v", resp)
	}
	if want := []string{"admin", "search"}; !reflect.DeepEqual(resp.Features, want) {
		t.Fatalf("expected features %v, got %v", want, resp.Features)
	}

	p, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken)
	if err != nil {
		t.Fatalf("ResolvePrincipal: %v", err)
	}
	if p.Username != "alice" || !p.Registered {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestIssueForLoginUnregisteredReturnsRegistrationTokenOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp := h.login(t, "bob")
	if resp.RegistrationToken == "" || resp.AuthToken != "" || resp.RefreshToken != "" || resp.ExpiresInMillis != 0 {
		t.Fatalf("expected registration token only, got %+v", resp)
	}
	if resp.UserName != "bob" {
		t.Fatalf("expected userName bob, got %q", resp.UserName)
	}

	p, err := h.engine.ResolvePrincipal(ctx, resp.RegistrationToken)
	if err != nil || p.Username != "bob" || p.Registered {
		t.Fatalf("registration token should resolve to unregistered bob: %+v %v", p, err)
	}

	done, err := h.engine.CompleteRegistration(ctx, resp.RegistrationToken, tokenlife.RegistrationPayload{
		DisplayName:      "Bob",
		DateOfBirth:      "1991-02-03",
		IdentityDocument: "P1234567",
	})
	if err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}
	if !done.Active() || done.DisplayName != "Bob" {
		t.Fatalf("expected active response after registration, got %+v", done)
	}
	h.mustBeAbsent(t, resp.RegistrationToken)

	again := h.login(t, "bob")
	if !again.Active() || again.RegistrationToken != "" {
		t.Fatalf("registered bob should now get a pair, got %+v", again)
	}
}

func TestCompleteRegistrationRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.login(t, "bob").RegistrationToken

	bad := []tokenlife.RegistrationPayload{
		{DisplayName: "", DateOfBirth: "1991-02-03", IdentityDocument: "X"},
		{DisplayName: "Bob", DateOfBirth: "03/02/1991", IdentityDocument: "X"},
		{DisplayName: "Bob", DateOfBirth: time.Now().AddDate(1, 0, 0).Format("2006-01-02"), IdentityDocument: "X"},
		{DisplayName: "Bob", DateOfBirth: "1991-02-03", IdentityDocument: "  "},
	}
	for _, payload := range bad {
		if _, err := h.engine.CompleteRegistration(ctx, reg, payload); !errors.Is(err, tokenlife.ErrInvalidRegistration) {
			t.Fatalf("expected ErrInvalidRegistration for %+v, got %v", payload, err)
		}
	}
	// rejected payloads do not consume the token
	h.mustGet(t, reg)

	if _, err := h.engine.CompleteRegistration(ctx, "unknown", tokenlife.RegistrationPayload{}); !errors.Is(err, tokenlife.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}

	auth := h.login(t, "alice").AuthToken
	if _, err := h.engine.CompleteRegistration(ctx, auth, tokenlife.RegistrationPayload{}); !errors.Is(err, tokenlife.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an auth token, got %v", err)
	}
	h.mustGet(t, auth)

	good := tokenlife.RegistrationPayload{DisplayName: "Bob", DateOfBirth: "1991-02-03", IdentityDocument: "X"}
	if _, err := h.engine.CompleteRegistration(ctx, reg, good); err != nil {
		t.Fatalf("CompleteRegistration: %v", err)
	}
	if _, err := h.engine.CompleteRegistration(ctx, reg, good); !errors.Is(err, tokenlife.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for consumed token, got %v", err)
	}
}

func TestCompleteRegistrationPersistsTrimmedPayload(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []harnessOption
	}{
		{"memory", nil},
		{"redis", []harnessOption{withRedis()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.opts...)
			ctx := context.Background()
			reg := h.login(t, "bob").RegistrationToken

			resp, err := h.engine.CompleteRegistration(ctx, reg, tokenlife.RegistrationPayload{
				DisplayName:      "   Bob   ",
				DateOfBirth:      " 1990-01-01 ",
				IdentityDocument: " X1 ",
			})
			if err != nil {
				t.Fatalf("CompleteRegistration: %v", err)
			}
			if resp.DisplayName != "Bob" {
				t.Fatalf("expected trimmed display name, got %q", resp.DisplayName)
			}

			stored, ok := h.ids.Payload("bob")
			if !ok {
				t.Fatal("expected bob to be registered")
			}
			want := tokenlife.RegistrationPayload{DisplayName: "Bob", DateOfBirth: "1990-01-01", IdentityDocument: "X1"}
			if stored != want {
				t.Fatalf("expected stored payload %+v, got %+v", want, stored)
			}
		})
	}
}

func TestRefreshRejectedUntilExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")

	authBefore := h.mustGet(t, resp.AuthToken)
	refreshBefore := h.mustGet(t, resp.RefreshToken)

	h.clock.Advance(testTTL - time.Millisecond)
	if _, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "alice"); !errors.Is(err, tokenlife.ErrTokenNotExpired) {
		t.Fatalf("expected ErrTokenNotExpired, got %v", err)
	}

	if got := h.mustGet(t, resp.AuthToken); got != authBefore {
		t.Fatal("rejected refresh mutated the auth entry")
	}
	if got := h.mustGet(t, resp.RefreshToken); got != refreshBefore {
		t.Fatal("rejected refresh mutated the refresh entry")
	}
	if _, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken); err != nil {
		t.Fatalf("auth token should remain usable after early refresh: %v", err)
	}

	h.clock.Advance(time.Millisecond)
	next, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "alice")
	if err != nil {
		t.Fatalf("Refresh after expiry: %v", err)
	}
	if !next.Active() {
		t.Fatalf("expected new pair, got %+v", next)
	}
}

func TestRefreshOpensAtReportedExpiryWithLeeway(t *testing.T) {
	const leeway = 500 * time.Millisecond
	h := newHarness(t, withLeeway(leeway))
	ctx := context.Background()

	resp := h.login(t, "alice")
	if want := (testTTL + leeway).Milliseconds(); resp.ExpiresInMillis != want {
		t.Fatalf("expected expiresInMillis %d, got %d", want, resp.ExpiresInMillis)
	}

	h.clock.Advance(time.Duration(resp.ExpiresInMillis-1) * time.Millisecond)
	if _, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "alice"); !errors.Is(err, tokenlife.ErrTokenNotExpired) {
		t.Fatalf("expected ErrTokenNotExpired inside the leeway, got %v", err)
	}

	h.clock.Advance(time.Millisecond)
	next, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "alice")
	if err != nil {
		t.Fatalf("Refresh at reported expiry: %v", err)
	}
	if next.ExpiresInMillis != resp.ExpiresInMillis {
		t.Fatalf("rotated pair reports %d, want %d", next.ExpiresInMillis, resp.ExpiresInMillis)
	}
}

func TestRefreshScenarioFullRotation(t *testing.T) {
	for _, backend := range []struct {
		name string
		opts []harnessOption
	}{
		{"memory", nil},
		{"redis", []harnessOption{withRedis()}},
	} {
		t.Run(backend.name, func(t *testing.T) {
			h := newHarness(t, backend.opts...)
			ctx := context.Background()

			first := h.login(t, "alice")
			if first.ExpiresInMillis != 1500 {
				t.Fatalf("expected ttl 1500, got %d", first.ExpiresInMillis)
			}

			h.clock.Advance(1500 * time.Millisecond)

			second, err := h.engine.Refresh(ctx, first.AuthToken, first.RefreshToken, "")
			if err != nil {
				t.Fatalf("Refresh: %v", err)
			}
			if second.AuthToken == first.AuthToken || second.RefreshToken == first.RefreshToken {
				t.Fatal("rotation must issue wholly new keys")
			}
			if second.UserName != "alice" || second.DisplayName != "Alice" {
				t.Fatalf("unexpected rotated response %+v", second)
			}

			if _, err := h.engine.ResolvePrincipal(ctx, first.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
				t.Fatalf("old auth token should be invalid, got %v", err)
			}
			if p, err := h.engine.ResolvePrincipal(ctx, second.AuthToken); err != nil || p.Username != "alice" {
				t.Fatalf("new auth token should resolve: %+v %v", p, err)
			}

			if _, err := h.engine.Refresh(ctx, first.AuthToken, first.RefreshToken, "alice"); !errors.Is(err, tokenlife.ErrRefreshTokenUnavailable) {
				t.Fatalf("expected ErrRefreshTokenUnavailable on reuse, got %v", err)
			}
		})
	}
}

func TestRefreshAntiSwap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	victim := h.login(t, "alice")
	h.clock.Advance(testTTL)
	attacker := h.login(t, "mallory")

	if _, err := h.engine.Refresh(ctx, attacker.AuthToken, victim.RefreshToken, "alice"); !errors.Is(err, tokenlife.ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}
	h.mustGet(t, victim.AuthToken)
	h.mustGet(t, victim.RefreshToken)

	if _, err := h.engine.Refresh(ctx, victim.AuthToken, victim.RefreshToken, "mallory"); !errors.Is(err, tokenlife.ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch for wrong username, got %v", err)
	}

	if _, err := h.engine.Refresh(ctx, victim.AuthToken, victim.RefreshToken, "alice"); err != nil {
		t.Fatalf("legitimate refresh should still succeed: %v", err)
	}
}

func TestRefreshFailureKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")
	h.clock.Advance(testTTL)

	if _, err := h.engine.Refresh(ctx, resp.AuthToken, newKey(t), ""); !errors.Is(err, tokenlife.ErrRefreshTokenUnavailable) {
		t.Fatalf("unknown refresh token: got %v", err)
	}
	if _, err := h.engine.Refresh(ctx, resp.AuthToken, "nope", ""); !errors.Is(err, tokenlife.ErrRefreshTokenUnavailable) {
		t.Fatalf("malformed refresh token: got %v", err)
	}
	// an auth key is not a refresh token
	if _, err := h.engine.Refresh(ctx, resp.AuthToken, resp.AuthToken, ""); !errors.Is(err, tokenlife.ErrRefreshTokenUnavailable) {
		t.Fatalf("auth key as refresh token: got %v", err)
	}

	// referenced auth entry gone
	if err := h.cache.Evict(ctx, resp.AuthToken); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, ""); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("missing auth entry: got %v", err)
	}
	h.mustGet(t, resp.RefreshToken)
}

func TestRefreshPrincipalDeleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.ids.Put(tokenlife.Principal{Username: "temp", Registered: true}, "temp-secret"); err != nil {
		t.Fatal(err)
	}
	resp := h.login(t, "temp")
	h.clock.Advance(testTTL)
	h.ids.Delete("temp")

	if _, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, ""); !errors.Is(err, tokenlife.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted principal, got %v", err)
	}
	h.mustGet(t, resp.AuthToken)
	h.mustGet(t, resp.RefreshToken)
}

func TestLogoutIdempotentAndRevokesPair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")

	for i := 0; i < 2; i++ {
		if err := h.engine.Logout(ctx, resp.AuthToken); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
	}
	if _, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	h.mustBeAbsent(t, resp.RefreshToken)

	if err := h.engine.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout of unknown token must be a no-op, got %v", err)
	}
	if h.mem.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", h.mem.Len())
	}
}

func TestLogoutRefreshTokenRevokesAuthSibling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")

	if err := h.engine.Logout(ctx, resp.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	h.mustBeAbsent(t, resp.AuthToken)
	h.mustBeAbsent(t, resp.RefreshToken)
}

func TestResolvePrincipalRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")

	if _, err := h.engine.ResolvePrincipal(ctx, newKey(t)); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("unknown bearer: got %v", err)
	}
	if _, err := h.engine.ResolvePrincipal(ctx, "unknown"); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("malformed bearer: got %v", err)
	}
	if _, err := h.engine.ResolvePrincipal(ctx, resp.RefreshToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("refresh token as bearer: got %v", err)
	}

	h.clock.Advance(testTTL)
	if _, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expired auth token: got %v", err)
	}
	// expiry does not evict; the pair is still refreshable
	h.mustGet(t, resp.AuthToken)
}

func TestResolvePrincipalTamperedEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp := h.login(t, "alice")

	forged := "a|" + resp.RefreshToken + "|not.a.jwt"
	if err := h.cache.Put(ctx, resp.AuthToken, forged); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged entry, got %v", err)
	}

	raw := newKey(t)
	if err := h.cache.Put(ctx, raw, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.ResolvePrincipal(ctx, raw); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for untyped entry, got %v", err)
	}
}

func TestUpgradeScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t1 := h.login(t, "bob").RegistrationToken

	resp, err := h.engine.Upgrade(ctx, t1)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if !resp.Active() || resp.UserName != "bob" {
		t.Fatalf("expected full credentials, got %+v", resp)
	}

	if _, err := h.engine.Upgrade(ctx, t1); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on replay, got %v", err)
	}

	if _, err := h.engine.Upgrade(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrInvalidToken) {
		t.Fatalf("auth token cannot be upgraded, got %v", err)
	}
	h.mustGet(t, resp.AuthToken)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, tc := range []struct{ id, secret string }{
		{"alice", "wrong-secret"},
		{"nobody", "whatever-secret"},
		{"", "alice-secret"},
		{"alice", ""},
	} {
		if _, err := h.engine.Login(ctx, tc.id, tc.secret); !errors.Is(err, tokenlife.ErrInvalidCredentials) {
			t.Fatalf("Login(%q): expected ErrInvalidCredentials, got %v", tc.id, err)
		}
	}
	if h.mem.Len() != 0 {
		t.Fatalf("failed logins must not write to the cache, got %d entries", h.mem.Len())
	}
}

func TestIssueForLoginEmptyUsername(t *testing.T) {
	h := newHarness(t)
	if _, err := h.engine.IssueForLogin(context.Background(), tokenlife.Principal{Registered: true}); !errors.Is(err, tokenlife.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClosedEngineNotReady(t *testing.T) {
	h := newHarness(t)
	resp := h.login(t, "alice")
	h.engine.Close()

	ctx := context.Background()
	if _, err := h.engine.ResolvePrincipal(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := h.engine.Logout(ctx, resp.AuthToken); !errors.Is(err, tokenlife.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestEngineMetrics(t *testing.T) {
	h := newHarness(t, withMetrics())
	ctx := context.Background()

	resp := h.login(t, "alice")
	h.login(t, "bob")
	_, _ = h.engine.Login(ctx, "alice", "bad-secret")
	_, _ = h.engine.ResolvePrincipal(ctx, resp.AuthToken)
	_, _ = h.engine.ResolvePrincipal(ctx, "unknown")
	_, _ = h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "")
	h.clock.Advance(testTTL)
	next, err := h.engine.Refresh(ctx, resp.AuthToken, resp.RefreshToken, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = h.engine.Logout(ctx, next.AuthToken)

	snap := h.engine.MetricsSnapshot()
	want := map[tokenlife.MetricID]uint64{
		tokenlife.MetricLoginIssued:             1,
		tokenlife.MetricLoginFailure:            1,
		tokenlife.MetricRegistrationTokenIssued: 1,
		tokenlife.MetricResolveSuccess:          1,
		tokenlife.MetricResolveFailure:          1,
		tokenlife.MetricRefreshFailure:          1,
		tokenlife.MetricRefreshNotExpired:       1,
		tokenlife.MetricRefreshSuccess:          1,
		tokenlife.MetricLogout:                  1,
	}
	for id, v := range want {
		if got := snap.Counters[id]; got != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, got)
		}
	}

	var samples uint64
	for _, n := range snap.Histograms[tokenlife.MetricResolveLatency] {
		samples += n
	}
	if samples != 2 {
		t.Fatalf("expected 2 latency samples, got %d", samples)
	}
}
