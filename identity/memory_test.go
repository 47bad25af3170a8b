package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/password"
)

func newMemory(t *testing.T) *Memory {
	t.Helper()
	h, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	return NewMemory(h)
}

func TestMemory_Authenticate(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "alice", Registered: true, Features: []string{"beta"}}, "alice-secret"))

	p, err := m.Authenticate(context.Background(), "alice", "alice-secret")
	require.NoError(t, err)
	require.Equal(t, "alice", p.Username)
	require.True(t, p.Registered)
	require.Equal(t, []string{"beta"}, p.Features)

	_, err = m.Authenticate(context.Background(), "alice", "wrong-secret")
	require.ErrorIs(t, err, tokenlife.ErrInvalidCredentials)

	_, err = m.Authenticate(context.Background(), "nobody", "alice-secret")
	require.ErrorIs(t, err, tokenlife.ErrInvalidCredentials)
}

func TestMemory_Authenticate_UpgradesWeakHash(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "alice"}, "alice-secret"))
	original := m.records["alice"].secretHash

	stronger, err := password.NewBcrypt(bcrypt.MinCost + 1)
	require.NoError(t, err)
	m.hasher = stronger

	_, err = m.Authenticate(context.Background(), "alice", "alice-secret")
	require.NoError(t, err)
	upgraded := m.records["alice"].secretHash
	require.NotEqual(t, original, upgraded)
	cost, err := bcrypt.Cost([]byte(upgraded))
	require.NoError(t, err)
	require.Equal(t, bcrypt.MinCost+1, cost)

	// already current: left alone
	_, err = m.Authenticate(context.Background(), "alice", "alice-secret")
	require.NoError(t, err)
	require.Equal(t, upgraded, m.records["alice"].secretHash)

	// a failed login never rewrites the hash
	_, err = m.Authenticate(context.Background(), "alice", "wrong-secret")
	require.ErrorIs(t, err, tokenlife.ErrInvalidCredentials)
	require.Equal(t, upgraded, m.records["alice"].secretHash)
}

func TestMemory_Authenticate_MigratesBcryptToArgon2(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "alice"}, "alice-secret"))

	a, err := password.NewArgon2(password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	m.hasher = a

	_, err = m.Authenticate(context.Background(), "alice", "alice-secret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(m.records["alice"].secretHash, "$argon2id$"))

	_, err = m.Authenticate(context.Background(), "alice", "alice-secret")
	require.NoError(t, err)
}

func TestMemory_LoadPrincipal_NotFound(t *testing.T) {
	m := newMemory(t)
	_, err := m.LoadPrincipal(context.Background(), "ghost")
	require.ErrorIs(t, err, tokenlife.ErrNotFound)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "bob", Features: []string{"a"}}, "bob-secret-1"))

	p, err := m.LoadPrincipal(context.Background(), "bob")
	require.NoError(t, err)
	p.Features[0] = "mutated"

	again, err := m.LoadPrincipal(context.Background(), "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, again.Features)
}

func TestMemory_CompleteRegistration_Idempotent(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "carol"}, "carol-secret"))

	payload := tokenlife.RegistrationPayload{DisplayName: "Carol", DateOfBirth: "1990-04-01", IdentityDocument: "X123"}
	for range 2 {
		p, err := m.CompleteRegistration(context.Background(), "carol", payload)
		require.NoError(t, err)
		require.True(t, p.Registered)
		require.Equal(t, "Carol", p.DisplayName)
	}

	stored, ok := m.Payload("carol")
	require.True(t, ok)
	require.Equal(t, payload, stored)

	_, err := m.CompleteRegistration(context.Background(), "ghost", payload)
	require.True(t, errors.Is(err, tokenlife.ErrNotFound))
}

func TestMemory_Create_Duplicate(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Create(tokenlife.Principal{Username: "dave"}, "dave-secret"))
	require.ErrorIs(t, m.Create(tokenlife.Principal{Username: "dave"}, "dave-secret"), ErrAlreadyExists)
}

func TestMemory_AcceptsArgon2Hashes(t *testing.T) {
	a, err := password.NewArgon2(password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	m := NewMemory(a)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "erin", Registered: true}, "erin-secret"))

	_, err = m.Authenticate(context.Background(), "erin", "erin-secret")
	require.NoError(t, err)
}

func TestMemory_Delete(t *testing.T) {
	m := newMemory(t)
	require.NoError(t, m.Put(tokenlife.Principal{Username: "frank"}, "frank-secret"))
	m.Delete("frank")
	m.Delete("frank")

	_, err := m.LoadPrincipal(context.Background(), "frank")
	require.ErrorIs(t, err, tokenlife.ErrNotFound)
}
