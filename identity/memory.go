package identity

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/password"
)

type record struct {
	principal  tokenlife.Principal
	secretHash string
	payload    tokenlife.RegistrationPayload
}

// Memory is an in-process IdentityResolver.
type Memory struct {
	mu      sync.RWMutex
	records map[string]record
	hasher  password.Hasher
}

// NewMemory returns an empty store that hashes new secrets with hasher.
func NewMemory(hasher password.Hasher) *Memory {
	return &Memory{
		records: make(map[string]record),
		hasher:  hasher,
	}
}

// Put creates or replaces p with the given plaintext secret.
func (m *Memory) Put(p tokenlife.Principal, secret string) error {
	const op = "identity.memory.Put"

	if p.Username == "" {
		return fmt.Errorf("%s: empty username", op)
	}
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[p.Username] = record{principal: clonePrincipal(p), secretHash: hash}
	return nil
}

// Create is Put that refuses to overwrite an existing username.
func (m *Memory) Create(p tokenlife.Principal, secret string) error {
	const op = "identity.memory.Create"

	m.mu.RLock()
	_, exists := m.records[p.Username]
	m.mu.RUnlock()
	if exists {
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}
	return m.Put(p, secret)
}

func (m *Memory) LoadPrincipal(_ context.Context, username string) (tokenlife.Principal, error) {
	const op = "identity.memory.LoadPrincipal"

	m.mu.RLock()
	rec, ok := m.records[username]
	m.mu.RUnlock()
	if !ok {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrNotFound)
	}
	return clonePrincipal(rec.principal), nil
}

func (m *Memory) Authenticate(_ context.Context, identifier, secret string) (tokenlife.Principal, error) {
	const op = "identity.memory.Authenticate"

	m.mu.RLock()
	rec, ok := m.records[identifier]
	m.mu.RUnlock()
	if !ok {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrInvalidCredentials)
	}

	match, err := password.Verify(secret, rec.secretHash)
	if err != nil {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	if !match {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrInvalidCredentials)
	}
	m.upgradeHash(identifier, rec.secretHash, secret)
	return clonePrincipal(rec.principal), nil
}

// upgradeHash rewrites a verified hash made with weaker parameters. Failures
// leave the old hash in place for the next login to retry.
func (m *Memory) upgradeHash(username, current, secret string) {
	need, err := m.hasher.NeedsRehash(current)
	if err != nil || !need {
		return
	}
	hash, err := m.hasher.Hash(secret)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[username]
	// a concurrent Put wins
	if !ok || rec.secretHash != current {
		return
	}
	rec.secretHash = hash
	m.records[username] = rec
}

func (m *Memory) CompleteRegistration(_ context.Context, username string, payload tokenlife.RegistrationPayload) (tokenlife.Principal, error) {
	const op = "identity.memory.CompleteRegistration"

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[username]
	if !ok {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrNotFound)
	}
	rec.principal.Registered = true
	rec.principal.DisplayName = payload.DisplayName
	rec.payload = payload
	m.records[username] = rec
	return clonePrincipal(rec.principal), nil
}

// Delete removes username. Deleting an unknown username is a no-op.
func (m *Memory) Delete(username string) {
	m.mu.Lock()
	delete(m.records, username)
	m.mu.Unlock()
}

// Payload returns the registration payload stored for username, if any.
func (m *Memory) Payload(username string) (tokenlife.RegistrationPayload, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[username]
	return rec.payload, ok && rec.principal.Registered
}

func clonePrincipal(p tokenlife.Principal) tokenlife.Principal {
	p.Features = slices.Clone(p.Features)
	return p
}

var _ tokenlife.IdentityResolver = (*Memory)(nil)
