// Package tokenlife issues, rotates, and revokes bearer credentials for an HTTP API
// and gates identities that have not yet completed registration.
//
// Three token kinds share one cache keyspace of opaque random strings:
//
//   - AuthToken: points at a signed, self-contained token and its sibling refresh key.
//   - RefreshToken: single-use, points back at the auth key it was issued with.
//   - RegistrationToken: single-use, points at a bare username awaiting registration.
//
// An [Engine] orchestrates the [TokenCache], [TokenCodec], and [IdentityResolver]
// collaborators. Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tokenlife is the public surface. It exposes [Engine], [Builder], [Config], value
// types, and collaborator interfaces. Flow orchestration and the cache entry
// envelope live under internal/ and are never exported.
//
// # Lifecycle guarantees
//
// Every write path validates all of its preconditions before its first cache
// mutation. Every read-then-evict step uses [TokenCache.Take], so two callers
// racing on one refresh or registration token never both succeed.
package tokenlife
