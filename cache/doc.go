// Package cache provides the token keyspace backends: an in-process [Memory]
// map and a Redis-backed [Redis] store.
//
// Both implement tokenlife.TokenCache. Take is atomic on both: when callers
// race on one key, at most one of them observes it present.
//
// # Architecture boundaries
//
// This package stores opaque strings. It does NOT interpret entry envelopes,
// verify tokens, or decide lifecycle policy. Those responsibilities belong to
// the Engine.
//
// # What this package must NOT do
//
//   - Import tokenlife or jwt (no upward imports).
//   - Treat cache retention as a correctness mechanism. Token validity is
//     decided by the signed token's own expiry.
package cache
