// Package flows contains pure-function orchestrators for the token lifecycle.
//
// Each flow function (RunRefresh, RunResolve, RunLogout, RunConsume) accepts
// a typed dependency struct and returns a result carrying either the outcome
// or a failure kind. The root Engine maps failure kinds onto its sentinel
// errors, metrics, and log events.
//
// # Ordering
//
// Presented keys are shape-checked with internal.ParseTokenKey before any
// cache call. Every flow validates all preconditions against the cache
// before its first mutation, and every read-then-evict step goes through
// Take so that two racing callers cannot both succeed.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenlife (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
