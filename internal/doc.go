// Package internal contains helpers that are intentionally private to tokenlife:
// opaque cache-key generation and the cache entry envelope shared by the
// three token kinds.
//
// # Sub-packages
//
//   - flows: pure-function flow orchestrators for every Engine write/read path
//   - logctx: request-scoped slog logger carried in context.Context
//   - redact: log-safe token fingerprints
//   - config: server configuration loading (cleanenv)
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenlife API.
//   - Be imported by any package outside the tokenlife module.
package internal
