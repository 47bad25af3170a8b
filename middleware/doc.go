// Package middleware exposes net/http guards built on
// tokenlife.Engine.ResolvePrincipal.
//
// # Guards
//
//   - [Guard] rejects requests without a resolvable bearer token.
//   - [RequireRegistered] additionally rejects principals that have not
//     finished registration.
//   - [Optional] attaches the principal when one resolves and never rejects.
//
// Each guard reads the Authorization header, strips the Bearer scheme with
// tokenlife.BearerToken, and stores the resolved principal in the request
// context for [PrincipalFromContext].
//
// # What this package must NOT do
//
//   - Touch the token cache or codec directly.
//   - Make decisions beyond pass/reject from ResolvePrincipal.
package middleware
