// Package identity provides reference [tokenlife.IdentityResolver]
// implementations.
//
// [Memory] keeps principals in a mutex-guarded map and is meant for tests,
// examples and single-process deployments. [Postgres] stores them in the
// principals table created by migrations/1_init_principals.up.sql.
//
// Both verify secrets through [password.Verify], so bcrypt and Argon2id
// hashes may coexist in one store.
package identity
