// Package password hashes and verifies login secrets.
//
// Two encodings are understood:
//
//	$2a$ / $2b$ / $2y$                    bcrypt (default for new hashes)
//	$argon2id$v=19$m=..,t=..,p=..$salt$hash   Argon2id in PHC format
//
// [Verify] dispatches on the stored prefix, so a store may hold both kinds
// while migrating. [Hasher.NeedsRehash] lets callers upgrade weak hashes on
// the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets. Callers supply plaintext and receive hashes.
//   - Import any other tokenlife package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
