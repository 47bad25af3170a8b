// Package jwt signs and verifies the self-contained tokens stored behind
// auth keys. Manager implements tokenlife.TokenCodec: signatures are always
// verified, while expiry is reported rather than enforced so that refresh can
// inspect tokens whose lifetime has already passed.
package jwt
