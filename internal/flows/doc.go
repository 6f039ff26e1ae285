// Package flows contains the credential lifecycle shared by password reset
// codes, email verification challenges, and long-lived tokens.
//
// A [Lifecycle] is parameterized by a [Profile] describing one credential
// family (secret shape, expiry policy, single-use or revocable, issuance
// budget, metadata hooks) and a [Deps] struct carrying the collaborators it
// calls. The Engine builds three lifecycles at construction time and
// delegates every public credential method to one of them.
//
// # States
//
// Issued credentials are valid until they are retired (consumed or revoked)
// or their expiry passes. Expiry is evaluated against the clock on each read;
// nothing is stored when it passes.
//
// # Architecture boundaries
//
// The lifecycle owns ordering and retry decisions. Persistence, hashing,
// secret generation, and rate limiting are reached only through Deps.
//
// # What this package must NOT do
//
//   - Import goCred (to avoid import cycles).
//   - Return or log a plaintext secret anywhere except Issued.Secret.
//   - Distinguish validation failures through error values; they are results.
package flows
