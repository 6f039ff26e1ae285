// Package secret mints credential secrets and derives their stored digests.
//
// # Components
//
//   - [Generator]: human-enterable codes and long bearer tokens from crypto/rand.
//   - [Hasher]: deterministic one-way digests (SHA-256, BLAKE2b-256).
//
// # Architecture boundaries
//
// Plaintext secrets leave this package only as return values. Digests are
// hex strings so every store backend can index them as text.
//
// # What this package must NOT do
//
//   - Log, cache, or retain plaintext secrets.
//   - Salt digests per record (lookups are by digest).
//   - Fall back to a non-cryptographic random source.
package secret
