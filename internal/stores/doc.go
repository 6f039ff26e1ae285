// Package stores persists credential records behind the [CredentialStore]
// contract.
//
// # Backends
//
//   - [MemoryStore]: process-local maps, for tests and single-node development.
//   - [RedisStore]: versioned binary records with a hash guard key per digest.
//     Inserts and deletes run under WATCH/MULTI; updates use a Lua
//     compare-and-set on the encoded revision.
//   - [PostgresStore]: pgx pool over a table with UNIQUE (type, secret_hash)
//     and a revision column; schema managed by goose migrations.
//   - [MongoStore]: one document per credential with a unique compound index
//     and a rev field.
//
// Every backend rejects a second record carrying the same digest for a type,
// and every GetByHash still reports [ErrDuplicateHash] if more than one match
// is ever observed.
//
// # Architecture boundaries
//
// This package owns persistence and optimistic concurrency only. It does not
// hash secrets, evaluate expiry, or decide validity; the lifecycle in
// internal/flows does.
//
// # What this package must NOT do
//
//   - Store or accept plaintext secrets.
//   - Delete records because they expired.
//   - Import goCred or any sibling internal package.
package stores
