// Package goCred issues, validates, and retires ephemeral credentials:
// password reset codes, email verification challenges, and long-lived API
// tokens.
//
// Every credential follows one lifecycle. A secret is minted, hashed before
// storage, handed to the requester exactly once, rate limited at issuance,
// checked for retirement and expiry at validation time, and irreversibly
// retired on consumption or revocation.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (credentials, validations, MetricsSnapshot). Lifecycle
// orchestration, secret generation, hashing, limiting, storage backends, and
// audit dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Persist or log a plaintext secret. It leaves the Engine only in the
//     Issued value returned to the caller and in the delivered message.
//   - Expose storage clients or record encodings in its public API.
//   - Distinguish validation failures to presenters. Use
//     [GenericFailureMessage]; Reason is for logs and audit.
package goCred
