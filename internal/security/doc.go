// Package security summarizes the protection an engine configuration gives
// its credentials: secret entropy, lifetimes, and issuance limits.
//
// # What this package must NOT do
//
//   - Read engine state. Callers pass a ReportInput built from their config.
//   - Perform I/O.
package security
