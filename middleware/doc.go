// Package middleware exposes net/http adapters that authenticate requests
// with long-lived API tokens.
//
// # Guards
//
//   - [Guard] rejects requests without a valid bearer token.
//   - [Optional] attaches a valid token when present and never rejects.
//
// Each guard reads the Authorization header, calls Engine.ValidateToken, and
// stores the [goCred.TokenValidation] in the request context.
//
// # What this package must NOT do
//
//   - Hash or look up tokens itself. The Engine does that.
//   - Tell the client why a token was refused.
package middleware
