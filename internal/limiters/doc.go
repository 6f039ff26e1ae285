// Package limiters decides whether a new credential may be issued for a
// subject.
//
// # Policy
//
// Prior issuances newer than the window are counted. Below MaxAttempts the
// request is allowed. At or above it, the request is allowed only once the
// cooldown measured from the newest counted issuance has elapsed; otherwise
// the denial carries that instant as NextAttemptAllowedAt. [Evaluate] is the
// single implementation of this rule and every backend calls it.
//
// # Limiters
//
//   - [HistoryLimiter]: reads issuance timestamps from the credential store.
//   - [RedisLimiter]: keeps a per-subject sorted set trimmed to the window,
//     expiring once neither window nor cooldown can still apply.
//
// Check and record are separate calls, so two concurrent issuances for one
// subject can both pass. The bound is approximate and no lock is taken here.
//
// # What this package must NOT do
//
//   - Import goCred or the credential lifecycle.
//   - Decide what happens after a denial.
package limiters
