// Package expiry computes and checks credential expiry timestamps.
//
// Single-use codes get a fixed lifetime. Long-lived tokens accept a caller
// requested expiry bounded by an optional ceiling. Expiry is always derived
// from the clock at read time and never triggers deletion.
package expiry

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidExpiry = errors.New("invalid expiry")

// Fixed assigns every credential the same lifetime.
type Fixed struct {
	Duration time.Duration
}

// ExpiresAt returns the expiry for a credential created at now. A positive
// override replaces the configured duration.
func (p Fixed) ExpiresAt(now time.Time, override time.Duration) (time.Time, error) {
	d := p.Duration
	if override != 0 {
		d = override
	}
	if d <= 0 {
		return time.Time{}, fmt.Errorf("%w: duration must be positive", ErrInvalidExpiry)
	}
	return now.Add(d), nil
}

// Ceiling bounds caller requested expiries. A zero Max disables the ceiling
// and allows credentials that never expire.
type Ceiling struct {
	Max time.Duration
}

// Resolve checks a requested expiry. A nil request asks for no expiry.
func (p Ceiling) Resolve(now time.Time, requested *time.Time) (*time.Time, error) {
	if requested == nil {
		if p.Max > 0 {
			return nil, fmt.Errorf("%w: an expiry is required, maximum lifetime is %s", ErrInvalidExpiry, p.Max)
		}
		return nil, nil
	}

	at := *requested
	if !at.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidExpiry)
	}
	if p.Max > 0 && at.After(now.Add(p.Max)) {
		return nil, fmt.Errorf("%w: expiry exceeds maximum lifetime of %s", ErrInvalidExpiry, p.Max)
	}
	return &at, nil
}

// MaxAllowed reports the latest expiry Resolve would accept at now.
func (p Ceiling) MaxAllowed(now time.Time) (time.Time, bool) {
	if p.Max <= 0 {
		return time.Time{}, false
	}
	return now.Add(p.Max), true
}

// Expired reports whether expiresAt lies strictly before now.
func Expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}
