package limiters

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLimiterUnavailable = errors.New("issuance limiter unavailable")
)

const (
	ReasonWithinQuota     = "within_quota"
	ReasonCooldownElapsed = "cooldown_elapsed"
	ReasonCoolingDown     = "cooling_down"
	ReasonUnlimited       = "unlimited"
)

// Policy is the issuance budget for one credential type. MaxAttempts <= 0
// disables limiting.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Cooldown    time.Duration
}

// Subject identifies whose issuances are counted. Scope narrows the count
// further, e.g. to the address being verified.
type Subject struct {
	Kind   string
	UserID string
	Scope  string
}

func (s Subject) key() string {
	k := s.Kind + ":" + s.UserID
	if s.Scope != "" {
		k += ":" + s.Scope
	}
	return k
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed              bool
	Reason               string
	Attempts             int
	NextAttemptAllowedAt time.Time
}

// Limiter checks and records issuances for a subject.
type Limiter interface {
	CanIssue(ctx context.Context, subject Subject, policy Policy, now time.Time) (Decision, error)
	Record(ctx context.Context, subject Subject, credentialID string, at time.Time, policy Policy) error
}

// Evaluate applies the window and cooldown rule to prior issuance times.
func Evaluate(history []time.Time, now time.Time, policy Policy) Decision {
	if policy.MaxAttempts <= 0 {
		return Decision{Allowed: true, Reason: ReasonUnlimited}
	}

	threshold := now.Add(-policy.Window)
	var (
		count  int
		newest time.Time
	)
	for _, at := range history {
		if !at.After(threshold) {
			continue
		}
		count++
		if at.After(newest) {
			newest = at
		}
	}

	if count < policy.MaxAttempts {
		return Decision{Allowed: true, Reason: ReasonWithinQuota, Attempts: count}
	}

	cooldownEndsAt := newest.Add(policy.Cooldown)
	if now.After(cooldownEndsAt) {
		return Decision{Allowed: true, Reason: ReasonCooldownElapsed, Attempts: count}
	}

	return Decision{
		Allowed:              false,
		Reason:               ReasonCoolingDown,
		Attempts:             count,
		NextAttemptAllowedAt: cooldownEndsAt,
	}
}

// HistoryLimiter evaluates the issuance history kept by the credential store.
// Record is a no-op because the stored credential is the record.
type HistoryLimiter struct {
	history func(ctx context.Context, subject Subject) ([]time.Time, error)
}

func NewHistoryLimiter(history func(ctx context.Context, subject Subject) ([]time.Time, error)) *HistoryLimiter {
	return &HistoryLimiter{history: history}
}

func (l *HistoryLimiter) CanIssue(ctx context.Context, subject Subject, policy Policy, now time.Time) (Decision, error) {
	if l == nil || l.history == nil || policy.MaxAttempts <= 0 {
		return Decision{Allowed: true, Reason: ReasonUnlimited}, nil
	}

	history, err := l.history(ctx, subject)
	if err != nil {
		return Decision{}, errors.Join(ErrLimiterUnavailable, err)
	}
	return Evaluate(history, now, policy), nil
}

func (l *HistoryLimiter) Record(context.Context, Subject, string, time.Time, Policy) error {
	return nil
}
