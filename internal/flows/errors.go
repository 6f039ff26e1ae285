package flows

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInternal          = errors.New("internal error")
	ErrUserNotFound      = errors.New("user not found")
)

// RateLimitError reports an issuance denied by the limiter.
type RateLimitError struct {
	NextAttemptAllowedAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: next attempt allowed at %s", ErrTooManyRequests, e.NextAttemptAllowedAt.UTC().Format(time.RFC3339Nano))
}

func (e *RateLimitError) Unwrap() error { return ErrTooManyRequests }

// InvalidCredentialError is returned by Consume when the credential can no
// longer be used. Reason is for logs and audit, not for the presenter.
type InvalidCredentialError struct {
	Reason Reason
}

func (e *InvalidCredentialError) Error() string {
	return ErrInvalidCredential.Error() + ": " + string(e.Reason)
}

func (e *InvalidCredentialError) Unwrap() error { return ErrInvalidCredential }

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInternal}, args...)...)
}

func invalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
}
