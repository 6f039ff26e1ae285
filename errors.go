package goCred

import (
	"errors"

	internalflows "github.com/MrEthical07/goCred/internal/flows"
)

var (
	// ErrInvalidRequest reports a malformed request, such as a missing user id
	// or an expiry beyond the configured maximum.
	ErrInvalidRequest = internalflows.ErrInvalidRequest
	// ErrTooManyRequests is wrapped by every *RateLimitError.
	ErrTooManyRequests = internalflows.ErrTooManyRequests
	// ErrNotFound is returned by id-based operations only. Secret-based
	// validation reports a Reason instead.
	ErrNotFound = internalflows.ErrNotFound
	// ErrInvalidCredential is wrapped by every *InvalidCredentialError.
	ErrInvalidCredential = internalflows.ErrInvalidCredential
	// ErrInternal covers storage failures and integrity violations.
	ErrInternal = internalflows.ErrInternal
	// ErrUserNotFound must be returned by UserProvider for unknown users.
	ErrUserNotFound = internalflows.ErrUserNotFound

	ErrEngineNotReady = errors.New("engine not initialized")
	ErrDeliveryFailed = errors.New("credential delivery failed")
)

// RateLimitError carries the earliest time the next issuance is allowed.
type RateLimitError = internalflows.RateLimitError

// InvalidCredentialError carries the internal reason a consume failed.
type InvalidCredentialError = internalflows.InvalidCredentialError

// GenericFailureMessage is the only text callers should show for a failed
// validation or consume.
const GenericFailureMessage = internalflows.GenericFailureMessage
