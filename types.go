package goCred

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	internalflows "github.com/MrEthical07/goCred/internal/flows"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/internal/stores"
)

// CredentialType tags the credential family of a record.
type CredentialType = stores.Type

const (
	TypeResetCode             CredentialType = stores.TypeResetCode
	TypeVerificationChallenge CredentialType = stores.TypeVerificationChallenge
	TypeLongLivedToken        CredentialType = stores.TypeLongLivedToken
)

// Reason explains a failed validation. It is for logs and audit only.
type Reason = internalflows.Reason

const (
	ReasonNone            = internalflows.ReasonNone
	ReasonNotFound        = internalflows.ReasonNotFound
	ReasonSubjectMismatch = internalflows.ReasonSubjectMismatch
	ReasonEmailMismatch   = internalflows.ReasonEmailMismatch
	ReasonUsed            = internalflows.ReasonUsed
	ReasonRevoked         = internalflows.ReasonRevoked
	ReasonExpired         = internalflows.ReasonExpired
	ReasonUserNotFound    = internalflows.ReasonUserNotFound
)

type (
	// ResetMetadata is empty; reset codes carry nothing beyond the record.
	ResetMetadata = internalflows.ResetMetadata
	// VerificationMetadata carries the address being verified.
	VerificationMetadata = internalflows.VerificationMetadata
	// TokenMetadata carries title, description, and last use of a token.
	TokenMetadata = internalflows.TokenMetadata
)

type (
	// PasswordResetCode is a stored reset code without its digest.
	PasswordResetCode = internalflows.Credential[ResetMetadata]
	// EmailVerification is a stored verification challenge without its digest.
	EmailVerification = internalflows.Credential[VerificationMetadata]
	// Token is a stored long-lived token without its digest.
	Token = internalflows.Credential[TokenMetadata]

	// IssuedResetCode carries the plaintext code once.
	IssuedResetCode = internalflows.Issued[ResetMetadata]
	// IssuedVerification carries the plaintext challenge once.
	IssuedVerification = internalflows.Issued[VerificationMetadata]
	// IssuedToken carries the plaintext token once.
	IssuedToken = internalflows.Issued[TokenMetadata]

	ResetValidation        = internalflows.Validation[ResetMetadata]
	VerificationValidation = internalflows.Validation[VerificationMetadata]
	TokenValidation        = internalflows.Validation[TokenMetadata]

	// ValidatedUser is the directory entry attached to a successful validation.
	ValidatedUser = internalflows.User
)

// UserProvider resolves credential owners. GetUserByID must return
// ErrUserNotFound for unknown users.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// UserRecord is the subset of a user the Engine needs: where to deliver
// messages and how to greet the recipient.
type UserRecord struct {
	UserID      string
	Email       string
	DisplayName string
}

// StaticUserProvider serves users from memory. It suits tests, examples, and
// the load generator.
type StaticUserProvider struct {
	mu    sync.RWMutex
	users map[string]UserRecord
}

func NewStaticUserProvider(users ...UserRecord) *StaticUserProvider {
	p := &StaticUserProvider{users: make(map[string]UserRecord, len(users))}
	for _, u := range users {
		p.users[u.UserID] = u
	}
	return p
}

func (p *StaticUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

// Put adds or replaces a user.
func (p *StaticUserProvider) Put(u UserRecord) {
	p.mu.Lock()
	p.users[u.UserID] = u
	p.mu.Unlock()
}

// Remove deletes a user; later validations of its credentials report
// ReasonUserNotFound.
func (p *StaticUserProvider) Remove(userID string) {
	p.mu.Lock()
	delete(p.users, userID)
	p.mu.Unlock()
}

// IssueOption adjusts a single issuance.
type IssueOption func(*issueOptions)

type issueOptions struct {
	ttl      time.Duration
	redirect string
	skipSend bool
}

// WithTTL overrides the configured lifetime of a reset code or verification
// challenge.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) { o.ttl = ttl }
}

// WithRedirect sets the path the reset page returns to after success.
func WithRedirect(path string) IssueOption {
	return func(o *issueOptions) { o.redirect = strings.TrimSpace(path) }
}

// WithoutDelivery skips the email; the caller delivers Issued.Secret itself.
func WithoutDelivery() IssueOption {
	return func(o *issueOptions) { o.skipSend = true }
}

func collectIssueOptions(opts []IssueOption) issueOptions {
	var o issueOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// TokenUpdate changes the descriptive fields of a token. Nil fields are left
// unchanged.
type TokenUpdate struct {
	Title       *string
	Description *string
}

// PurgeReport counts records removed by PurgeExpired.
type PurgeReport struct {
	ResetCodes    int
	Verifications int
	Tokens        int
}

// Total sums all credential types.
func (r PurgeReport) Total() int {
	return r.ResetCodes + r.Verifications + r.Tokens
}

// AuditEvent is an audit record emitted by the Engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events as log records.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a counter in MetricsSnapshot.
type MetricID = internalmetrics.MetricID

const (
	MetricResetIssued                 = internalmetrics.MetricResetIssued
	MetricResetRateLimited            = internalmetrics.MetricResetRateLimited
	MetricResetDeliveryFailure        = internalmetrics.MetricResetDeliveryFailure
	MetricResetValidateSuccess        = internalmetrics.MetricResetValidateSuccess
	MetricResetValidateFailure        = internalmetrics.MetricResetValidateFailure
	MetricResetConsumed               = internalmetrics.MetricResetConsumed
	MetricResetConsumeFailure         = internalmetrics.MetricResetConsumeFailure
	MetricVerificationIssued          = internalmetrics.MetricVerificationIssued
	MetricVerificationRateLimited     = internalmetrics.MetricVerificationRateLimited
	MetricVerificationDeliveryFailure = internalmetrics.MetricVerificationDeliveryFailure
	MetricVerificationValidateSuccess = internalmetrics.MetricVerificationValidateSuccess
	MetricVerificationValidateFailure = internalmetrics.MetricVerificationValidateFailure
	MetricVerificationConsumed        = internalmetrics.MetricVerificationConsumed
	MetricVerificationConsumeFailure  = internalmetrics.MetricVerificationConsumeFailure
	MetricTokenCreated                = internalmetrics.MetricTokenCreated
	MetricTokenValidateSuccess        = internalmetrics.MetricTokenValidateSuccess
	MetricTokenValidateFailure        = internalmetrics.MetricTokenValidateFailure
	MetricTokenRevoked                = internalmetrics.MetricTokenRevoked
	MetricTokenUpdated                = internalmetrics.MetricTokenUpdated
	MetricTokenDeleted                = internalmetrics.MetricTokenDeleted
	MetricCredentialsPurged           = internalmetrics.MetricCredentialsPurged
	MetricStoreErrors                 = internalmetrics.MetricStoreErrors
	MetricValidateLatency             = internalmetrics.MetricValidateLatency
)

// MetricsSnapshot is a point-in-time copy of the Engine's counters.
type MetricsSnapshot = internalmetrics.Snapshot
