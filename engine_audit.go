package goCred

import (
	"context"
	"errors"

	internalflows "github.com/MrEthical07/goCred/internal/flows"
)

const (
	auditEventPasswordResetIssue    = "password_reset_issue"
	auditEventPasswordResetValidate = "password_reset_validate"
	auditEventPasswordResetConsume  = "password_reset_consume"
	auditEventPasswordResetDelivery = "password_reset_delivery"
	auditEventPasswordResetPurge    = "password_reset_purge"
	auditEventVerificationIssue     = "email_verification_issue"
	auditEventVerificationValidate  = "email_verification_validate"
	auditEventVerificationConsume   = "email_verification_consume"
	auditEventVerificationDelivery  = "email_verification_delivery"
	auditEventTokenCreate           = "token_create"
	auditEventTokenValidate         = "token_validate"
	auditEventTokenRevoke           = "token_revoke"
	auditEventTokenUpdate           = "token_update"
	auditEventTokenTouch            = "token_touch"
	auditEventTokenDelete           = "token_delete"
	auditEventCredentialsPurged     = "credentials_purged"
	auditEventCredentialOperation   = "credential_operation"
)

var auditEvents = map[CredentialType]map[internalflows.Op]string{
	TypeResetCode: {
		internalflows.OpIssue:    auditEventPasswordResetIssue,
		internalflows.OpValidate: auditEventPasswordResetValidate,
		internalflows.OpConsume:  auditEventPasswordResetConsume,
	},
	TypeVerificationChallenge: {
		internalflows.OpIssue:    auditEventVerificationIssue,
		internalflows.OpValidate: auditEventVerificationValidate,
		internalflows.OpConsume:  auditEventVerificationConsume,
	},
	TypeLongLivedToken: {
		internalflows.OpIssue:    auditEventTokenCreate,
		internalflows.OpValidate: auditEventTokenValidate,
		internalflows.OpRevoke:   auditEventTokenRevoke,
		internalflows.OpUpdate:   auditEventTokenUpdate,
		internalflows.OpTouch:    auditEventTokenTouch,
	},
}

func auditEventName(typ CredentialType, op internalflows.Op) string {
	if name, ok := auditEvents[typ][op]; ok {
		return name
	}
	return auditEventCredentialOperation
}

// AuditErrorCode is the stable error classification written to
// AuditEvent.Error. Error strings never reach audit sinks.
type AuditErrorCode string

const (
	auditErrInvalidRequest    AuditErrorCode = "invalid_request"
	auditErrRateLimited       AuditErrorCode = "rate_limited"
	auditErrNotFound          AuditErrorCode = "not_found"
	auditErrInvalidCredential AuditErrorCode = "invalid_credential"
	auditErrUserNotFound      AuditErrorCode = "user_not_found"
	auditErrDeliveryFailed    AuditErrorCode = "delivery_failed"
	auditErrNotReady          AuditErrorCode = "engine_not_ready"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	typ CredentialType,
	success bool,
	userID string,
	credentialID string,
	reason Reason,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:      e.now().UTC(),
		EventType:      eventType,
		CredentialType: string(typ),
		CredentialID:   credentialID,
		UserID:         userID,
		IP:             clientIPFromContext(ctx),
		UserAgent:      userAgentFromContext(ctx),
		Success:        success,
		Reason:         string(reason),
		Metadata:       metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTooManyRequests):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrInvalidCredential):
		return auditErrInvalidCredential
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrEngineNotReady):
		return auditErrNotReady
	default:
		return auditErrInternal
	}
}
