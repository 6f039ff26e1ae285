package goCred

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goCred/email"
	internalflows "github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/logging"
)

// RequestEmailVerification issues a challenge proving userID controls
// address, and emails the code to address when a mailer is configured.
//
// Issuance is limited per user and address. If the email cannot be sent,
// the issued challenge is returned together with an error wrapping
// ErrDeliveryFailed; the challenge stays valid and the caller may hand the
// code over another way.
func (e *Engine) RequestEmailVerification(ctx context.Context, userID, address string, opts ...IssueOption) (IssuedVerification, error) {
	if e == nil || e.verifications == nil {
		return IssuedVerification{}, ErrEngineNotReady
	}
	address = strings.TrimSpace(address)
	if !email.ValidAddress(address) {
		return IssuedVerification{}, fmt.Errorf("%w: a valid email address is required", ErrInvalidRequest)
	}
	o := collectIssueOptions(opts)

	issued, err := e.verifications.Issue(ctx, internalflows.IssueRequest[VerificationMetadata]{
		UserID:   userID,
		Metadata: VerificationMetadata{Email: address},
		TTL:      o.ttl,
	})
	if err != nil {
		return IssuedVerification{}, err
	}
	if e.mailer == nil || o.skipSend {
		return issued, nil
	}

	cred := issued.Credential
	dctx, cancel := context.WithTimeout(ctx, e.config.Delivery.Timeout)
	defer cancel()
	if err := e.deliverVerification(dctx, issued); err != nil {
		e.metricInc(MetricVerificationDeliveryFailure)
		e.logger.WarnContext(ctx, "verification email not delivered", logging.UserID(cred.UserID), logging.CredentialID(cred.ID), logging.Error(err))
		err = errors.Join(ErrDeliveryFailed, err)
		e.emitAudit(ctx, auditEventVerificationDelivery, TypeVerificationChallenge, false, cred.UserID, cred.ID, ReasonNone, err, nil)
		return issued, err
	}
	e.emitAudit(ctx, auditEventVerificationDelivery, TypeVerificationChallenge, true, cred.UserID, cred.ID, ReasonNone, nil, nil)
	return issued, nil
}

// ValidateEmailVerification checks code without consuming it. userID and
// address must match the challenge when non-empty; the address comparison
// ignores case.
func (e *Engine) ValidateEmailVerification(ctx context.Context, code, userID, address string) (VerificationValidation, error) {
	if e == nil || e.verifications == nil {
		return VerificationValidation{}, ErrEngineNotReady
	}
	return e.verifications.Validate(ctx, code, internalflows.ValidateOptions{
		UserID: userID,
		Email:  strings.TrimSpace(address),
	})
}

// ConsumeEmailVerification marks code used. Mark the address verified only
// after it succeeds.
func (e *Engine) ConsumeEmailVerification(ctx context.Context, code string) (EmailVerification, error) {
	if e == nil || e.verifications == nil {
		return EmailVerification{}, ErrEngineNotReady
	}
	return e.verifications.Consume(ctx, code)
}

func (e *Engine) ListEmailVerifications(ctx context.Context, userID string) ([]EmailVerification, error) {
	if e == nil || e.verifications == nil {
		return nil, ErrEngineNotReady
	}
	return e.verifications.ListForSubject(ctx, userID)
}

func (e *Engine) deliverVerification(ctx context.Context, issued IssuedVerification) error {
	var displayName string
	user, err := e.userProvider.GetUserByID(ctx, issued.Credential.UserID)
	switch {
	case err == nil:
		displayName = user.DisplayName
	case errors.Is(err, ErrUserNotFound):
		// Greet without a name.
	default:
		return err
	}

	var validFor string
	if issued.Credential.ExpiresAt != nil {
		validFor = humanDuration(issued.Credential.ExpiresAt.Sub(issued.Credential.CreatedAt))
	}
	msg, err := email.VerificationMessage(ctx, email.VerificationData{
		To:          issued.Credential.Metadata.Email,
		DisplayName: displayName,
		Code:        issued.Secret,
		ValidFor:    validFor,
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, msg)
}
