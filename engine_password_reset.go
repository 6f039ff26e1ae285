package goCred

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCred/email"
	internalflows "github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/logging"
)

// RequestPasswordReset issues a reset code for userID and, when a mailer is
// configured, emails a reset link to the user's address in the background.
//
// The return does not depend on whether the user exists or the email was
// sent; delivery problems are logged, audited, and counted.
func (e *Engine) RequestPasswordReset(ctx context.Context, userID string, opts ...IssueOption) (IssuedResetCode, error) {
	if e == nil || e.resets == nil {
		return IssuedResetCode{}, ErrEngineNotReady
	}
	o := collectIssueOptions(opts)

	issued, err := e.resets.Issue(ctx, internalflows.IssueRequest[ResetMetadata]{
		UserID: userID,
		TTL:    o.ttl,
	})
	if err != nil {
		return IssuedResetCode{}, err
	}

	if e.mailer != nil && !o.skipSend {
		e.deliverResetAsync(ctx, issued, o.redirect)
	}
	return issued, nil
}

// ValidatePasswordReset checks code without consuming it. An empty userID
// skips the owner check. A failed check is a result, not an error.
func (e *Engine) ValidatePasswordReset(ctx context.Context, code, userID string) (ResetValidation, error) {
	if e == nil || e.resets == nil {
		return ResetValidation{}, ErrEngineNotReady
	}
	return e.resets.Validate(ctx, code, internalflows.ValidateOptions{UserID: userID})
}

// ConsumePasswordReset marks code used. Callers validate first and change
// the password only after ConsumePasswordReset succeeds.
func (e *Engine) ConsumePasswordReset(ctx context.Context, code string) (PasswordResetCode, error) {
	if e == nil || e.resets == nil {
		return PasswordResetCode{}, ErrEngineNotReady
	}
	return e.resets.Consume(ctx, code)
}

// ListPasswordResets returns every reset code issued to userID, oldest first.
func (e *Engine) ListPasswordResets(ctx context.Context, userID string) ([]PasswordResetCode, error) {
	if e == nil || e.resets == nil {
		return nil, ErrEngineNotReady
	}
	return e.resets.ListForSubject(ctx, userID)
}

// PurgePasswordReset deletes a reset code by id.
func (e *Engine) PurgePasswordReset(ctx context.Context, id string) error {
	if e == nil || e.resets == nil {
		return ErrEngineNotReady
	}
	err := e.resets.Purge(ctx, id)
	e.emitAudit(ctx, auditEventPasswordResetPurge, TypeResetCode, err == nil, "", id, ReasonNone, err, nil)
	return err
}

func (e *Engine) deliverResetAsync(ctx context.Context, issued IssuedResetCode, redirect string) {
	e.deliveryMu.Lock()
	if e.closed {
		e.deliveryMu.Unlock()
		e.logger.WarnContext(ctx, "engine closed, reset email not sent", logging.CredentialID(issued.Credential.ID))
		return
	}
	e.deliveries.Add(1)
	e.deliveryMu.Unlock()

	// The request context may end as soon as the caller responds.
	detached := context.WithoutCancel(ctx)
	go func() {
		defer e.deliveries.Done()

		dctx, cancel := context.WithTimeout(detached, e.config.Delivery.Timeout)
		defer cancel()

		cred := issued.Credential
		err := e.deliverReset(dctx, issued, redirect)
		switch {
		case err == nil:
			e.emitAudit(dctx, auditEventPasswordResetDelivery, TypeResetCode, true, cred.UserID, cred.ID, ReasonNone, nil, nil)
		case errors.Is(err, ErrUserNotFound):
			e.logger.InfoContext(dctx, "reset requested for unknown user", logging.UserID(cred.UserID), logging.CredentialID(cred.ID))
			e.emitAudit(dctx, auditEventPasswordResetDelivery, TypeResetCode, false, cred.UserID, cred.ID, ReasonUserNotFound, err, nil)
		default:
			e.metricInc(MetricResetDeliveryFailure)
			e.logger.WarnContext(dctx, "reset email not delivered", logging.UserID(cred.UserID), logging.CredentialID(cred.ID), logging.Error(err))
			e.emitAudit(dctx, auditEventPasswordResetDelivery, TypeResetCode, false, cred.UserID, cred.ID, ReasonNone, errors.Join(ErrDeliveryFailed, err), nil)
		}
	}()
}

func (e *Engine) deliverReset(ctx context.Context, issued IssuedResetCode, redirect string) error {
	user, err := e.userProvider.GetUserByID(ctx, issued.Credential.UserID)
	if err != nil {
		return err
	}

	var validFor string
	if issued.Credential.ExpiresAt != nil {
		validFor = humanDuration(issued.Credential.ExpiresAt.Sub(issued.Credential.CreatedAt))
	}
	msg, err := email.ResetMessage(ctx, email.ResetData{
		To:          user.Email,
		DisplayName: user.DisplayName,
		ResetURL:    BuildResetURL(e.config.Delivery.ResetBaseURL, issued.Secret, redirect),
		ValidFor:    validFor,
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, msg)
}
