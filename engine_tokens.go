package goCred

import (
	"context"
	"fmt"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goCred/internal/flows"
)

const maxTokenTitleLength = 200

// CreateToken issues a long-lived API token. A nil expiresAt asks for a
// token that never expires, which is refused when Tokens.MaxExpiry is set.
// The plaintext is in IssuedToken.Secret and is not retrievable later.
func (e *Engine) CreateToken(ctx context.Context, userID, title, description string, expiresAt *time.Time) (IssuedToken, error) {
	if e == nil || e.tokens == nil {
		return IssuedToken{}, ErrEngineNotReady
	}
	title = strings.TrimSpace(title)
	if err := validateTokenTitle(title); err != nil {
		return IssuedToken{}, err
	}
	return e.tokens.Issue(ctx, internalflows.IssueRequest[TokenMetadata]{
		UserID: userID,
		Metadata: TokenMetadata{
			Title:       title,
			Description: strings.TrimSpace(description),
		},
		ExpiresAt: expiresAt,
	})
}

// ValidateToken checks a presented token and records its last use. A failed
// check is a result, not an error.
func (e *Engine) ValidateToken(ctx context.Context, token string) (TokenValidation, error) {
	if e == nil || e.tokens == nil {
		return TokenValidation{}, ErrEngineNotReady
	}
	return e.tokens.Validate(ctx, token, internalflows.ValidateOptions{})
}

// RevokeToken retires a token by id. Revoking twice succeeds.
func (e *Engine) RevokeToken(ctx context.Context, id string) (Token, error) {
	if e == nil || e.tokens == nil {
		return Token{}, ErrEngineNotReady
	}
	return e.tokens.Revoke(ctx, id)
}

// UpdateToken changes the title or description of a token.
func (e *Engine) UpdateToken(ctx context.Context, id string, update TokenUpdate) (Token, error) {
	if e == nil || e.tokens == nil {
		return Token{}, ErrEngineNotReady
	}
	if update.Title == nil && update.Description == nil {
		return Token{}, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}
	var title, description string
	if update.Title != nil {
		title = strings.TrimSpace(*update.Title)
		if err := validateTokenTitle(title); err != nil {
			return Token{}, err
		}
	}
	if update.Description != nil {
		description = strings.TrimSpace(*update.Description)
	}

	return e.tokens.Update(ctx, id, func(m *TokenMetadata) {
		if update.Title != nil {
			m.Title = title
		}
		if update.Description != nil {
			m.Description = description
		}
	})
}

func (e *Engine) GetToken(ctx context.Context, id string) (Token, error) {
	if e == nil || e.tokens == nil {
		return Token{}, ErrEngineNotReady
	}
	return e.tokens.Get(ctx, id)
}

// ListTokens returns a user's tokens, revoked ones included, oldest first.
func (e *Engine) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.ListForSubject(ctx, userID)
}

// ListAllTokens returns every token in the store. It is meant for
// administrative tooling.
func (e *Engine) ListAllTokens(ctx context.Context) ([]Token, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.ListAll(ctx)
}

// DeleteToken removes a token record. Prefer RevokeToken, which keeps the
// record for the owner's history.
func (e *Engine) DeleteToken(ctx context.Context, id string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	tok, err := e.tokens.Get(ctx, id)
	if err == nil {
		err = e.tokens.Purge(ctx, id)
	}
	if err == nil {
		e.metricInc(MetricTokenDeleted)
	}
	e.emitAudit(ctx, auditEventTokenDelete, TypeLongLivedToken, err == nil, tok.UserID, id, ReasonNone, err, nil)
	return err
}

// MaxTokenExpiry reports the latest expiry CreateToken accepts right now.
// ok is false when tokens may live forever.
func (e *Engine) MaxTokenExpiry() (at time.Time, ok bool) {
	if e == nil || e.tokens == nil {
		return time.Time{}, false
	}
	return e.tokens.MaxAllowedExpiry()
}

func validateTokenTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: token title is required", ErrInvalidRequest)
	}
	if len(title) > maxTokenTitleLength {
		return fmt.Errorf("%w: token title exceeds %d bytes", ErrInvalidRequest, maxTokenTitleLength)
	}
	return nil
}
