package flows

import (
	"time"

	"github.com/MrEthical07/goCred/internal/expiry"
	"github.com/MrEthical07/goCred/internal/stores"
)

// ResetMetadata is empty; reset codes carry nothing beyond the record.
type ResetMetadata struct{}

// VerificationMetadata names the address a challenge was sent to.
type VerificationMetadata struct {
	Email string `json:"email"`
}

// TokenMetadata describes a long-lived token to its owner.
type TokenMetadata struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// Credential is a stored record without its digest.
type Credential[M any] struct {
	ID        string
	Type      stores.Type
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time
	Retired   bool
	Metadata  M
	Revision  int64
}

// Expired reports whether the credential's expiry lies before now.
func (c Credential[M]) Expired(now time.Time) bool {
	return expiry.Expired(c.ExpiresAt, now)
}

// Issued carries the plaintext secret. It is the only place the secret
// appears after generation.
type Issued[M any] struct {
	Credential Credential[M]
	Secret     string
}

// User is the directory entry attached to a successful validation.
type User struct {
	UserID      string
	Email       string
	DisplayName string
}

// Validation is the result of Validate. Failures carry a Reason and no
// error.
type Validation[M any] struct {
	Valid      bool
	Reason     Reason
	User       *User
	Credential *Credential[M]
}

// IssueRequest describes a credential to mint. TTL overrides the fixed
// lifetime of single-use credentials. ExpiresAt requests an absolute expiry
// for revocable credentials; nil asks for no expiry.
type IssueRequest[M any] struct {
	UserID    string
	Metadata  M
	TTL       time.Duration
	ExpiresAt *time.Time
}

// ValidateOptions narrows validation to a subject and, where the credential
// carries one, an email address. Empty fields are not checked.
type ValidateOptions struct {
	UserID string
	Email  string
}
