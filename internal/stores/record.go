package stores

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Type tags the credential family a record belongs to.
type Type string

const (
	TypeResetCode             Type = "reset-code"
	TypeVerificationChallenge Type = "verification-challenge"
	TypeLongLivedToken        Type = "long-lived-token"
)

func (t Type) Valid() bool {
	switch t {
	case TypeResetCode, TypeVerificationChallenge, TypeLongLivedToken:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound      = errors.New("credential not found")
	ErrDuplicateHash = errors.New("duplicate secret hash")
	ErrDuplicateID   = errors.New("duplicate credential id")
	ErrConflict      = errors.New("credential revision conflict")
	ErrUnavailable   = errors.New("credential store unavailable")
	ErrCorruptRecord = errors.New("corrupt credential record")
)

// Record is the persisted shape shared by all credential types. Metadata is
// the JSON encoding of the type specific payload.
type Record struct {
	ID         string
	Type       Type
	UserID     string
	SecretHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExpiresAt  *time.Time
	Retired    bool
	Metadata   []byte
	Revision   int64
}

// Clone returns a deep copy so callers never share mutable state with a
// backend.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExpiresAt != nil {
		at := *r.ExpiresAt
		out.ExpiresAt = &at
	}
	if r.Metadata != nil {
		out.Metadata = append([]byte(nil), r.Metadata...)
	}
	return &out
}

// CredentialStore is implemented by every backend.
//
// Update and Delete are conditional on Revision and return ErrConflict when
// the stored revision differs. A successful Update increments rec.Revision.
type CredentialStore interface {
	Insert(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	GetByHash(ctx context.Context, typ Type, secretHash string) (*Record, error)
	ListBySubject(ctx context.Context, typ Type, userID string) ([]*Record, error)
	List(ctx context.Context, typ Type) ([]*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, rec *Record) error
}

func validateRecord(rec *Record) error {
	if rec == nil || rec.ID == "" || rec.SecretHash == "" || rec.UserID == "" || !rec.Type.Valid() {
		return ErrCorruptRecord
	}
	return nil
}

func sortByCreated(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
