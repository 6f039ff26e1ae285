package flows

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goCred/internal/expiry"
	"github.com/MrEthical07/goCred/internal/limiters"
	"github.com/MrEthical07/goCred/internal/logging"
	"github.com/MrEthical07/goCred/internal/secret"
	"github.com/MrEthical07/goCred/internal/stores"
)

const (
	maxIssueAttempts = 3
	maxWriteRetries  = 4
)

// SecretKind selects the shape of generated secrets.
type SecretKind int

const (
	SecretCode SecretKind = iota
	SecretToken
)

// Retirement selects how a credential leaves the valid state.
type Retirement int

const (
	// SingleUse credentials retire through Consume.
	SingleUse Retirement = iota
	// Revocable credentials retire through Revoke and are reusable until then.
	Revocable
)

// Profile describes one credential family.
type Profile[M any] struct {
	Type         stores.Type
	IDPrefix     string
	Secret       SecretKind
	SecretLength int
	Retirement   Retirement
	Limit        limiters.Policy

	// Lifetime applies to SingleUse credentials, MaxExpiry to Revocable ones.
	Lifetime  expiry.Fixed
	MaxExpiry expiry.Ceiling

	// Scope narrows the issuance budget, e.g. per verified address.
	Scope func(M) string
	// MatchEmail compares the stored address with a supplied one.
	MatchEmail func(M, string) bool
	// Touch records a successful use in the metadata.
	Touch func(*M, time.Time)
}

// Op names the lifecycle step an Outcome reports.
type Op string

const (
	OpIssue    Op = "issue"
	OpValidate Op = "validate"
	OpConsume  Op = "consume"
	OpRevoke   Op = "revoke"
	OpTouch    Op = "touch"
	OpUpdate   Op = "update"
	OpPurge    Op = "purge"
)

// Outcome is handed to Deps.Observe after every mutating or validating step.
type Outcome struct {
	Op           Op
	Type         stores.Type
	CredentialID string
	UserID       string
	Success      bool
	Reason       Reason
	Err          error
	Latency      time.Duration
}

// Deps carries the collaborators a Lifecycle calls.
type Deps struct {
	Store     stores.CredentialStore
	Limiter   limiters.Limiter
	Generator *secret.Generator
	Hasher    secret.Hasher
	Now       func() time.Time
	NewID     func() string

	// LookupUser resolves the owner of a credential during validation and
	// returns ErrUserNotFound for unknown users. Nil skips the lookup.
	LookupUser func(ctx context.Context, userID string) (User, error)

	Logger  *slog.Logger
	Observe func(ctx context.Context, o Outcome)
}

// Lifecycle issues, validates, and retires credentials of one family.
type Lifecycle[M any] struct {
	profile Profile[M]
	deps    Deps

	// storeHistory is set when issuances are counted from stored records,
	// which PurgeExpired must then leave in place for the limit window.
	storeHistory bool
}

// NewLifecycle validates the profile and fills defaults in deps. A nil
// Limiter counts issuances from the credential store itself.
func NewLifecycle[M any](profile Profile[M], deps Deps) (*Lifecycle[M], error) {
	if !profile.Type.Valid() {
		return nil, invalidRequestf("unknown credential type %q", profile.Type)
	}
	if profile.IDPrefix == "" {
		return nil, invalidRequestf("id prefix is required")
	}
	if deps.Store == nil {
		return nil, invalidRequestf("credential store is required")
	}
	if deps.Hasher == nil {
		deps.Hasher = secret.SHA256{}
	}
	if deps.Generator == nil {
		deps.Generator = secret.NewGenerator()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if profile.SecretLength == 0 {
		if profile.Secret == SecretToken {
			profile.SecretLength = secret.DefaultTokenLength
		} else {
			profile.SecretLength = secret.DefaultCodeLength
		}
	}

	l := &Lifecycle[M]{profile: profile, deps: deps}
	if l.deps.Limiter == nil {
		l.deps.Limiter = limiters.NewHistoryLimiter(l.issuanceHistory)
		l.storeHistory = true
	}
	l.deps.Logger = l.deps.Logger.With("credential_type", string(profile.Type))
	return l, nil
}

// Type returns the credential family this lifecycle manages.
func (l *Lifecycle[M]) Type() stores.Type { return l.profile.Type }

// Issue mints a credential and returns its plaintext secret once.
func (l *Lifecycle[M]) Issue(ctx context.Context, req IssueRequest[M]) (Issued[M], error) {
	start := l.deps.Now()
	issued, err := l.issue(ctx, req, start)
	l.observe(ctx, Outcome{
		Op:           OpIssue,
		CredentialID: issued.Credential.ID,
		UserID:       req.UserID,
		Success:      err == nil,
		Err:          err,
		Latency:      l.deps.Now().Sub(start),
	})
	return issued, err
}

func (l *Lifecycle[M]) issue(ctx context.Context, req IssueRequest[M], now time.Time) (Issued[M], error) {
	if req.UserID == "" {
		return Issued[M]{}, invalidRequestf("user id is required")
	}

	subject := l.subject(req.UserID, req.Metadata)
	decision, err := l.deps.Limiter.CanIssue(ctx, subject, l.profile.Limit, now)
	if err != nil {
		return Issued[M]{}, internalf("issuance limiter: %v", err)
	}
	if !decision.Allowed {
		return Issued[M]{}, &RateLimitError{NextAttemptAllowedAt: decision.NextAttemptAllowedAt}
	}

	expiresAt, err := l.resolveExpiry(now, req)
	if err != nil {
		return Issued[M]{}, err
	}

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return Issued[M]{}, internalf("encode metadata: %v", err)
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		plaintext, err := l.generate()
		if err != nil {
			return Issued[M]{}, internalf("generate secret: %v", err)
		}

		rec := &stores.Record{
			ID:         l.profile.IDPrefix + l.deps.NewID(),
			Type:       l.profile.Type,
			UserID:     req.UserID,
			SecretHash: l.deps.Hasher.Hash(plaintext),
			CreatedAt:  now,
			UpdatedAt:  now,
			ExpiresAt:  expiresAt,
			Metadata:   metadata,
		}
		err = l.deps.Store.Insert(ctx, rec)
		if errors.Is(err, stores.ErrDuplicateHash) || errors.Is(err, stores.ErrDuplicateID) {
			l.deps.Logger.WarnContext(ctx, "credential collision, regenerating", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return Issued[M]{}, internalf("store credential: %v", err)
		}

		if err := l.deps.Limiter.Record(ctx, subject, rec.ID, now, l.profile.Limit); err != nil {
			l.deps.Logger.WarnContext(ctx, "issuance not recorded by limiter", "credential_id", rec.ID, "error", err)
		}

		cred, err := l.decode(rec)
		if err != nil {
			return Issued[M]{}, err
		}
		return Issued[M]{Credential: cred, Secret: plaintext}, nil
	}
	return Issued[M]{}, internalf("could not generate a unique secret after %d attempts", maxIssueAttempts)
}

func (l *Lifecycle[M]) resolveExpiry(now time.Time, req IssueRequest[M]) (*time.Time, error) {
	if l.profile.Retirement == SingleUse {
		if req.ExpiresAt != nil {
			return nil, invalidRequestf("absolute expiry is not supported for %s", l.profile.Type)
		}
		at, err := l.profile.Lifetime.ExpiresAt(now, req.TTL)
		if err != nil {
			return nil, errors.Join(ErrInvalidRequest, err)
		}
		return &at, nil
	}

	requested := req.ExpiresAt
	if requested == nil && req.TTL != 0 {
		if req.TTL < 0 {
			return nil, invalidRequestf("ttl must be positive")
		}
		at := now.Add(req.TTL)
		requested = &at
	}
	at, err := l.profile.MaxExpiry.Resolve(now, requested)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	return at, nil
}

func (l *Lifecycle[M]) generate() (string, error) {
	if l.profile.Secret == SecretToken {
		return l.deps.Generator.Token(l.profile.SecretLength)
	}
	return l.deps.Generator.Code(l.profile.SecretLength)
}

// Validate checks a presented secret. Failures are reported through the
// returned Validation; an error means the check itself could not run.
//
// Successful validation of a revocable credential records its last use. A
// failure to do so is logged and does not fail validation.
func (l *Lifecycle[M]) Validate(ctx context.Context, plaintext string, opts ValidateOptions) (Validation[M], error) {
	start := l.deps.Now()
	result, err := l.validate(ctx, plaintext, opts, start)
	o := Outcome{
		Op:      OpValidate,
		UserID:  opts.UserID,
		Success: err == nil && result.Valid,
		Reason:  result.Reason,
		Err:     err,
		Latency: l.deps.Now().Sub(start),
	}
	if result.Credential != nil {
		o.CredentialID = result.Credential.ID
		o.UserID = result.Credential.UserID
	}
	l.observe(ctx, o)
	return result, err
}

func (l *Lifecycle[M]) validate(ctx context.Context, plaintext string, opts ValidateOptions, now time.Time) (Validation[M], error) {
	if plaintext == "" {
		return Validation[M]{Reason: ReasonNotFound}, nil
	}

	rec, err := l.deps.Store.GetByHash(ctx, l.profile.Type, l.deps.Hasher.Hash(plaintext))
	switch {
	case errors.Is(err, stores.ErrNotFound):
		return Validation[M]{Reason: ReasonNotFound}, nil
	case err != nil:
		return Validation[M]{}, internalf("lookup credential: %v", err)
	}

	cred, err := l.decode(rec)
	if err != nil {
		return Validation[M]{}, err
	}
	fail := func(r Reason) (Validation[M], error) {
		return Validation[M]{Reason: r, Credential: &cred}, nil
	}

	// The record belongs to someone else on a mismatch; none of it is returned.
	if opts.UserID != "" && cred.UserID != opts.UserID {
		return Validation[M]{Reason: ReasonSubjectMismatch}, nil
	}
	if opts.Email != "" && l.profile.MatchEmail != nil && !l.profile.MatchEmail(cred.Metadata, opts.Email) {
		return Validation[M]{Reason: ReasonEmailMismatch}, nil
	}
	if cred.Retired {
		if l.profile.Retirement == Revocable {
			return fail(ReasonRevoked)
		}
		return fail(ReasonUsed)
	}
	if cred.Expired(now) {
		return fail(ReasonExpired)
	}

	var user *User
	if l.deps.LookupUser != nil {
		u, err := l.deps.LookupUser(ctx, cred.UserID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			return fail(ReasonUserNotFound)
		case err != nil:
			return Validation[M]{}, internalf("lookup user: %v", err)
		}
		user = &u
	}

	if l.profile.Retirement == Revocable && l.profile.Touch != nil {
		touched, err := l.RecordLastUsed(ctx, cred.ID)
		if err != nil {
			l.deps.Logger.WarnContext(ctx, "last use not recorded", "credential_id", cred.ID, "error", err)
		} else {
			cred = touched
		}
	}

	return Validation[M]{Valid: true, User: user, Credential: &cred}, nil
}

// Consume retires a single-use credential. Exactly one of any number of
// concurrent calls for the same secret succeeds; the rest observe it used.
// Expiry is not re-checked here; callers validate first.
func (l *Lifecycle[M]) Consume(ctx context.Context, plaintext string) (Credential[M], error) {
	start := l.deps.Now()
	cred, err := l.consume(ctx, plaintext, start)
	o := Outcome{
		Op:           OpConsume,
		CredentialID: cred.ID,
		UserID:       cred.UserID,
		Success:      err == nil,
		Err:          err,
		Latency:      l.deps.Now().Sub(start),
	}
	var invalid *InvalidCredentialError
	if errors.As(err, &invalid) {
		o.Reason = invalid.Reason
	}
	l.observe(ctx, o)
	return cred, err
}

func (l *Lifecycle[M]) consume(ctx context.Context, plaintext string, now time.Time) (Credential[M], error) {
	if l.profile.Retirement != SingleUse {
		return Credential[M]{}, invalidRequestf("%s cannot be consumed", l.profile.Type)
	}
	if plaintext == "" {
		return Credential[M]{}, ErrNotFound
	}

	rec, err := l.deps.Store.GetByHash(ctx, l.profile.Type, l.deps.Hasher.Hash(plaintext))
	if errors.Is(err, stores.ErrNotFound) {
		return Credential[M]{}, ErrNotFound
	}
	if err != nil {
		return Credential[M]{}, internalf("lookup credential: %v", err)
	}

	return l.retire(ctx, rec, now, func(rec *stores.Record) error {
		return &InvalidCredentialError{Reason: ReasonUsed}
	})
}

// Revoke retires a revocable credential by id. Revoking a credential that is
// already retired succeeds without writing.
func (l *Lifecycle[M]) Revoke(ctx context.Context, id string) (Credential[M], error) {
	start := l.deps.Now()
	cred, err := l.revoke(ctx, id, start)
	l.observe(ctx, Outcome{
		Op:           OpRevoke,
		CredentialID: id,
		UserID:       cred.UserID,
		Success:      err == nil,
		Err:          err,
		Latency:      l.deps.Now().Sub(start),
	})
	return cred, err
}

func (l *Lifecycle[M]) revoke(ctx context.Context, id string, now time.Time) (Credential[M], error) {
	if l.profile.Retirement != Revocable {
		return Credential[M]{}, invalidRequestf("%s cannot be revoked", l.profile.Type)
	}
	rec, err := l.load(ctx, id)
	if err != nil {
		return Credential[M]{}, err
	}
	return l.retire(ctx, rec, now, nil)
}

// retire sets Retired with a revision-conditional write, re-reading on
// conflict. onRetired decides what happens when the record is already
// retired; nil means succeed with the stored state.
func (l *Lifecycle[M]) retire(ctx context.Context, rec *stores.Record, now time.Time, onRetired func(*stores.Record) error) (Credential[M], error) {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		if rec.Retired {
			if onRetired != nil {
				cred, err := l.decode(rec)
				if err != nil {
					return Credential[M]{}, err
				}
				return cred, onRetired(rec)
			}
			return l.decode(rec)
		}

		next := rec.Clone()
		next.Retired = true
		next.UpdatedAt = now
		err := l.deps.Store.Update(ctx, next)
		if err == nil {
			return l.decode(next)
		}
		if errors.Is(err, stores.ErrNotFound) {
			return Credential[M]{}, ErrNotFound
		}
		if !errors.Is(err, stores.ErrConflict) {
			return Credential[M]{}, internalf("retire credential: %v", err)
		}

		rec, err = l.deps.Store.GetByID(ctx, rec.ID)
		if errors.Is(err, stores.ErrNotFound) {
			return Credential[M]{}, ErrNotFound
		}
		if err != nil {
			return Credential[M]{}, internalf("reload credential: %v", err)
		}
	}
	return Credential[M]{}, internalf("retire credential: too much contention")
}

// RecordLastUsed stamps the current time into a revocable credential's
// metadata.
func (l *Lifecycle[M]) RecordLastUsed(ctx context.Context, id string) (Credential[M], error) {
	if l.profile.Touch == nil {
		return Credential[M]{}, invalidRequestf("%s does not track last use", l.profile.Type)
	}
	now := l.deps.Now()
	cred, err := l.amend(ctx, id, false, func(m *M) { l.profile.Touch(m, now) })
	l.observe(ctx, Outcome{
		Op:           OpTouch,
		CredentialID: id,
		UserID:       cred.UserID,
		Success:      err == nil,
		Err:          err,
		Latency:      l.deps.Now().Sub(now),
	})
	return cred, err
}

// Update applies fn to the metadata of the credential with the given id and
// persists the result. fn may run more than once under contention.
func (l *Lifecycle[M]) Update(ctx context.Context, id string, fn func(*M)) (Credential[M], error) {
	if fn == nil {
		return Credential[M]{}, invalidRequestf("update function is required")
	}
	start := l.deps.Now()
	cred, err := l.amend(ctx, id, true, fn)
	l.observe(ctx, Outcome{
		Op:           OpUpdate,
		CredentialID: id,
		UserID:       cred.UserID,
		Success:      err == nil,
		Err:          err,
		Latency:      l.deps.Now().Sub(start),
	})
	return cred, err
}

func (l *Lifecycle[M]) amend(ctx context.Context, id string, bumpUpdated bool, fn func(*M)) (Credential[M], error) {
	rec, err := l.load(ctx, id)
	if err != nil {
		return Credential[M]{}, err
	}

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		cred, err := l.decode(rec)
		if err != nil {
			return Credential[M]{}, err
		}
		fn(&cred.Metadata)
		metadata, err := json.Marshal(cred.Metadata)
		if err != nil {
			return Credential[M]{}, internalf("encode metadata: %v", err)
		}

		next := rec.Clone()
		next.Metadata = metadata
		if bumpUpdated {
			next.UpdatedAt = l.deps.Now()
		}
		err = l.deps.Store.Update(ctx, next)
		if err == nil {
			return l.decode(next)
		}
		if errors.Is(err, stores.ErrNotFound) {
			return Credential[M]{}, ErrNotFound
		}
		if !errors.Is(err, stores.ErrConflict) {
			return Credential[M]{}, internalf("update credential: %v", err)
		}

		if rec, err = l.load(ctx, id); err != nil {
			return Credential[M]{}, err
		}
	}
	return Credential[M]{}, internalf("update credential: too much contention")
}

// Get returns the credential with the given id.
func (l *Lifecycle[M]) Get(ctx context.Context, id string) (Credential[M], error) {
	rec, err := l.load(ctx, id)
	if err != nil {
		return Credential[M]{}, err
	}
	return l.decode(rec)
}

// ListForSubject returns a user's credentials, oldest first.
func (l *Lifecycle[M]) ListForSubject(ctx context.Context, userID string) ([]Credential[M], error) {
	if userID == "" {
		return nil, invalidRequestf("user id is required")
	}
	records, err := l.deps.Store.ListBySubject(ctx, l.profile.Type, userID)
	if err != nil {
		return nil, internalf("list credentials: %v", err)
	}
	return l.decodeAll(records)
}

// ListAll returns every credential of this family, oldest first.
func (l *Lifecycle[M]) ListAll(ctx context.Context) ([]Credential[M], error) {
	records, err := l.deps.Store.List(ctx, l.profile.Type)
	if err != nil {
		return nil, internalf("list credentials: %v", err)
	}
	return l.decodeAll(records)
}

// Purge deletes the credential with the given id.
func (l *Lifecycle[M]) Purge(ctx context.Context, id string) error {
	rec, err := l.load(ctx, id)
	if err != nil {
		return err
	}
	return l.delete(ctx, rec)
}

// PurgeBySecret deletes the credential a plaintext secret belongs to.
func (l *Lifecycle[M]) PurgeBySecret(ctx context.Context, plaintext string) error {
	if plaintext == "" {
		return ErrNotFound
	}
	rec, err := l.deps.Store.GetByHash(ctx, l.profile.Type, l.deps.Hasher.Hash(plaintext))
	if errors.Is(err, stores.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return internalf("lookup credential: %v", err)
	}
	return l.delete(ctx, rec)
}

// PurgeExpired deletes expired credentials, and retired ones when
// includeRetired is set. Records that change concurrently are skipped.
//
// When the limiter counts issuances from the store, records created inside
// the limit window are kept so purging never restores a spent budget.
func (l *Lifecycle[M]) PurgeExpired(ctx context.Context, includeRetired bool) (int, error) {
	records, err := l.deps.Store.List(ctx, l.profile.Type)
	if err != nil {
		return 0, internalf("list credentials: %v", err)
	}

	now := l.deps.Now()
	var countedAfter time.Time
	if l.storeHistory && l.profile.Limit.MaxAttempts > 0 {
		countedAfter = now.Add(-l.profile.Limit.Window)
	}
	purged := 0
	for _, rec := range records {
		if !expiry.Expired(rec.ExpiresAt, now) && !(includeRetired && rec.Retired) {
			continue
		}
		if !countedAfter.IsZero() && rec.CreatedAt.After(countedAfter) {
			continue
		}
		err := l.deps.Store.Delete(ctx, rec)
		switch {
		case err == nil:
			purged++
		case errors.Is(err, stores.ErrConflict), errors.Is(err, stores.ErrNotFound):
			l.deps.Logger.DebugContext(ctx, "purge skipped changed credential", "credential_id", rec.ID)
		default:
			return purged, internalf("purge credential: %v", err)
		}
	}
	l.observe(ctx, Outcome{Op: OpPurge, Success: true, Latency: l.deps.Now().Sub(now)})
	return purged, nil
}

// MaxAllowedExpiry reports the latest expiry Issue would accept now.
func (l *Lifecycle[M]) MaxAllowedExpiry() (time.Time, bool) {
	return l.profile.MaxExpiry.MaxAllowed(l.deps.Now())
}

func (l *Lifecycle[M]) delete(ctx context.Context, rec *stores.Record) error {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		err := l.deps.Store.Delete(ctx, rec)
		if err == nil || errors.Is(err, stores.ErrNotFound) {
			return nil
		}
		if !errors.Is(err, stores.ErrConflict) {
			return internalf("delete credential: %v", err)
		}
		rec, err = l.deps.Store.GetByID(ctx, rec.ID)
		if errors.Is(err, stores.ErrNotFound) {
			return nil
		}
		if err != nil {
			return internalf("reload credential: %v", err)
		}
	}
	return internalf("delete credential: too much contention")
}

func (l *Lifecycle[M]) load(ctx context.Context, id string) (*stores.Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rec, err := l.deps.Store.GetByID(ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalf("load credential: %v", err)
	}
	if rec.Type != l.profile.Type {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (l *Lifecycle[M]) decode(rec *stores.Record) (Credential[M], error) {
	cred := Credential[M]{
		ID:        rec.ID,
		Type:      rec.Type,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Retired:   rec.Retired,
		Revision:  rec.Revision,
	}
	if rec.ExpiresAt != nil {
		at := *rec.ExpiresAt
		cred.ExpiresAt = &at
	}
	if len(rec.Metadata) > 0 {
		if err := json.Unmarshal(rec.Metadata, &cred.Metadata); err != nil {
			return Credential[M]{}, internalf("decode metadata of %s: %v", rec.ID, err)
		}
	}
	return cred, nil
}

func (l *Lifecycle[M]) decodeAll(records []*stores.Record) ([]Credential[M], error) {
	out := make([]Credential[M], 0, len(records))
	for _, rec := range records {
		cred, err := l.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, nil
}

func (l *Lifecycle[M]) subject(userID string, metadata M) limiters.Subject {
	s := limiters.Subject{Kind: string(l.profile.Type), UserID: userID}
	if l.profile.Scope != nil {
		s.Scope = l.profile.Scope(metadata)
	}
	return s
}

// issuanceHistory feeds the store-backed limiter with creation times of the
// subject's credentials in the same scope.
func (l *Lifecycle[M]) issuanceHistory(ctx context.Context, subject limiters.Subject) ([]time.Time, error) {
	records, err := l.deps.Store.ListBySubject(ctx, l.profile.Type, subject.UserID)
	if err != nil {
		return nil, err
	}
	history := make([]time.Time, 0, len(records))
	for _, rec := range records {
		if l.profile.Scope != nil {
			cred, err := l.decode(rec)
			if err != nil {
				return nil, err
			}
			if l.profile.Scope(cred.Metadata) != subject.Scope {
				continue
			}
		}
		history = append(history, rec.CreatedAt)
	}
	return history, nil
}

func (l *Lifecycle[M]) observe(ctx context.Context, o Outcome) {
	if l.deps.Observe == nil {
		return
	}
	o.Type = l.profile.Type
	l.deps.Observe(ctx, o)
}
