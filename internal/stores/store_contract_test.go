package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testRecord(id string, typ Type, userID, hash string, created time.Time) *Record {
	expires := created.Add(time.Hour)
	return &Record{
		ID:         id,
		Type:       typ,
		UserID:     userID,
		SecretHash: hash,
		CreatedAt:  created,
		UpdatedAt:  created,
		ExpiresAt:  &expires,
		Metadata:   []byte(`{"email":"a@example.com"}`),
	}
}

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) CredentialStore) {
	t.Run("insert and fetch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created := time.Now().UTC().Truncate(time.Millisecond)

		rec := testRecord("vc_1", TypeVerificationChallenge, "u1", "hash-1", created)
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if rec.Revision != 1 {
			t.Fatalf("expected revision 1 after insert, got %d", rec.Revision)
		}

		got, err := s.GetByID(ctx, "vc_1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.UserID != "u1" || got.SecretHash != "hash-1" || got.Type != TypeVerificationChallenge {
			t.Fatalf("unexpected record %+v", got)
		}
		if !got.CreatedAt.Equal(created) {
			t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(created.Add(time.Hour)) {
			t.Fatalf("ExpiresAt = %v", got.ExpiresAt)
		}
		if string(got.Metadata) == "" {
			t.Fatalf("metadata lost")
		}

		byHash, err := s.GetByHash(ctx, TypeVerificationChallenge, "hash-1")
		if err != nil {
			t.Fatalf("GetByHash failed: %v", err)
		}
		if byHash.ID != "vc_1" {
			t.Fatalf("GetByHash returned %s", byHash.ID)
		}
	})

	t.Run("missing records", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetByHash(ctx, TypeResetCode, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("digest is unique per type", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		if err := s.Insert(ctx, testRecord("rc_1", TypeResetCode, "u1", "same", now)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		err := s.Insert(ctx, testRecord("rc_2", TypeResetCode, "u2", "same", now))
		if !errors.Is(err, ErrDuplicateHash) {
			t.Fatalf("expected ErrDuplicateHash, got %v", err)
		}
		if err := s.Insert(ctx, testRecord("vc_2", TypeVerificationChallenge, "u2", "same", now)); err != nil {
			t.Fatalf("same digest under another type should be accepted: %v", err)
		}
	})

	t.Run("list by subject and type", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)

		for i, tc := range []struct {
			id, user, hash string
		}{
			{"llt_b", "u1", "h2"},
			{"llt_a", "u1", "h1"},
			{"llt_c", "u2", "h3"},
		} {
			rec := testRecord(tc.id, TypeLongLivedToken, tc.user, tc.hash, base.Add(time.Duration(2-i)*time.Second))
			if err := s.Insert(ctx, rec); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}

		mine, err := s.ListBySubject(ctx, TypeLongLivedToken, "u1")
		if err != nil {
			t.Fatalf("ListBySubject failed: %v", err)
		}
		if len(mine) != 2 || mine[0].ID != "llt_a" || mine[1].ID != "llt_b" {
			t.Fatalf("unexpected subject listing %v", ids(mine))
		}

		all, err := s.List(ctx, TypeLongLivedToken)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 || all[0].ID != "llt_c" {
			t.Fatalf("unexpected listing %v", ids(all))
		}

		none, err := s.ListBySubject(ctx, TypeResetCode, "u1")
		if err != nil {
			t.Fatalf("ListBySubject failed: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("expected no reset codes, got %v", ids(none))
		}
	})

	t.Run("update is conditional on revision", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := testRecord("rc_9", TypeResetCode, "u1", "h9", time.Now().UTC())
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		first, _ := s.GetByID(ctx, "rc_9")
		second, _ := s.GetByID(ctx, "rc_9")

		first.Retired = true
		if err := s.Update(ctx, first); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if first.Revision != 2 {
			t.Fatalf("expected revision 2, got %d", first.Revision)
		}

		second.Retired = true
		if err := s.Update(ctx, second); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict for stale writer, got %v", err)
		}

		got, _ := s.GetByID(ctx, "rc_9")
		if !got.Retired || got.Revision != 2 {
			t.Fatalf("unexpected stored record %+v", got)
		}

		ghost := testRecord("rc_ghost", TypeResetCode, "u1", "hg", time.Now().UTC())
		ghost.Revision = 1
		if err := s.Update(ctx, ghost); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for missing record, got %v", err)
		}
	})

	t.Run("concurrent updates have one winner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Insert(ctx, testRecord("rc_c", TypeResetCode, "u1", "hc", time.Now().UTC())); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		const workers = 8
		snapshots := make([]*Record, workers)
		for i := range snapshots {
			rec, err := s.GetByID(ctx, "rc_c")
			if err != nil {
				t.Fatalf("GetByID failed: %v", err)
			}
			snapshots[i] = rec
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(rec *Record) {
				defer wg.Done()
				rec.Retired = true
				if err := s.Update(ctx, rec); err == nil {
					wins.Add(1)
				}
			}(snapshots[i])
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Fatalf("expected exactly one winning update, got %d", wins.Load())
		}
	})

	t.Run("delete frees the digest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := testRecord("rc_d", TypeResetCode, "u1", "hd", time.Now().UTC())
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		stale := rec.Clone()
		stale.Revision = 42
		if err := s.Delete(ctx, stale); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		if err := s.Delete(ctx, rec); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.GetByID(ctx, "rc_d"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, rec); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		list, _ := s.ListBySubject(ctx, TypeResetCode, "u1")
		if len(list) != 0 {
			t.Fatalf("deleted record still listed: %v", ids(list))
		}

		again := testRecord("rc_e", TypeResetCode, "u1", "hd", time.Now().UTC())
		if err := s.Insert(ctx, again); err != nil {
			t.Fatalf("digest should be reusable after purge: %v", err)
		}
	})

	t.Run("infinite expiry round trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := testRecord("llt_inf", TypeLongLivedToken, "u1", "hi", time.Now().UTC())
		rec.ExpiresAt = nil
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		got, err := s.GetByID(ctx, "llt_inf")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.ExpiresAt != nil {
			t.Fatalf("expected nil expiry, got %v", got.ExpiresAt)
		}
	})
}

func ids(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
