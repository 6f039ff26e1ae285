package stores

import (
	"context"
	"sync"
)

type hashKey struct {
	typ  Type
	hash string
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	hashes  map[hashKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		hashes:  make(map[hashKey]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return ErrDuplicateID
	}
	hk := hashKey{typ: rec.Type, hash: rec.SecretHash}
	if _, ok := s.hashes[hk]; ok {
		return ErrDuplicateHash
	}

	if rec.Revision == 0 {
		rec.Revision = 1
	}
	s.records[rec.ID] = rec.Clone()
	s.hashes[hk] = rec.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// GetByHash scans rather than trusting the uniqueness index so that an
// inconsistent map is reported instead of hidden.
func (s *MemoryStore) GetByHash(_ context.Context, typ Type, secretHash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *Record
	for _, rec := range s.records {
		if rec.Type != typ || rec.SecretHash != secretHash {
			continue
		}
		if found != nil {
			return nil, ErrDuplicateHash
		}
		found = rec
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found.Clone(), nil
}

func (s *MemoryStore) ListBySubject(_ context.Context, typ Type, userID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0)
	for _, rec := range s.records {
		if rec.Type == typ && rec.UserID == userID {
			out = append(out, rec.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, typ Type) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0)
	for _, rec := range s.records {
		if rec.Type == typ {
			out = append(out, rec.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Revision != rec.Revision {
		return ErrConflict
	}

	next := rec.Clone()
	next.Type = current.Type
	next.SecretHash = current.SecretHash
	next.Revision = current.Revision + 1
	s.records[rec.ID] = next
	rec.Revision = next.Revision
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, rec *Record) error {
	if rec == nil {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Revision != rec.Revision {
		return ErrConflict
	}

	delete(s.records, rec.ID)
	hk := hashKey{typ: current.Type, hash: current.SecretHash}
	if s.hashes[hk] == rec.ID {
		delete(s.hashes, hk)
	}
	return nil
}
