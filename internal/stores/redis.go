package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const maxRetries = 4

// updateRecordLua swaps a record only if its encoded revision matches.
// KEYS[1] = record key
// ARGV[1] = expected revision (8 bytes, big-endian)
// ARGV[2] = encoded replacement
//
// Returns 1, or error string "not_found", "corrupt", "conflict".
var updateRecordLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
if string.byte(data, 1) ~= 1 or string.len(data) < 10 then
  return {err='corrupt'}
end
if string.sub(data, 3, 10) ~= ARGV[1] then
  return {err='conflict'}
end
redis.call('SET', KEYS[1], ARGV[2])
return 1
`)

// RedisStore keeps credentials without TTL; expiry is evaluated by callers.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gocred"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + ":c:" + id
}

func (s *RedisStore) hashKey(typ Type, secretHash string) string {
	return s.prefix + ":h:" + string(typ) + ":" + secretHash
}

func (s *RedisStore) subjectKey(typ Type, userID string) string {
	return s.prefix + ":u:" + string(typ) + ":" + userID
}

func (s *RedisStore) typeKey(typ Type) string {
	return s.prefix + ":t:" + string(typ)
}

func (s *RedisStore) Insert(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.Revision == 0 {
		rec.Revision = 1
	}

	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	recKey := s.recordKey(rec.ID)
	hashKey := s.hashKey(rec.Type, rec.SecretHash)

	for i := 0; i < maxRetries; i++ {
		err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, hashKey).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				return ErrDuplicateHash
			}
			exists, err = tx.Exists(ctx, recKey).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				return ErrDuplicateID
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, recKey, encoded, 0)
				pipe.Set(ctx, hashKey, rec.ID, 0)
				pipe.SAdd(ctx, s.subjectKey(rec.Type, rec.UserID), rec.ID)
				pipe.SAdd(ctx, s.typeKey(rec.Type), rec.ID)
				return nil
			})
			return err
		}, hashKey, recKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrDuplicateHash) || errors.Is(err, ErrDuplicateID) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: insert contention", ErrUnavailable)
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRecord(data)
}

// GetByHash resolves the guard key. A guard pointing at a record with a
// different digest means the index and records disagree.
func (s *RedisStore) GetByHash(ctx context.Context, typ Type, secretHash string) (*Record, error) {
	id, err := s.redis.Get(ctx, s.hashKey(typ, secretHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Type != typ || rec.SecretHash != secretHash {
		return nil, fmt.Errorf("%w: hash index points at %s", ErrDuplicateHash, id)
	}
	return rec, nil
}

func (s *RedisStore) ListBySubject(ctx context.Context, typ Type, userID string) ([]*Record, error) {
	return s.listSet(ctx, s.subjectKey(typ, userID), typ)
}

func (s *RedisStore) List(ctx context.Context, typ Type) ([]*Record, error) {
	return s.listSet(ctx, s.typeKey(typ), typ)
}

func (s *RedisStore) listSet(ctx context.Context, setKey string, typ Type) ([]*Record, error) {
	ids, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	out := make([]*Record, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		if rec.Type == typ {
			out = append(out, rec)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *RedisStore) Update(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	next := rec.Clone()
	next.Revision = rec.Revision + 1
	encoded, err := encodeRecord(next)
	if err != nil {
		return err
	}

	_, err = updateRecordLua.Run(ctx, s.redis,
		[]string{s.recordKey(rec.ID)},
		string(encodeRevision(rec.Revision)),
		string(encoded),
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return ErrNotFound
		case "conflict":
			return ErrConflict
		case "corrupt":
			return ErrCorruptRecord
		default:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	rec.Revision = next.Revision
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNotFound
	}
	recKey := s.recordKey(rec.ID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, recKey).Bytes()
			if err != nil {
				return err
			}
			current, err := decodeRecord(data)
			if err != nil {
				return err
			}
			if current.Revision != rec.Revision {
				return ErrConflict
			}

			hashKey := s.hashKey(current.Type, current.SecretHash)
			owner, err := tx.Get(ctx, hashKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, recKey)
				if owner == current.ID {
					pipe.Del(ctx, hashKey)
				}
				pipe.SRem(ctx, s.subjectKey(current.Type, current.UserID), current.ID)
				pipe.SRem(ctx, s.typeKey(current.Type), current.ID)
				return nil
			})
			return err
		}, recKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrNotFound
			case errors.Is(err, ErrConflict), errors.Is(err, ErrCorruptRecord):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	}

	return ErrConflict
}
