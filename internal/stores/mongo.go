package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const secretHashIndexName = "type_secret_hash_unique"

type mongoRecord struct {
	ID         string     `bson:"_id"`
	Type       string     `bson:"type"`
	UserID     string     `bson:"user_id"`
	SecretHash string     `bson:"secret_hash"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
	ExpiresAt  *time.Time `bson:"expires_at,omitempty"`
	Retired    bool       `bson:"retired"`
	Metadata   string     `bson:"metadata"`
	Revision   int64      `bson:"rev"`
}

// MongoStore keeps one document per credential. Timestamps round to
// milliseconds on the way through BSON.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = "credentials"
	}
	return &MongoStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the unique digest index and the subject listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "secret_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(secretHashIndexName),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("type_user_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if rec.Revision == 0 {
		rec.Revision = 1
	}

	_, err := s.coll.InsertOne(ctx, toMongoRecord(rec))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), secretHashIndexName) {
				return ErrDuplicateHash
			}
			return ErrDuplicateID
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*Record, error) {
	var doc mongoRecord
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fromMongoRecord(&doc), nil
}

func (s *MongoStore) GetByHash(ctx context.Context, typ Type, secretHash string) (*Record, error) {
	records, err := s.find(ctx,
		bson.D{{Key: "type", Value: string(typ)}, {Key: "secret_hash", Value: secretHash}},
		options.Find().SetLimit(2),
	)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return records[0], nil
	default:
		return nil, ErrDuplicateHash
	}
}

func (s *MongoStore) ListBySubject(ctx context.Context, typ Type, userID string) ([]*Record, error) {
	return s.find(ctx,
		bson.D{{Key: "type", Value: string(typ)}, {Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
}

func (s *MongoStore) List(ctx context.Context, typ Type) ([]*Record, error) {
	return s.find(ctx,
		bson.D{{Key: "type", Value: string(typ)}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
}

func (s *MongoStore) Update(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	set := bson.D{
		{Key: "updated_at", Value: rec.UpdatedAt},
		{Key: "retired", Value: rec.Retired},
		{Key: "metadata", Value: string(metadataOrEmpty(rec.Metadata))},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "rev", Value: 1}}},
	}
	if rec.ExpiresAt != nil {
		set = append(set, bson.E{Key: "expires_at", Value: *rec.ExpiresAt})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "expires_at", Value: ""}}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: rec.ID}, {Key: "rev", Value: rec.Revision}},
		update,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return s.missOrConflict(ctx, rec.ID)
	}

	rec.Revision++
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: rec.ID}, {Key: "rev", Value: rec.Revision}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return s.missOrConflict(ctx, rec.ID)
	}
	return nil
}

func (s *MongoStore) missOrConflict(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *MongoStore) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]*Record, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]*Record, 0, len(docs))
	for i := range docs {
		out = append(out, fromMongoRecord(&docs[i]))
	}
	return out, nil
}

func toMongoRecord(rec *Record) mongoRecord {
	return mongoRecord{
		ID:         rec.ID,
		Type:       string(rec.Type),
		UserID:     rec.UserID,
		SecretHash: rec.SecretHash,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		ExpiresAt:  rec.ExpiresAt,
		Retired:    rec.Retired,
		Metadata:   string(metadataOrEmpty(rec.Metadata)),
		Revision:   rec.Revision,
	}
}

func fromMongoRecord(doc *mongoRecord) *Record {
	rec := &Record{
		ID:         doc.ID,
		Type:       Type(doc.Type),
		UserID:     doc.UserID,
		SecretHash: doc.SecretHash,
		CreatedAt:  doc.CreatedAt.UTC(),
		UpdatedAt:  doc.UpdatedAt.UTC(),
		Retired:    doc.Retired,
		Metadata:   []byte(doc.Metadata),
		Revision:   doc.Revision,
	}
	if doc.ExpiresAt != nil {
		at := doc.ExpiresAt.UTC()
		rec.ExpiresAt = &at
	}
	return rec
}
