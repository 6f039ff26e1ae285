package stores

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func TestPostgresStoreContract(t *testing.T) {
	url := os.Getenv("GOCRED_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("GOCRED_TEST_POSTGRES_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New failed: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := MigratePostgres(ctx, pool, nil); err != nil {
		t.Fatalf("MigratePostgres failed: %v", err)
	}

	runStoreContract(t, func(t *testing.T) CredentialStore {
		if _, err := pool.Exec(context.Background(), `TRUNCATE credentials`); err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		return NewPostgresStore(pool)
	})
}

func TestMongoStoreContract(t *testing.T) {
	url := os.Getenv("GOCRED_TEST_MONGO_URL")
	if url == "" {
		t.Skip("GOCRED_TEST_MONGO_URL not set")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(url))
	if err != nil {
		t.Fatalf("mongo.Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("gocred_test_" + uuid.NewString()[:8])
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	runStoreContract(t, func(t *testing.T) CredentialStore {
		s := NewMongoStore(db, "credentials_"+uuid.NewString()[:8])
		if err := s.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("EnsureIndexes failed: %v", err)
		}
		return s
	})
}
