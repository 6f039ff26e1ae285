package goCred

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/goCred/email"
)

func TestBuilderRequiresUserProvider(t *testing.T) {
	if _, err := New().Build(); err == nil || !strings.Contains(err.Error(), "user provider") {
		t.Fatalf("expected user provider error, got %v", err)
	}
}

func TestBuilderRejectsReuse(t *testing.T) {
	b := New().WithUserProvider(testUsers())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderMailerNeedsResetBaseURL(t *testing.T) {
	_, err := New().
		WithUserProvider(testUsers()).
		WithMailer(&email.RecordingSender{}).
		Build()
	if err == nil || !strings.Contains(err.Error(), "ResetBaseURL") {
		t.Fatalf("expected ResetBaseURL error, got %v", err)
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PasswordReset.TTL = 0
	if _, err := New().WithConfig(cfg).WithUserProvider(testUsers()).Build(); err == nil {
		t.Fatal("expected invalid config to fail Build")
	}
}

func TestBuilderBackendSelection(t *testing.T) {
	_, rdb := newTestRedis(t)

	tests := []struct {
		name      string
		backend   StorageBackend
		withRedis bool
		want      StorageBackend
		wantErr   bool
	}{
		{name: "auto without clients", backend: StorageAuto, want: StorageMemory},
		{name: "auto with redis", backend: StorageAuto, withRedis: true, want: StorageRedis},
		{name: "memory with redis", backend: StorageMemory, withRedis: true, want: StorageMemory},
		{name: "redis without client", backend: StorageRedis, wantErr: true},
		{name: "postgres without pool", backend: StoragePostgres, wantErr: true},
		{name: "mongo without database", backend: StorageMongo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = tt.backend
			b := New().WithConfig(cfg).WithUserProvider(testUsers())
			if tt.withRedis {
				b.WithRedis(rdb)
			}
			engine, err := b.Build()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected Build to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			defer engine.Close()
			if engine.Backend() != tt.want {
				t.Fatalf("expected backend %q, got %q", tt.want, engine.Backend())
			}
			if err := engine.Migrate(context.Background()); err != nil {
				t.Fatalf("Migrate failed: %v", err)
			}
		})
	}
}

func TestRedisBackendNeverStoresPlaintext(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	engine := newTestEngine(t, func(b *Builder) { b.WithRedis(rdb) })

	reset, err := engine.RequestPasswordReset(ctx, "u1")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	token, err := engine.CreateToken(ctx, "u1", "ci", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if v, err := engine.ValidateToken(ctx, token.Secret); err != nil || !v.Valid {
		t.Fatalf("expected token to validate against redis, valid=%v err=%v", v.Valid, err)
	}

	for _, key := range mr.Keys() {
		if strings.Contains(key, reset.Secret) || strings.Contains(key, token.Secret) {
			t.Fatalf("plaintext secret found in key %q", key)
		}
		if mr.Type(key) != "string" {
			continue
		}
		value, err := mr.Get(key)
		if err != nil {
			t.Fatalf("Get %q failed: %v", key, err)
		}
		if strings.Contains(value, reset.Secret) || strings.Contains(value, token.Secret) {
			t.Fatalf("plaintext secret found in value of %q", key)
		}
	}
}

func TestStaticUserProvider(t *testing.T) {
	ctx := context.Background()
	users := NewStaticUserProvider()
	users.Put(UserRecord{UserID: "u9", Email: "nine@example.com"})

	if u, err := users.GetUserByID(ctx, "u9"); err != nil || u.Email != "nine@example.com" {
		t.Fatalf("unexpected lookup result %+v, %v", u, err)
	}
	users.Remove("u9")
	if _, err := users.GetUserByID(ctx, "u9"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
