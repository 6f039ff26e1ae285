package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	goCred "github.com/MrEthical07/goCred"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"rotate"}},
		{name: "bad log level", args: []string{"-log-level", "loud", "migrate"}},
		{name: "revoke without id", args: []string{"revoke-token"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), tt.args, &stdout, &stderr); !errors.Is(err, errUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
		})
	}
}

func TestRunRequiresConnection(t *testing.T) {
	t.Setenv("GOCRED_REDIS_URL", "")
	t.Setenv("GOCRED_POSTGRES_URL", "")
	t.Setenv("GOCRED_MONGO_URL", "")

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"purge-expired"}, &stdout, &stderr); !errors.Is(err, errNoConnection) {
		t.Fatalf("expected errNoConnection, got %v", err)
	}
}

func TestRunAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("GOCRED_REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("GOCRED_POSTGRES_URL", "")
	t.Setenv("GOCRED_MONGO_URL", "")

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	seed, err := goCred.New().
		WithRedis(client).
		WithUserProvider(goCred.NewStaticUserProvider(goCred.UserRecord{UserID: "u1", Email: "u1@example.com"})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer seed.Close()
	issued, err := seed.CreateToken(ctx, "u1", "deploy", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(ctx, []string{"migrate"}, &stdout, &stderr); err != nil {
		t.Fatalf("migrate failed: %v (%s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "redis store is up to date") {
		t.Fatalf("unexpected migrate output %q", stdout.String())
	}

	stdout.Reset()
	if err := run(ctx, []string{"list-tokens", "-user", "u1"}, &stdout, &stderr); err != nil {
		t.Fatalf("list-tokens failed: %v", err)
	}
	if !strings.Contains(stdout.String(), issued.Credential.ID) || !strings.Contains(stdout.String(), "active") {
		t.Fatalf("expected active token in table, got:\n%s", stdout.String())
	}
	if strings.Contains(stdout.String(), issued.Secret) {
		t.Fatal("token secret must never be printed")
	}

	stdout.Reset()
	if err := run(ctx, []string{"revoke-token", "-id", issued.Credential.ID}, &stdout, &stderr); err != nil {
		t.Fatalf("revoke-token failed: %v", err)
	}

	stdout.Reset()
	if err := run(ctx, []string{"list-tokens", "-json"}, &stdout, &stderr); err != nil {
		t.Fatalf("list-tokens -json failed: %v", err)
	}
	var views []tokenView
	if err := json.Unmarshal(stdout.Bytes(), &views); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if len(views) != 1 || !views[0].Revoked || views[0].Title != "deploy" {
		t.Fatalf("unexpected token views %+v", views)
	}

	stdout.Reset()
	if err := run(ctx, []string{"security-report"}, &stdout, &stderr); err != nil {
		t.Fatalf("security-report failed: %v", err)
	}
	var report goCred.SecurityReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("invalid report json: %v", err)
	}
	if report.Backend != goCred.StorageRedis || !report.DistributedLimiter {
		t.Fatalf("unexpected report %+v", report)
	}

	stdout.Reset()
	if err := run(ctx, []string{"purge-expired"}, &stdout, &stderr); err != nil {
		t.Fatalf("purge-expired failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "1 tokens") {
		t.Fatalf("expected the revoked token to be purged, got %q", stdout.String())
	}

	stdout.Reset()
	if err := run(ctx, []string{"revoke-token", "-id", issued.Credential.ID}, &stdout, &stderr); !errors.Is(err, goCred.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}
