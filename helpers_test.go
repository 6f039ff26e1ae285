package goCred

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testEpoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testUsers() *StaticUserProvider {
	return NewStaticUserProvider(
		UserRecord{UserID: "u1", Email: "alice@example.com", DisplayName: "Alice"},
		UserRecord{UserID: "u2", Email: "bob@example.com", DisplayName: "Bob"},
	)
}

// testConfig is DefaultConfig with generous limits so tests only hit the
// limiter when they mean to. Metrics are on so tests that replace the
// config still observe counters.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PasswordReset.Limit.MaxAttempts = 100
	cfg.EmailVerification.Limit.MaxAttempts = 100
	cfg.Delivery.ResetBaseURL = "https://app.example.com"
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t *testing.T, configure func(*Builder)) *Engine {
	t.Helper()

	b := New().
		WithConfig(testConfig()).
		WithUserProvider(testUsers()).
		WithMetricsEnabled(true)
	if configure != nil {
		configure(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
