package goCred

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	cfg := testConfig()
	cfg.PasswordReset.Limit.MaxAttempts = 0
	cfg.EmailVerification.Limit.MaxAttempts = 0
	engine := newTestEngine(t, func(b *Builder) { b.WithConfig(cfg).WithClock(clock.Now) })

	expiring, err := engine.RequestPasswordReset(ctx, "u1", WithTTL(time.Minute))
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	live, err := engine.RequestPasswordReset(ctx, "u1")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	used, err := engine.RequestEmailVerification(ctx, "u1", "alice@example.com")
	if err != nil {
		t.Fatalf("RequestEmailVerification failed: %v", err)
	}
	if _, err := engine.ConsumeEmailVerification(ctx, used.Secret); err != nil {
		t.Fatalf("ConsumeEmailVerification failed: %v", err)
	}
	revoked, err := engine.CreateToken(ctx, "u1", "old", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, err := engine.RevokeToken(ctx, revoked.Credential.ID); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	kept, err := engine.CreateToken(ctx, "u1", "kept", "", nil)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	clock.Advance(2 * time.Minute)

	report, err := engine.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if report.ResetCodes != 1 || report.Verifications != 1 || report.Tokens != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Total() != 3 {
		t.Fatalf("expected total 3, got %d", report.Total())
	}

	v, err := engine.ValidatePasswordReset(ctx, expiring.Secret, "u1")
	if err != nil {
		t.Fatalf("ValidatePasswordReset failed: %v", err)
	}
	if v.Reason != ReasonNotFound {
		t.Fatalf("expected purged code to be gone, got %s", v.Reason)
	}
	if v, err := engine.ValidatePasswordReset(ctx, live.Secret, "u1"); err != nil || !v.Valid {
		t.Fatalf("expected live code to survive, valid=%v err=%v", v.Valid, err)
	}
	if _, err := engine.GetToken(ctx, kept.Credential.ID); err != nil {
		t.Fatalf("expected active token to survive, got %v", err)
	}

	if got := engine.MetricsSnapshot().Counters[MetricCredentialsPurged]; got != 3 {
		t.Fatalf("expected 3 purged metric, got %d", got)
	}

	report, err = engine.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("second PurgeExpired failed: %v", err)
	}
	if report.Total() != 0 {
		t.Fatalf("expected nothing left to purge, got %+v", report)
	}
}

func TestPurgeExpiredKeepsIssuanceBudget(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	cfg := testConfig()
	cfg.PasswordReset.Limit = LimitConfig{MaxAttempts: 2, Window: time.Hour, Cooldown: 2 * time.Hour}
	engine := newTestEngine(t, func(b *Builder) { b.WithConfig(cfg).WithClock(clock.Now) })

	for i := 0; i < 2; i++ {
		issued, err := engine.RequestPasswordReset(ctx, "u1")
		if err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
		if _, err := engine.ConsumePasswordReset(ctx, issued.Secret); err != nil {
			t.Fatalf("consume %d failed: %v", i+1, err)
		}
	}
	if _, err := engine.RequestPasswordReset(ctx, "u1"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}

	clock.Advance(time.Minute)
	report, err := engine.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if report.ResetCodes != 0 {
		t.Fatalf("expected reset codes inside the limit window to be kept, got %+v", report)
	}
	if _, err := engine.RequestPasswordReset(ctx, "u1"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected purge to leave the limit in force, got %v", err)
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var engine *Engine
	ctx := context.Background()

	if _, err := engine.RequestPasswordReset(ctx, "u1"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.ValidateToken(ctx, "x"); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.PurgeExpired(ctx); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if engine.AuditDropped() != 0 || engine.AuditDelivered() != 0 || engine.AuditSinkPanics() != 0 {
		t.Fatal("expected zero audit counters")
	}
	if len(engine.MetricsSnapshot().Counters) != 0 {
		t.Fatal("expected empty snapshot")
	}
	engine.Close()
}
