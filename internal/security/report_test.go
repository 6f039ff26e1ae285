package security

import (
	"math"
	"slices"
	"testing"
	"time"
)

func strongInput() ReportInput {
	flow := FlowInput{CodeLength: 8, Alphabet: 32, TTL: 30 * time.Minute, MaxAttempts: 5, Window: time.Hour, Cooldown: time.Hour}
	return ReportInput{
		Backend:           "redis",
		HashAlgorithm:     "sha256",
		PasswordReset:     flow,
		EmailVerification: flow,
		TokenLength:       64,
		TokenAlphabet:     62,
		TokenMaxExpiry:    90 * 24 * time.Hour,
	}
}

func TestBuildReportStrongConfigHasNoWarnings(t *testing.T) {
	r := BuildReport(strongInput())
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", r.Warnings)
	}
	if r.PasswordReset.EntropyBits != 40 {
		t.Fatalf("expected 40 bits for 8 chars of 32, got %v", r.PasswordReset.EntropyBits)
	}
	if math.Abs(r.TokenEntropyBits-381.1) > 0.1 {
		t.Fatalf("expected about 381 bits for 64 base62 chars, got %v", r.TokenEntropyBits)
	}
	if !r.TokensExpire || !r.PasswordReset.RateLimited {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestBuildReportWarnings(t *testing.T) {
	in := strongInput()
	in.Backend = "memory"
	in.PasswordReset.MaxAttempts = 0
	in.EmailVerification.CodeLength = 6
	in.TokenMaxExpiry = 0

	r := BuildReport(in)
	for _, want := range []string{
		"password reset requests are not rate limited",
		"verification codes are short enough to guess",
		"tokens may be created without an expiry",
		"memory backend loses every credential on restart",
	} {
		if !slices.Contains(r.Warnings, want) {
			t.Fatalf("expected warning %q in %v", want, r.Warnings)
		}
	}
	if slices.Contains(r.Warnings, "email verification requests are not rate limited") {
		t.Fatalf("unexpected verification limit warning in %v", r.Warnings)
	}
}
