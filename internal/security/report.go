package security

import (
	"math"
	"time"
)

// MinCodeEntropyBits is the strength below which a short code is flagged.
const MinCodeEntropyBits = 40

type FlowInput struct {
	CodeLength  int
	Alphabet    int
	TTL         time.Duration
	MaxAttempts int
	Window      time.Duration
	Cooldown    time.Duration
}

// FlowReport describes one single-use credential family.
type FlowReport struct {
	EntropyBits float64
	TTL         time.Duration
	RateLimited bool
	MaxAttempts int
	Window      time.Duration
	Cooldown    time.Duration
}

type ReportInput struct {
	Backend            string
	HashAlgorithm      string
	DistributedLimiter bool
	AuditEnabled       bool
	ResetLinks         bool
	PasswordReset      FlowInput
	EmailVerification  FlowInput
	TokenLength        int
	TokenAlphabet      int
	TokenMaxExpiry     time.Duration
}

type Report struct {
	Backend            string
	HashAlgorithm      string
	DistributedLimiter bool
	AuditEnabled       bool
	ResetLinks         bool
	PasswordReset      FlowReport
	EmailVerification  FlowReport
	TokenEntropyBits   float64
	TokensExpire       bool
	TokenMaxExpiry     time.Duration
	Warnings           []string
}

func BuildReport(input ReportInput) Report {
	r := Report{
		Backend:            input.Backend,
		HashAlgorithm:      input.HashAlgorithm,
		DistributedLimiter: input.DistributedLimiter,
		AuditEnabled:       input.AuditEnabled,
		ResetLinks:         input.ResetLinks,
		PasswordReset:      buildFlow(input.PasswordReset),
		EmailVerification:  buildFlow(input.EmailVerification),
		TokenEntropyBits:   entropyBits(input.TokenLength, input.TokenAlphabet),
		TokensExpire:       input.TokenMaxExpiry > 0,
		TokenMaxExpiry:     input.TokenMaxExpiry,
	}

	if !r.PasswordReset.RateLimited {
		r.Warnings = append(r.Warnings, "password reset requests are not rate limited")
	}
	if !r.EmailVerification.RateLimited {
		r.Warnings = append(r.Warnings, "email verification requests are not rate limited")
	}
	if r.PasswordReset.EntropyBits < MinCodeEntropyBits {
		r.Warnings = append(r.Warnings, "password reset codes are short enough to guess")
	}
	if r.EmailVerification.EntropyBits < MinCodeEntropyBits {
		r.Warnings = append(r.Warnings, "verification codes are short enough to guess")
	}
	if !r.TokensExpire {
		r.Warnings = append(r.Warnings, "tokens may be created without an expiry")
	}
	if input.Backend == "memory" {
		r.Warnings = append(r.Warnings, "memory backend loses every credential on restart")
	}
	return r
}

func buildFlow(in FlowInput) FlowReport {
	return FlowReport{
		EntropyBits: entropyBits(in.CodeLength, in.Alphabet),
		TTL:         in.TTL,
		RateLimited: in.MaxAttempts > 0,
		MaxAttempts: in.MaxAttempts,
		Window:      in.Window,
		Cooldown:    in.Cooldown,
	}
}

func entropyBits(length, alphabet int) float64 {
	if length <= 0 || alphabet < 2 {
		return 0
	}
	return float64(length) * math.Log2(float64(alphabet))
}
