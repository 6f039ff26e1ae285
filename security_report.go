package goCred

import (
	"time"

	"github.com/MrEthical07/goCred/internal/secret"
	"github.com/MrEthical07/goCred/internal/security"
)

// SecurityReport is a read-only summary of how well the configuration
// protects credentials. Warnings lists settings worth a second look.
type SecurityReport struct {
	Backend            StorageBackend
	HashAlgorithm      string
	DistributedLimiter bool
	AuditEnabled       bool
	ResetLinks         bool
	PasswordReset      FlowSecurity
	EmailVerification  FlowSecurity
	TokenEntropyBits   float64
	TokensExpire       bool
	TokenMaxExpiry     time.Duration
	Warnings           []string
}

// FlowSecurity describes one single-use credential family.
type FlowSecurity = security.FlowReport

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	flow := func(length int, ttl time.Duration, l LimitConfig) security.FlowInput {
		return security.FlowInput{
			CodeLength:  length,
			Alphabet:    len(secret.CodeAlphabet),
			TTL:         ttl,
			MaxAttempts: l.MaxAttempts,
			Window:      l.Window,
			Cooldown:    l.Cooldown,
		}
	}

	r := security.BuildReport(security.ReportInput{
		Backend:            string(e.backend),
		HashAlgorithm:      e.config.Secrets.HashAlgorithm,
		DistributedLimiter: e.redisLimiter,
		AuditEnabled:       e.config.Audit.Enabled,
		ResetLinks:         e.mailer != nil,
		PasswordReset:      flow(e.config.PasswordReset.CodeLength, e.config.PasswordReset.TTL, e.config.PasswordReset.Limit),
		EmailVerification:  flow(e.config.EmailVerification.CodeLength, e.config.EmailVerification.TTL, e.config.EmailVerification.Limit),
		TokenLength:        e.config.Tokens.Length,
		TokenAlphabet:      62,
		TokenMaxExpiry:     e.config.Tokens.MaxExpiry,
	})

	return SecurityReport{
		Backend:            StorageBackend(r.Backend),
		HashAlgorithm:      r.HashAlgorithm,
		DistributedLimiter: r.DistributedLimiter,
		AuditEnabled:       r.AuditEnabled,
		ResetLinks:         r.ResetLinks,
		PasswordReset:      r.PasswordReset,
		EmailVerification:  r.EmailVerification,
		TokenEntropyBits:   r.TokenEntropyBits,
		TokensExpire:       r.TokensExpire,
		TokenMaxExpiry:     r.TokenMaxExpiry,
		Warnings:           r.Warnings,
	}
}
