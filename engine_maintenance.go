package goCred

import (
	"context"
	"strconv"
)

// PurgeExpired deletes expired and retired records of every credential type.
// Run it periodically; validation never depends on it. Without the Redis
// limiter, records still inside their issuance window are kept because the
// limiter counts them.
//
// On error the report holds what was removed before the failure.
func (e *Engine) PurgeExpired(ctx context.Context) (PurgeReport, error) {
	if e == nil || e.resets == nil {
		return PurgeReport{}, ErrEngineNotReady
	}

	var report PurgeReport
	var err error
	defer func() {
		e.metricAdd(MetricCredentialsPurged, report.Total())
		e.emitAudit(ctx, auditEventCredentialsPurged, "", err == nil, "", "", ReasonNone, err, func() map[string]string {
			return map[string]string{
				"reset_codes":   strconv.Itoa(report.ResetCodes),
				"verifications": strconv.Itoa(report.Verifications),
				"tokens":        strconv.Itoa(report.Tokens),
			}
		})
	}()

	if report.ResetCodes, err = e.resets.PurgeExpired(ctx, true); err != nil {
		return report, err
	}
	if report.Verifications, err = e.verifications.PurgeExpired(ctx, true); err != nil {
		return report, err
	}
	if report.Tokens, err = e.tokens.PurgeExpired(ctx, true); err != nil {
		return report, err
	}

	e.logger.InfoContext(ctx, "expired credentials purged",
		"reset_codes", report.ResetCodes,
		"verifications", report.Verifications,
		"tokens", report.Tokens,
	)
	return report, nil
}
