package goCred

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/goCred/email"
	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	internalflows "github.com/MrEthical07/goCred/internal/flows"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/internal/stores"
)

// Engine issues, validates, and retires password reset codes, email
// verification challenges, and long-lived API tokens. It is built once by a
// Builder and is safe for concurrent use.
type Engine struct {
	config       Config
	backend      StorageBackend
	store        stores.CredentialStore
	redisLimiter bool

	resets        *internalflows.Lifecycle[ResetMetadata]
	verifications *internalflows.Lifecycle[VerificationMetadata]
	tokens        *internalflows.Lifecycle[TokenMetadata]

	userProvider UserProvider
	mailer       email.Sender
	logger       *slog.Logger
	now          func() time.Time

	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics

	postgres   *pgxpool.Pool
	mongoStore *stores.MongoStore

	deliveryMu sync.Mutex
	deliveries sync.WaitGroup
	closed     bool
}

// Close waits for background deliveries to finish and flushes the audit
// dispatcher. Reset requests after Close still issue codes but send no email.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.deliveryMu.Lock()
	e.closed = true
	e.deliveryMu.Unlock()
	e.deliveries.Wait()

	if e.audit != nil {
		e.audit.Close()
	}
}

// Migrate prepares the configured record store: PostgreSQL migrations or
// MongoDB indexes. Other backends need nothing.
func (e *Engine) Migrate(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	switch e.backend {
	case StoragePostgres:
		return stores.MigratePostgres(ctx, e.postgres, e.logger)
	case StorageMongo:
		return e.mongoStore.EnsureIndexes(ctx)
	default:
		return nil
	}
}

// Backend reports which record store the Engine writes to.
func (e *Engine) Backend() StorageBackend {
	if e == nil {
		return ""
	}
	return e.backend
}

// AuditDropped counts audit events discarded because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDelivered counts audit events handed to the sink.
func (e *Engine) AuditDelivered() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Delivered()
}

// AuditSinkPanics counts sink calls that panicked and were recovered.
func (e *Engine) AuditSinkPanics() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.SinkPanics()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) lookupUser(ctx context.Context, userID string) (internalflows.User, error) {
	u, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return internalflows.User{}, err
	}
	return internalflows.User{
		UserID:      u.UserID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}, nil
}

// outcomeMetrics maps lifecycle steps of one credential type to counters.
// The has* flags mark which steps the type supports.
type outcomeMetrics struct {
	issued, rateLimited              MetricID
	validateSuccess, validateFailure MetricID
	consumed, consumeFailure         MetricID
	revoked, updated                 MetricID

	hasRateLimit, hasConsume, hasRevocable bool
}

var metricsByType = map[CredentialType]outcomeMetrics{
	TypeResetCode: {
		issued:          MetricResetIssued,
		rateLimited:     MetricResetRateLimited,
		validateSuccess: MetricResetValidateSuccess,
		validateFailure: MetricResetValidateFailure,
		consumed:        MetricResetConsumed,
		consumeFailure:  MetricResetConsumeFailure,
		hasRateLimit:    true,
		hasConsume:      true,
	},
	TypeVerificationChallenge: {
		issued:          MetricVerificationIssued,
		rateLimited:     MetricVerificationRateLimited,
		validateSuccess: MetricVerificationValidateSuccess,
		validateFailure: MetricVerificationValidateFailure,
		consumed:        MetricVerificationConsumed,
		consumeFailure:  MetricVerificationConsumeFailure,
		hasRateLimit:    true,
		hasConsume:      true,
	},
	TypeLongLivedToken: {
		issued:          MetricTokenCreated,
		validateSuccess: MetricTokenValidateSuccess,
		validateFailure: MetricTokenValidateFailure,
		revoked:         MetricTokenRevoked,
		updated:         MetricTokenUpdated,
		hasRevocable:    true,
	},
}

// observe receives every lifecycle outcome and feeds metrics and audit.
func (e *Engine) observe(ctx context.Context, o internalflows.Outcome) {
	if errors.Is(o.Err, ErrInternal) {
		e.metricInc(MetricStoreErrors)
		e.logger.ErrorContext(ctx, "credential operation failed",
			"op", string(o.Op),
			"credential_type", string(o.Type),
			"credential_id", o.CredentialID,
			"error", o.Err,
		)
	}

	m, ok := metricsByType[o.Type]
	if ok {
		e.countOutcome(m, o)
	}
	if o.Op == internalflows.OpValidate && e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, o.Latency)
	}

	// A successful touch is already covered by its token_validate event.
	if o.Op == internalflows.OpTouch && o.Success {
		return
	}
	if o.Op == internalflows.OpPurge {
		return
	}

	e.emitAudit(ctx, auditEventName(o.Type, o.Op), o.Type, o.Success, o.UserID, o.CredentialID, o.Reason, o.Err, func() map[string]string {
		var rl *RateLimitError
		if errors.As(o.Err, &rl) {
			return map[string]string{
				"next_attempt_allowed_at": rl.NextAttemptAllowedAt.UTC().Format(time.RFC3339),
			}
		}
		return nil
	})
}

func (e *Engine) countOutcome(m outcomeMetrics, o internalflows.Outcome) {
	switch o.Op {
	case internalflows.OpIssue:
		switch {
		case o.Success:
			e.metricInc(m.issued)
		case m.hasRateLimit && errors.Is(o.Err, ErrTooManyRequests):
			e.metricInc(m.rateLimited)
		}
	case internalflows.OpValidate:
		if o.Success {
			e.metricInc(m.validateSuccess)
		} else {
			e.metricInc(m.validateFailure)
		}
	case internalflows.OpConsume:
		if !m.hasConsume {
			return
		}
		if o.Success {
			e.metricInc(m.consumed)
		} else {
			e.metricInc(m.consumeFailure)
		}
	case internalflows.OpRevoke:
		if m.hasRevocable && o.Success {
			e.metricInc(m.revoked)
		}
	case internalflows.OpUpdate:
		if m.hasRevocable && o.Success {
			e.metricInc(m.updated)
		}
	}
}
