package internaldefs

import (
	goCred "github.com/MrEthical07/goCred"
)

// CounterDef binds a counter slot to its exported names. Prometheus gets one
// series per slot under Name. OTel groups slots sharing an Instrument and
// tells them apart by Attrs.
type CounterDef struct {
	ID         goCred.MetricID
	Name       string
	Help       string
	Instrument string
	Attrs      []Attr
}

// Attr is one OTel attribute of a counter slot.
type Attr struct {
	Key   string
	Value string
}

// HistogramDef binds a histogram slot to its exported names.
type HistogramDef struct {
	ID         goCred.MetricID
	Name       string
	Help       string
	Instrument string
}

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// Audit drops are read from the dispatcher rather than a counter slot.
const (
	AuditDroppedName       = "gocred_audit_dropped_total"
	AuditDroppedInstrument = "gocred.audit.dropped"
)

const (
	instrumentIssued           = "gocred.credential.issued"
	instrumentRateLimited      = "gocred.credential.rate_limited"
	instrumentDeliveryFailures = "gocred.credential.delivery_failures"
	instrumentValidations      = "gocred.credential.validations"
	instrumentConsumptions     = "gocred.credential.consumptions"
	instrumentRevocations      = "gocred.credential.revocations"
	instrumentUpdates          = "gocred.credential.updates"
	instrumentDeletions        = "gocred.credential.deletions"
	instrumentPurged           = "gocred.credential.purged"
	instrumentStoreErrors      = "gocred.store.errors"
)

// InstrumentHelp describes each OTel counter instrument.
var InstrumentHelp = map[string]string{
	instrumentIssued:           "Credentials issued.",
	instrumentRateLimited:      "Issuance requests denied by the limiter.",
	instrumentDeliveryFailures: "Credential emails that could not be sent.",
	instrumentValidations:      "Credential validations by outcome.",
	instrumentConsumptions:     "Single-use credential consumptions by outcome.",
	instrumentRevocations:      "Tokens revoked.",
	instrumentUpdates:          "Token title or description changes.",
	instrumentDeletions:        "Token records deleted.",
	instrumentPurged:           "Expired or retired records removed by purge.",
	instrumentStoreErrors:      "Operations that failed in the credential store.",
}

func typ(t goCred.CredentialType) Attr { return Attr{Key: "credential_type", Value: string(t)} }

var (
	success = Attr{Key: "outcome", Value: "success"}
	failure = Attr{Key: "outcome", Value: "failure"}
)

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goCred.MetricResetIssued, Name: "gocred_reset_issued_total", Help: "Password reset codes issued.", Instrument: instrumentIssued, Attrs: []Attr{typ(goCred.TypeResetCode)}},
	{ID: goCred.MetricResetRateLimited, Name: "gocred_reset_rate_limited_total", Help: "Password reset requests denied by the limiter.", Instrument: instrumentRateLimited, Attrs: []Attr{typ(goCred.TypeResetCode)}},
	{ID: goCred.MetricResetDeliveryFailure, Name: "gocred_reset_delivery_failure_total", Help: "Password reset emails that could not be sent.", Instrument: instrumentDeliveryFailures, Attrs: []Attr{typ(goCred.TypeResetCode)}},
	{ID: goCred.MetricResetValidateSuccess, Name: "gocred_reset_validate_success_total", Help: "Successful password reset code validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeResetCode), success}},
	{ID: goCred.MetricResetValidateFailure, Name: "gocred_reset_validate_failure_total", Help: "Failed password reset code validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeResetCode), failure}},
	{ID: goCred.MetricResetConsumed, Name: "gocred_reset_consumed_total", Help: "Password reset codes consumed.", Instrument: instrumentConsumptions, Attrs: []Attr{typ(goCred.TypeResetCode), success}},
	{ID: goCred.MetricResetConsumeFailure, Name: "gocred_reset_consume_failure_total", Help: "Rejected password reset code consumptions.", Instrument: instrumentConsumptions, Attrs: []Attr{typ(goCred.TypeResetCode), failure}},
	{ID: goCred.MetricVerificationIssued, Name: "gocred_verification_issued_total", Help: "Email verification challenges issued.", Instrument: instrumentIssued, Attrs: []Attr{typ(goCred.TypeVerificationChallenge)}},
	{ID: goCred.MetricVerificationRateLimited, Name: "gocred_verification_rate_limited_total", Help: "Email verification requests denied by the limiter.", Instrument: instrumentRateLimited, Attrs: []Attr{typ(goCred.TypeVerificationChallenge)}},
	{ID: goCred.MetricVerificationDeliveryFailure, Name: "gocred_verification_delivery_failure_total", Help: "Verification emails that could not be sent.", Instrument: instrumentDeliveryFailures, Attrs: []Attr{typ(goCred.TypeVerificationChallenge)}},
	{ID: goCred.MetricVerificationValidateSuccess, Name: "gocred_verification_validate_success_total", Help: "Successful verification challenge validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeVerificationChallenge), success}},
	{ID: goCred.MetricVerificationValidateFailure, Name: "gocred_verification_validate_failure_total", Help: "Failed verification challenge validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeVerificationChallenge), failure}},
	{ID: goCred.MetricVerificationConsumed, Name: "gocred_verification_consumed_total", Help: "Verification challenges consumed.", Instrument: instrumentConsumptions, Attrs: []Attr{typ(goCred.TypeVerificationChallenge), success}},
	{ID: goCred.MetricVerificationConsumeFailure, Name: "gocred_verification_consume_failure_total", Help: "Rejected verification challenge consumptions.", Instrument: instrumentConsumptions, Attrs: []Attr{typ(goCred.TypeVerificationChallenge), failure}},
	{ID: goCred.MetricTokenCreated, Name: "gocred_token_created_total", Help: "Long-lived tokens created.", Instrument: instrumentIssued, Attrs: []Attr{typ(goCred.TypeLongLivedToken)}},
	{ID: goCred.MetricTokenValidateSuccess, Name: "gocred_token_validate_success_total", Help: "Successful token validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeLongLivedToken), success}},
	{ID: goCred.MetricTokenValidateFailure, Name: "gocred_token_validate_failure_total", Help: "Failed token validations.", Instrument: instrumentValidations, Attrs: []Attr{typ(goCred.TypeLongLivedToken), failure}},
	{ID: goCred.MetricTokenRevoked, Name: "gocred_token_revoked_total", Help: "Tokens revoked.", Instrument: instrumentRevocations, Attrs: []Attr{typ(goCred.TypeLongLivedToken)}},
	{ID: goCred.MetricTokenUpdated, Name: "gocred_token_updated_total", Help: "Token title or description changes.", Instrument: instrumentUpdates, Attrs: []Attr{typ(goCred.TypeLongLivedToken)}},
	{ID: goCred.MetricTokenDeleted, Name: "gocred_token_deleted_total", Help: "Token records deleted.", Instrument: instrumentDeletions, Attrs: []Attr{typ(goCred.TypeLongLivedToken)}},
	{ID: goCred.MetricCredentialsPurged, Name: "gocred_credentials_purged_total", Help: "Expired or retired records removed by purge.", Instrument: instrumentPurged},
	{ID: goCred.MetricStoreErrors, Name: "gocred_store_errors_total", Help: "Operations that failed in the credential store.", Instrument: instrumentStoreErrors},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCred.MetricValidateLatency, Name: "gocred_validate_latency_seconds", Help: "Credential validation latency.", Instrument: "gocred.credential.validate.latency"},
}

// HistogramBounds are the Prometheus le labels of each bucket.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates a snapshot histogram to BucketCount.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
