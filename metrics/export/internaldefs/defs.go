package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one controller counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one controller latency histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricBootstrapRestored, Name: "gosession_bootstrap_restored_total", Help: "Bootstraps that restored a stored session."},
	{ID: goSession.MetricBootstrapCleared, Name: "gosession_bootstrap_cleared_total", Help: "Bootstraps that resolved to unauthenticated."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful password logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed password logins."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Failed registrations."},
	{ID: goSession.MetricRegisterDuplicate, Name: "gosession_register_duplicate_total", Help: "Registrations rejected because the account exists."},
	{ID: goSession.MetricProviderLoginSuccess, Name: "gosession_provider_login_success_total", Help: "Accepted identity provider logins."},
	{ID: goSession.MetricProviderLoginFailure, Name: "gosession_provider_login_failure_total", Help: "Rejected identity provider logins and callbacks."},
	{ID: goSession.MetricValidationRejected, Name: "gosession_validation_rejected_total", Help: "Inputs rejected before any network call."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Rotated token pairs."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refreshes that ended the session."},
	{ID: goSession.MetricRefreshNetworkError, Name: "gosession_refresh_network_error_total", Help: "Refreshes that got no response."},
	{ID: goSession.MetricRefreshShared, Name: "gosession_refresh_shared_total", Help: "Callers that joined an in-flight refresh."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Explicit logouts."},
	{ID: goSession.MetricBackgroundExpired, Name: "gosession_background_expired_total", Help: "Sessions ended by the background timer."},
	{ID: goSession.MetricGatewayRequest, Name: "gosession_gateway_request_total", Help: "Requests sent through the gateway, retries included."},
	{ID: goSession.MetricGatewayUnauthorized, Name: "gosession_gateway_unauthorized_total", Help: "401 responses seen by the gateway."},
	{ID: goSession.MetricGatewayRetry, Name: "gosession_gateway_retry_total", Help: "Requests retried after a refresh."},
	{ID: goSession.MetricGatewayForcedLogout, Name: "gosession_gateway_forced_logout_total", Help: "Sessions ended because a retried request was rejected."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Credential store errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh round-trip latency histogram."},
}

// HistogramBounds are the upper bounds of the controller buckets, in seconds.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// HistogramUpperBounds are HistogramBounds without +Inf, as floats.
var HistogramUpperBounds = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
