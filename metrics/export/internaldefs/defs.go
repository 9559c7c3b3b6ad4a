package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one Engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one Engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins, including invalid credentials."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Successful registrations."},
	{ID: goSession.MetricRegisterDuplicate, Name: "gosession_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: goSession.MetricRegisterInvalid, Name: "gosession_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Requests resolved to an authenticated user."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Requests carrying a cookie that did not authenticate."},
	{ID: goSession.MetricSessionCreated, Name: "gosession_session_created_total", Help: "Sessions written to the store."},
	{ID: goSession.MetricSessionRevoked, Name: "gosession_session_revoked_total", Help: "Prior sessions removed by single-session enforcement or admin revoke."},
	{ID: goSession.MetricSessionRevokeFailure, Name: "gosession_session_revoke_failure_total", Help: "Prior sessions that could not be deleted during login."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts that removed a session."},
	{ID: goSession.MetricRevokeUser, Name: "gosession_revoke_user_total", Help: "Admin revoke-all operations."},
	{ID: goSession.MetricCleanupScheduled, Name: "gosession_cleanup_scheduled_total", Help: "Stale session cleanups queued."},
	{ID: goSession.MetricCleanupDropped, Name: "gosession_cleanup_dropped_total", Help: "Stale session cleanups dropped because the queue was full."},
	{ID: goSession.MetricCleanupFailed, Name: "gosession_cleanup_failed_total", Help: "Stale session cleanups that returned an error."},
	{ID: goSession.MetricStoreUnavailable, Name: "gosession_store_unavailable_total", Help: "Operations that failed because Redis was unreachable."},
	{ID: goSession.MetricDirectoryUnavailable, Name: "gosession_directory_unavailable_total", Help: "Operations that failed because the user directory was unreachable."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Validate latency."},
}

const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."
)

// BucketCount is the number of latency buckets, including +Inf.
const BucketCount = len(goSession.HistogramBounds) + 1

// HistogramBoundSuffix turns a bucket index into a metric-name-safe suffix for
// exporters without native histograms.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals. The last
// entry is the sample count.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
