package internaldefs

import (
	"github.com/Fpierr/zikauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   zikauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   zikauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: zikauth.MetricAuthSuccess, Name: "zikauth_authenticate_success_total", Help: "Requests authenticated successfully."},
	{ID: zikauth.MetricAuthAnonymous, Name: "zikauth_authenticate_anonymous_total", Help: "Requests without a declared client type."},
	{ID: zikauth.MetricAuthMixedChannel, Name: "zikauth_authenticate_mixed_channel_total", Help: "Requests rejected for carrying credentials of both channels."},
	{ID: zikauth.MetricAuthMissingCredentials, Name: "zikauth_authenticate_missing_credentials_total", Help: "Requests rejected for missing credentials."},
	{ID: zikauth.MetricAuthInvalidToken, Name: "zikauth_authenticate_invalid_token_total", Help: "Requests rejected for an invalid access token."},
	{ID: zikauth.MetricAuthInvalidSession, Name: "zikauth_authenticate_invalid_session_total", Help: "Requests rejected for an unknown or expired session."},
	{ID: zikauth.MetricAuthSessionUserMismatch, Name: "zikauth_authenticate_session_user_mismatch_total", Help: "Requests whose session belongs to another user."},
	{ID: zikauth.MetricAuthCSRFMismatch, Name: "zikauth_authenticate_csrf_mismatch_total", Help: "Requests rejected for a CSRF token mismatch."},
	{ID: zikauth.MetricLoginSuccess, Name: "zikauth_login_success_total", Help: "Successful logins."},
	{ID: zikauth.MetricLoginFailure, Name: "zikauth_login_failure_total", Help: "Failed logins."},
	{ID: zikauth.MetricRefreshSuccess, Name: "zikauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: zikauth.MetricRefreshFailure, Name: "zikauth_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: zikauth.MetricRefreshReuseDetected, Name: "zikauth_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: zikauth.MetricSessionCreated, Name: "zikauth_session_created_total", Help: "Created sessions."},
	{ID: zikauth.MetricSessionDeleted, Name: "zikauth_session_deleted_total", Help: "Deleted sessions."},
	{ID: zikauth.MetricLogout, Name: "zikauth_logout_total", Help: "Logouts."},
	{ID: zikauth.MetricRevocationFailure, Name: "zikauth_revocation_failure_total", Help: "Refresh tokens that could not be blacklisted on logout."},
	{ID: zikauth.MetricBackendUnavailable, Name: "zikauth_backend_unavailable_total", Help: "Operations failed by an unavailable session store or user provider."},
	{ID: zikauth.MetricAuditDropped, Name: "zikauth_audit_dropped_events_total", Help: "Audit events counted at drop time."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: zikauth.MetricAuthenticateLatency, Name: "zikauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last engine
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
