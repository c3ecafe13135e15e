package internaldefs

import (
	"github.com/MrEthical07/tokenguard"
)

// Def maps an engine metric to its exported name.
type Def struct {
	ID   tokenguard.MetricID
	Name string
	Help string
}

var CounterDefs = []Def{
	{ID: tokenguard.MetricSessionIssued, Name: "tokenguard_session_issued_total", Help: "Sessions issued after login."},
	{ID: tokenguard.MetricSessionIssueFailed, Name: "tokenguard_session_issue_failed_total", Help: "Session issuance failures."},
	{ID: tokenguard.MetricRefreshSuccess, Name: "tokenguard_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: tokenguard.MetricRefreshFailure, Name: "tokenguard_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: tokenguard.MetricRefreshReuseDetected, Name: "tokenguard_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation."},
	{ID: tokenguard.MetricLogout, Name: "tokenguard_logout_total", Help: "Single-session logouts."},
	{ID: tokenguard.MetricLogoutAll, Name: "tokenguard_logout_all_total", Help: "Logout-all operations."},
	{ID: tokenguard.MetricAuthorized, Name: "tokenguard_authorized_total", Help: "Requests authorized."},
	{ID: tokenguard.MetricRejectedNoToken, Name: "tokenguard_rejected_no_token_total", Help: "Requests without a bearer token."},
	{ID: tokenguard.MetricRejectedInvalidToken, Name: "tokenguard_rejected_invalid_token_total", Help: "Requests with a token that failed verification."},
	{ID: tokenguard.MetricRejectedInvalidClaims, Name: "tokenguard_rejected_invalid_claims_total", Help: "Requests with a verified token missing required claims."},
	{ID: tokenguard.MetricRejectedSessionRevoked, Name: "tokenguard_rejected_session_revoked_total", Help: "Requests for a logged-out session."},
	{ID: tokenguard.MetricRegistryUnavailable, Name: "tokenguard_registry_unavailable_total", Help: "Requests refused because the session registry was unreachable."},
	{ID: tokenguard.MetricDeviceMismatch, Name: "tokenguard_device_mismatch_total", Help: "Requests rejected by device binding."},
	{ID: tokenguard.MetricActionIssued, Name: "tokenguard_action_issued_total", Help: "Action tokens issued."},
	{ID: tokenguard.MetricActionVerified, Name: "tokenguard_action_verified_total", Help: "Action tokens accepted."},
	{ID: tokenguard.MetricActionRejected, Name: "tokenguard_action_rejected_total", Help: "Action tokens rejected."},
	{ID: tokenguard.MetricActionReplay, Name: "tokenguard_action_replay_total", Help: "Action tokens presented twice."},
	{ID: tokenguard.MetricLoginAttempt, Name: "tokenguard_login_attempt_total", Help: "Login attempts counted by the limiter."},
	{ID: tokenguard.MetricLoginBlocked, Name: "tokenguard_login_blocked_total", Help: "Login attempts refused while blocked."},
	{ID: tokenguard.MetricLoginReset, Name: "tokenguard_login_reset_total", Help: "Limiter resets after a successful login."},
	{ID: tokenguard.MetricLimiterUnavailable, Name: "tokenguard_limiter_unavailable_total", Help: "Login attempts refused because the limiter was unreachable."},
}

// Latency is the authorize latency histogram.
var Latency = Def{ID: tokenguard.MetricAuthorizeLatency, Name: "tokenguard_authorize_latency_seconds", Help: "Authorize latency histogram."}

// Bucket is one latency bucket: its Prometheus le label and the same bound spelled for an
// instrument name.
type Bucket struct {
	Label  string
	Suffix string
}

var Buckets = []Bucket{
	{"0.001", "0_001"},
	{"0.002", "0_002"},
	{"0.005", "0_005"},
	{"0.01", "0_01"},
	{"0.025", "0_025"},
	{"0.05", "0_05"},
	{"0.1", "0_1"},
	{"+Inf", "inf"},
}

// Cumulative turns per-bucket counts into running totals, one per entry of Buckets.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(Buckets))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
