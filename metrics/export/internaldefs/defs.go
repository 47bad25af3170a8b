package internaldefs

import (
	"github.com/MrEthical07/tokenlife"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tokenlife.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   tokenlife.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: tokenlife.MetricLoginIssued, Name: "tokenlife_login_issued_total", Help: "Logins answered with an auth/refresh pair."},
	{ID: tokenlife.MetricLoginFailure, Name: "tokenlife_login_failure_total", Help: "Rejected logins."},
	{ID: tokenlife.MetricRegistrationTokenIssued, Name: "tokenlife_registration_token_issued_total", Help: "Logins answered with a registration token."},
	{ID: tokenlife.MetricRegistrationCompleted, Name: "tokenlife_registration_completed_total", Help: "Completed registrations."},
	{ID: tokenlife.MetricRegistrationFailure, Name: "tokenlife_registration_failure_total", Help: "Rejected registration completions."},
	{ID: tokenlife.MetricUpgradeSuccess, Name: "tokenlife_upgrade_success_total", Help: "Registration tokens upgraded to a pair."},
	{ID: tokenlife.MetricUpgradeFailure, Name: "tokenlife_upgrade_failure_total", Help: "Rejected upgrades."},
	{ID: tokenlife.MetricRefreshSuccess, Name: "tokenlife_refresh_success_total", Help: "Completed pair rotations."},
	{ID: tokenlife.MetricRefreshFailure, Name: "tokenlife_refresh_failure_total", Help: "Rejected refreshes."},
	{ID: tokenlife.MetricRefreshNotExpired, Name: "tokenlife_refresh_not_expired_total", Help: "Refreshes attempted before the auth token expired."},
	{ID: tokenlife.MetricRefreshMismatch, Name: "tokenlife_refresh_mismatch_total", Help: "Refreshes whose bearer or username did not match the pair."},
	{ID: tokenlife.MetricRefreshUnavailable, Name: "tokenlife_refresh_unavailable_total", Help: "Refreshes with an unknown or spent refresh token."},
	{ID: tokenlife.MetricLogout, Name: "tokenlife_logout_total", Help: "Logouts that revoked a live token."},
	{ID: tokenlife.MetricResolveSuccess, Name: "tokenlife_resolve_success_total", Help: "Bearer tokens resolved to a principal."},
	{ID: tokenlife.MetricResolveFailure, Name: "tokenlife_resolve_failure_total", Help: "Bearer tokens that failed to resolve."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokenlife.MetricResolveLatency, Name: "tokenlife_resolve_latency_seconds", Help: "ResolvePrincipal latency."},
}

// BucketCount matches the engine histogram layout: seven finite bounds
// followed by +Inf.
const BucketCount = 8

// HistogramBounds are the finite upper bounds in seconds.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// without native histogram support.
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

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
