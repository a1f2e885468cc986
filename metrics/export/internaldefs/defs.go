package internaldefs

import (
	"strings"

	"github.com/MrEthical07/authgate"
)

// CounterDef names one gateway counter for exporters.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// Event is the counter name without the authgate_ prefix and _total suffix,
// used as an attribute value by label-based exporters.
func (d CounterDef) Event() string {
	return strings.TrimSuffix(strings.TrimPrefix(d.Name, "authgate_"), "_total")
}

// HistogramDef names one gateway histogram for exporters.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricChallengeIssued, Name: "authgate_challenge_issued_total", Help: "Challenges issued."},
	{ID: authgate.MetricChallengeRateLimited, Name: "authgate_challenge_rate_limited_total", Help: "Challenge requests denied by the issuance throttle."},
	{ID: authgate.MetricTokenIssued, Name: "authgate_token_issued_total", Help: "Access tokens minted after a successful handshake."},
	{ID: authgate.MetricTokenRejected, Name: "authgate_token_rejected_total", Help: "Token requests rejected for a missing or wrong challenge answer."},
	{ID: authgate.MetricBearerAPIKeySuccess, Name: "authgate_bearer_apikey_success_total", Help: "Verified self-issued bearer tokens."},
	{ID: authgate.MetricBearerAPIKeyFailure, Name: "authgate_bearer_apikey_failure_total", Help: "Rejected self-issued bearer tokens."},
	{ID: authgate.MetricClientCredentialsSuccess, Name: "authgate_client_credentials_success_total", Help: "Verified identity-provider bearer tokens."},
	{ID: authgate.MetricClientCredentialsFailure, Name: "authgate_client_credentials_failure_total", Help: "Rejected identity-provider bearer tokens."},
	{ID: authgate.MetricBasicSuccess, Name: "authgate_basic_success_total", Help: "Verified basic credentials."},
	{ID: authgate.MetricBasicFailure, Name: "authgate_basic_failure_total", Help: "Rejected basic credentials."},
	{ID: authgate.MetricSessionPassThrough, Name: "authgate_session_pass_through_total", Help: "Requests authenticated by an established session."},
	{ID: authgate.MetricNotAuthenticated, Name: "authgate_not_authenticated_total", Help: "Requests with no usable credentials or session."},
	{ID: authgate.MetricMalformedCredentials, Name: "authgate_malformed_credentials_total", Help: "Requests with a malformed Authorization header."},
	{ID: authgate.MetricKeySetFetch, Name: "authgate_keyset_fetch_total", Help: "Remote key set fetches."},
	{ID: authgate.MetricKeyResolutionFailure, Name: "authgate_key_resolution_failure_total", Help: "Signing keys that could not be resolved."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricAuthenticateLatency, Name: "authgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds of the gateway's latency buckets, in seconds.
var HistogramBounds = []string{
	"0.0001",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"0.1",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to the eight gateway buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into Prometheus-style
// cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
