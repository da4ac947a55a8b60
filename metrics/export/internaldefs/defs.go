package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef defines a public type used by goGate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goGate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the access gate engine.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricChallengeIssued, Name: "gogate_challenge_issued_total", Help: "Issued verification challenges."},
	{ID: goGate.MetricChallengeCooldownRejected, Name: "gogate_challenge_cooldown_rejected_total", Help: "Challenge requests rejected by the cooldown window."},
	{ID: goGate.MetricChallengeReissued, Name: "gogate_challenge_reissued_total", Help: "Challenges reissued after attempt exhaustion."},
	{ID: goGate.MetricAnswerCorrect, Name: "gogate_answer_correct_total", Help: "Correct answer submissions."},
	{ID: goGate.MetricAnswerIncorrect, Name: "gogate_answer_incorrect_total", Help: "Incorrect answer submissions."},
	{ID: goGate.MetricAnswerNonNumeric, Name: "gogate_answer_non_numeric_total", Help: "Rejected non-numeric answer submissions."},
	{ID: goGate.MetricAnswerNoChallenge, Name: "gogate_answer_no_challenge_total", Help: "Answer submissions without an active challenge."},
	{ID: goGate.MetricAnswerExhausted, Name: "gogate_answer_attempts_exhausted_total", Help: "Challenges invalidated by the attempt cap."},
	{ID: goGate.MetricGrantIssued, Name: "gogate_grant_issued_total", Help: "Issued link grants."},
	{ID: goGate.MetricLinkIssued, Name: "gogate_link_issued_total", Help: "Issued link tokens."},
	{ID: goGate.MetricLinkValidated, Name: "gogate_link_validated_total", Help: "Successful link validations."},
	{ID: goGate.MetricLinkRejected, Name: "gogate_link_rejected_total", Help: "Link validations rejected as unknown."},
	{ID: goGate.MetricLinkExpired, Name: "gogate_link_expired_total", Help: "Link validations rejected as expired."},
	{ID: goGate.MetricLinkRevoked, Name: "gogate_link_revoked_total", Help: "Revoked link tokens."},
	{ID: goGate.MetricGrantCleanupFired, Name: "gogate_grant_cleanup_fired_total", Help: "Grant cleanups that ran to completion."},
	{ID: goGate.MetricGrantCleanupCancelled, Name: "gogate_grant_cleanup_cancelled_total", Help: "Grant cleanups cancelled by explicit revocation."},
	{ID: goGate.MetricSweepRemoved, Name: "gogate_sweep_removed_total", Help: "Expired records removed by bulk sweeps."},
	{ID: goGate.MetricRetractFailure, Name: "gogate_retract_failure_total", Help: "Failed message retraction requests."},
	{ID: goGate.MetricStatsQueries, Name: "gogate_stats_queries_total", Help: "Admin stats queries."},
}

// HistogramDefs is an exported constant or variable used by the access gate engine.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricValidateLatency, Name: "gogate_validate_latency_seconds", Help: "ValidateLink latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the access gate engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the access gate engine.
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

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
