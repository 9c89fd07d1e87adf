package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys. Domain attributes use the "relief." namespace.
const (
	AttrPolicyID      = "relief.policy_id"
	AttrPolicyVersion = "relief.policy_version"
	AttrCandidateID   = "relief.candidate_id"
	AttrSlot          = "relief.slot"
	AttrSeed          = "relief.seed"

	AttrAllowed   = "relief.allowed"
	AttrScore     = "relief.score"
	AttrRejection = "relief.rejection"
	AttrBlockedBy = "relief.blocked_by"

	AttrCandidates = "relief.candidates"
	AttrRanked     = "relief.ranked"
	AttrRejected   = "relief.rejected"

	AttrCommand = "relief.command"
	AttrRecords = "relief.records"

	AttrErrorMessage = "error.message"
)

// SlotAttributes identifies a slot evaluation.
func SlotAttributes(policyID, slot string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrPolicyID, policyID),
		attribute.String(AttrSlot, slot),
	}
}

// SetDecisionAttributes records the outcome of one candidate decision.
// Empty rejection and blockedBy are omitted.
func SetDecisionAttributes(span trace.Span, allowed bool, score float64, rejection, blockedBy string) {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrAllowed, allowed),
		attribute.Float64(AttrScore, score),
	}
	if rejection != "" {
		attrs = append(attrs, attribute.String(AttrRejection, rejection))
	}
	if blockedBy != "" {
		attrs = append(attrs, attribute.String(AttrBlockedBy, blockedBy))
	}
	span.SetAttributes(attrs...)
}

// SetRankingAttributes records the outcome of a slot ranking.
func SetRankingAttributes(span trace.Span, ranked, rejected int) {
	span.SetAttributes(
		attribute.Int(AttrCandidates, ranked+rejected),
		attribute.Int(AttrRanked, ranked),
		attribute.Int(AttrRejected, rejected),
	)
}
