package evidence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"relief-hq/relief/pkg/policy/engine"
)

// FromTrace builds an evidence record for a decision trace. The record gets
// a fresh random id; the trace id stays deterministic.
func FromTrace(t *engine.DecisionTrace, elapsed time.Duration) (*Record, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal trace %s: %w", t.ID, err)
	}

	return &Record{
		ID:              uuid.New().String(),
		TraceID:         t.ID,
		DecidedAt:       t.Timestamp.UTC(),
		RecordedAt:      time.Now().UTC(),
		PolicyID:        t.PolicyID,
		PolicyVersion:   t.PolicyVersion,
		Date:            t.Slot.Date,
		Period:          t.Slot.Period,
		AbsentID:        t.Slot.AbsentID,
		ClassID:         t.Slot.ClassID,
		Subject:         t.Slot.Subject,
		CandidateID:     t.CandidateID,
		Allowed:         t.Allowed,
		Score:           t.Score,
		Rejection:       t.Rejection,
		BlockedBy:       t.BlockedBy,
		Overridable:     t.Overridable,
		RulesApplied:    slices.Clone(t.RulesApplied),
		RulesSuppressed: slices.Clone(t.RulesSuppressed),
		StepsMatched:    slices.Clone(t.StepsMatched),
		AuditRequired:   slices.Clone(t.AuditRequired),
		Breakdown:       slices.Clone(t.Breakdown),
		Draws:           slices.Clone(t.Draws),
		Elapsed:         elapsed,
		Trace:           data,
		TraceHash:       HashContent(data),
	}, nil
}

// DecodeTrace returns the decision trace stored on the record.
func (r *Record) DecodeTrace() (*engine.DecisionTrace, error) {
	if len(r.Trace) == 0 {
		return nil, fmt.Errorf("record %s has no trace", r.ID)
	}
	var t engine.DecisionTrace
	if err := json.Unmarshal(r.Trace, &t); err != nil {
		return nil, fmt.Errorf("decode trace of record %s: %w", r.ID, err)
	}
	return &t, nil
}

// Verify checks the stored trace against its hash. The trace is compacted
// first, so re-indented exports still verify.
func (r *Record) Verify() error {
	if len(r.Trace) == 0 {
		if r.TraceHash != "" {
			return &IntegrityError{RecordID: r.ID, Want: r.TraceHash}
		}
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Trace); err != nil {
		return &IntegrityError{RecordID: r.ID, Want: r.TraceHash, Got: "invalid json"}
	}
	if got := HashContent(buf.Bytes()); got != r.TraceHash {
		return &IntegrityError{RecordID: r.ID, Want: r.TraceHash, Got: got}
	}
	return nil
}

// HashContent computes the hex-encoded SHA-256 of content. Empty content
// hashes to the empty string.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
