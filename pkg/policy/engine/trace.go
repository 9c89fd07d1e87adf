package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"relief-hq/relief/pkg/roster"
)

// traceNamespace scopes the name-based trace ids.
var traceNamespace = uuid.MustParse("5b0d6c1e-8f3a-4f57-9a43-3f1c2e7d9a10")

// Rejection codes recorded on traces of rejected candidates.
const (
	RejectOffDuty          = "off_duty"
	RejectAlreadyCovering  = "already_covering"
	RejectExternal         = "settings.disable_external"
	RejectStay             = "settings.disable_stay"
	RejectIndividual       = "settings.disable_individual"
	RejectDailyCap         = "settings.max_daily_coverage"
	RejectCannotCoverAlone = "cannot_cover_alone"
	RejectRulePrefix       = "rule:"
)

// DecisionTrace is the complete, explained result of evaluating one
// candidate for one slot. A trace is never modified after Decide returns
// it.
type DecisionTrace struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	PolicyID      string      `json:"policy_id"`
	PolicyVersion string      `json:"policy_version,omitempty"`
	CandidateID   string      `json:"candidate_id"`
	Slot          roster.Slot `json:"slot"`

	Allowed   bool    `json:"allowed"`
	Score     float64 `json:"score"`
	Rejection string  `json:"rejection,omitempty"`

	RulesApplied    []string `json:"rules_applied"`
	BlockedBy       string   `json:"blocked_by,omitempty"`
	RulesSuppressed []string `json:"rules_suppressed,omitempty"`
	StepsMatched    []string `json:"steps_matched"`
	StepsSkipped    []string `json:"steps_skipped"`

	// Overridable is set when the candidate was blocked by a rule that
	// allows a manual override.
	Overridable   bool     `json:"overridable,omitempty"`
	AuditRequired []string `json:"audit_required,omitempty"`

	Metrics   Metrics      `json:"metrics"`
	Breakdown []string     `json:"breakdown"`
	Rules     []RuleResult `json:"rules,omitempty"`
	Steps     []StepResult `json:"steps,omitempty"`

	// Draws are the random values consumed by golden rules, in order.
	// Feeding them back through a SequenceSource reproduces the decision.
	Draws []float64 `json:"draws"`
}

// traceID derives a stable id from everything that determines a decision,
// so identical inputs and draws yield identical traces.
func traceID(policyID, version, candidateID string, slot roster.Slot, at time.Time, draws []float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|%s|%s", policyID, version, candidateID, slot.Key(), at.UTC().Format(time.RFC3339Nano))
	for _, d := range draws {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatFloat(d, 'g', -1, 64))
	}
	return uuid.NewSHA1(traceNamespace, []byte(sb.String())).String()
}

// num formats a score for the breakdown, rounded to two decimals.
func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// signed formats a score change with an explicit sign.
func signed(v float64) string {
	s := num(v)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}
