package engine

import (
	"fmt"

	"relief-hq/relief/pkg/policy/ast"
)

// composer accumulates the score and breakdown of one decision.
type composer struct {
	trace *DecisionTrace
	score float64
}

func (c *composer) line(format string, args ...any) {
	c.trace.Breakdown = append(c.trace.Breakdown, fmt.Sprintf(format, args...))
}

func (c *composer) reject(code, format string, args ...any) {
	c.trace.Allowed = false
	c.trace.Rejection = code
	c.line("Rejected: "+format, args...)
	c.line("Final score: 0 (rejected)")
}

// decide runs the full decision sequence for a checked request. Stages
// append to the breakdown in evaluation order, so a rejection is always
// the last line before the final score.
func (e *Engine) decide(req Request) *DecisionTrace {
	facts := req.facts
	if facts == nil {
		facts = e.builder.PrepareSlot(req.Policy, req.Slot, req.Index)
	}
	ec := e.builder.Build(req.Candidate, facts, req.Policy, req.Index)
	rng := NewRecordingSource(req.Random)

	at := req.At
	if at.IsZero() {
		at = e.clock()
	}

	c := &composer{trace: &DecisionTrace{
		Timestamp:     at.UTC(),
		PolicyID:      req.Policy.ID,
		PolicyVersion: req.Policy.Version,
		CandidateID:   req.Candidate.ID,
		Slot:          facts.Slot,
		Metrics:       ec.Snapshot(),
		RulesApplied:  []string{},
		StepsMatched:  []string{},
		StepsSkipped:  []string{},
		Breakdown:     []string{},
	}}
	e.compose(c, ec, req.Policy, rng)

	t := c.trace
	t.Draws = rng.Draws()
	if t.Draws == nil {
		t.Draws = []float64{}
	}
	t.ID = traceID(t.PolicyID, t.PolicyVersion, t.CandidateID, t.Slot, t.Timestamp, t.Draws)
	return t
}

func (e *Engine) compose(c *composer, ec *EvaluationContext, policy *ast.Policy, rng RandomSource) {
	settings := policy.Settings
	cfg := e.config

	// Availability.
	switch {
	case ec.OffDuty && ec.FirstPeriod == 0:
		c.reject(RejectOffDuty, "off duty, no scheduled activity on %s", ec.Day)
		return
	case ec.OffDuty:
		c.reject(RejectOffDuty, "off duty, period %d is outside working hours %d-%d", ec.Period, ec.FirstPeriod, ec.LastPeriod)
		return
	case ec.IsExternal():
		c.line("Availability: external substitute")
	default:
		c.line("Availability: on duty, period %d within working hours %d-%d", ec.Period, ec.FirstPeriod, ec.LastPeriod)
	}
	if ec.CoveringAbsentID != "" {
		c.reject(RejectAlreadyCovering, "already covering for %s in period %d", ec.CoveringAbsentID, ec.Period)
		return
	}

	// Temporary immunity.
	switch {
	case ec.Immune && ec.Emergency:
		c.line("Temporary immunity: %d coverages in %d days exceeds %d, ignored under emergency policy",
			ec.RecentCoverage, cfg.ImmunityWindowDays, cfg.ImmunityThreshold)
	case ec.Immune:
		c.score -= settings.ImmunityPenalty
		c.line("Temporary immunity: %d coverages in %d days exceeds %d, %s",
			ec.RecentCoverage, cfg.ImmunityWindowDays, cfg.ImmunityThreshold, signed(-settings.ImmunityPenalty))
	default:
		c.line("Temporary immunity: not immune, %d coverages in %d days", ec.RecentCoverage, cfg.ImmunityWindowDays)
	}

	// Settings hard filters.
	switch {
	case settings.DisableExternal && ec.IsExternal():
		c.reject(RejectExternal, "external substitutes are disabled by policy")
		return
	case settings.DisableStay && ec.EffectiveActivity() == ast.LessonStay:
		c.reject(RejectStay, "covering from a stay period is disabled by policy")
		return
	case settings.DisableIndividual && ec.EffectiveActivity() == ast.LessonIndividual:
		c.reject(RejectIndividual, "covering from an individual lesson is disabled by policy")
		return
	case settings.MaxDailyCoverage > 0 && ec.TodayCoverage >= settings.MaxDailyCoverage:
		c.reject(RejectDailyCap, "already covered %d periods today, limit %d", ec.TodayCoverage, settings.MaxDailyCoverage)
		return
	case ec.CannotCoverAlone && !ec.VacatedCoTaught:
		c.reject(RejectCannotCoverAlone, "cannot cover a lesson alone and the vacated lesson is not co-taught")
		return
	}
	c.line("Settings filters: passed")

	// Golden rules.
	rules := ApplyRules(policy.GoldenRules, ec, rng)
	t := c.trace
	t.Rules = rules.Results
	t.RulesApplied = append(t.RulesApplied, rules.Applied...)
	t.RulesSuppressed = rules.Suppressed
	for _, res := range rules.Results {
		c.line("%s", res.describe())
		if r := policy.GetRule(res.RuleID); r != nil && r.AuditRequired && res.Fired() {
			t.AuditRequired = append(t.AuditRequired, res.Name)
		}
	}
	if !rules.Allowed {
		t.BlockedBy = rules.BlockedBy
		t.Overridable = rules.BlockingRule.OverrideAllowed
		c.reject(RejectRulePrefix+rules.BlockingRule.ID, "blocked by golden rule %q", rules.BlockedBy)
		return
	}
	c.score += rules.ScoreDelta
	c.line("Golden rules: %d applied, %s", len(rules.Applied), signed(rules.ScoreDelta))

	// Built-in priorities.
	if settings.ForceHomeroomPresence && ec.HomeroomOfClass {
		c.score += settings.HomeroomPriorityBonus
		if ec.StaySwap {
			c.line("Priority #1: homeroom via stay-swap %s", signed(settings.HomeroomPriorityBonus))
		} else {
			c.line("Priority #1: homeroom presence %s", signed(settings.HomeroomPriorityBonus))
		}
	}
	if ec.ContinuityOfCare && settings.ContinuityBonus > 0 {
		c.score += settings.ContinuityBonus
		c.line("Continuity of care: covered for %s yesterday %s", ec.AbsentID, signed(settings.ContinuityBonus))
	}

	// Priority ladder.
	ladder := ApplyLadder(policy.Ladder, ec)
	t.Steps = ladder.Results
	t.StepsMatched = append(t.StepsMatched, ladder.Matched...)
	t.StepsSkipped = append(t.StepsSkipped, ladder.Skipped...)
	t.Breakdown = append(t.Breakdown, ladder.lines...)
	c.score += ladder.Score
	c.line("Priority ladder: %d matched, %d skipped, %s", len(ladder.Matched), len(ladder.Skipped), signed(ladder.Score))

	// Fairness.
	factor := e.fairnessFactor(settings.FairnessSensitivity, ec.FairnessDeviation)
	if factor != 1 {
		c.line("Fairness (%s): weekly deviation %s, score x %s", settings.FairnessSensitivity, signed(ec.FairnessDeviation), num(factor))
		c.score *= factor
	} else {
		c.line("Fairness (%s): weekly deviation %s, no adjustment", settings.FairnessSensitivity, signed(ec.FairnessDeviation))
	}

	t.Allowed = true
	t.Score = c.score
	c.line("Final score: %s", num(c.score))
}

// fairnessFactor returns the multiplier applied to the final score.
func (e *Engine) fairnessFactor(s ast.FairnessSensitivity, deviation float64) float64 {
	switch s {
	case ast.FairnessStrict:
		if deviation > e.config.StrictThreshold {
			return e.config.StrictFactor
		}
	case ast.FairnessFlexible:
		if deviation > e.config.FlexibleThreshold {
			return e.config.FlexibleFactor
		}
	}
	return 1
}
