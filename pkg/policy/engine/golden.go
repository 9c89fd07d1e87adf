package engine

import (
	"fmt"
	"slices"

	"relief-hq/relief/pkg/policy/ast"
)

// RuleResult records what happened to one golden rule whose when matched.
type RuleResult struct {
	RuleID       string       `json:"rule_id"`
	Name         string       `json:"name"`
	Draw         float64      `json:"draw"`
	Compliance   float64      `json:"compliance"`
	Enforced     bool         `json:"enforced"`
	SuppressedBy int          `json:"suppressed_by,omitempty"` // 1-based exception index
	Effects      []ast.Effect `json:"effects,omitempty"`
	Delta        float64      `json:"delta"`
	Blocked      bool         `json:"blocked"`
}

// Fired reports whether the rule's effects were applied.
func (r RuleResult) Fired() bool {
	return r.Enforced && r.SuppressedBy == 0
}

// RuleOutcome is the combined result of applying golden rules.
type RuleOutcome struct {
	Allowed    bool
	ScoreDelta float64
	Applied    []string // names of rules whose effects were applied, in order
	BlockedBy  string   // name of the blocking rule, empty if allowed
	Suppressed []string // names of enforced rules silenced by an exception
	Results    []RuleResult

	// BlockingRule is the rule that blocked, nil if allowed.
	BlockingRule *ast.GoldenRule
}

// ApplyRules evaluates rules in order against ctx. Each enabled rule whose
// when matches consumes one draw from rng and is enforced when the draw is
// below its compliance percentage. An enforced rule is suppressed if any of
// its exceptions match; otherwise its effects apply. A block effect stops
// evaluation immediately.
func ApplyRules(rules []*ast.GoldenRule, ctx *EvaluationContext, rng RandomSource) RuleOutcome {
	out := RuleOutcome{Allowed: true}

	for _, rule := range rules {
		if !rule.Enabled || !Evaluate(rule.When, ctx) {
			continue
		}

		res := RuleResult{
			RuleID:     rule.ID,
			Name:       rule.DisplayName(),
			Compliance: rule.Compliance,
			Draw:       rng.Draw(),
		}
		res.Enforced = res.Draw < rule.Compliance
		if res.Enforced {
			for i, exc := range rule.Exceptions {
				if Evaluate(exc, ctx) {
					res.SuppressedBy = i + 1
					break
				}
			}
		}

		if !res.Fired() {
			if res.Enforced {
				out.Suppressed = append(out.Suppressed, res.Name)
			}
			out.Results = append(out.Results, res)
			continue
		}

		res.Effects = slices.Clone(rule.Effects)
		for _, e := range rule.Effects {
			if e.Type == ast.EffectBlock {
				res.Blocked = true
				break
			}
			res.Delta += e.Delta()
		}
		out.Results = append(out.Results, res)
		out.Applied = append(out.Applied, res.Name)

		if res.Blocked {
			out.Allowed = false
			out.BlockedBy = res.Name
			out.BlockingRule = rule
			return out
		}
		out.ScoreDelta += res.Delta
	}
	return out
}

// describe renders a rule result as a breakdown line.
func (r RuleResult) describe() string {
	head := fmt.Sprintf("Golden rule %q: draw %s", r.Name, num(r.Draw))
	switch {
	case !r.Enforced:
		return fmt.Sprintf("%s >= compliance %s%%, not enforced this time", head, num(r.Compliance))
	case r.SuppressedBy > 0:
		return fmt.Sprintf("%s < compliance %s%%, suppressed by exception #%d", head, num(r.Compliance), r.SuppressedBy)
	case r.Blocked:
		return fmt.Sprintf("%s < compliance %s%%, BLOCK", head, num(r.Compliance))
	default:
		return fmt.Sprintf("%s < compliance %s%%, %s", head, num(r.Compliance), signed(r.Delta))
	}
}
