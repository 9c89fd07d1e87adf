package engine

import (
	"fmt"
	"slices"
	"strings"

	"relief-hq/relief/pkg/policy/ast"
)

// StepResult records the evaluation of one matched ladder step.
type StepResult struct {
	StepID       string   `json:"step_id"`
	Label        string   `json:"label"`
	Base         float64  `json:"base"`
	Modifiers    []string `json:"modifiers,omitempty"`
	Value        float64  `json:"value"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"`
	Stopped      bool     `json:"stopped,omitempty"`
}

// LadderOutcome is the combined result of the priority ladder.
type LadderOutcome struct {
	Score   float64
	Matched []string
	Skipped []string
	Results []StepResult
	lines   []string
}

// ApplyLadder evaluates the enabled steps in ascending order. A step whose
// filters do not match is skipped. A matched step starts from its base
// score, applies every modifier whose gate matches, is scaled by its weight
// percentage and added to the total. A matched stop_on_match step ends the
// ladder; later steps are neither matched nor skipped.
func ApplyLadder(steps []*ast.PriorityStep, ctx *EvaluationContext) LadderOutcome {
	ordered := slices.Clone(steps)
	slices.SortStableFunc(ordered, func(a, b *ast.PriorityStep) int { return a.Order - b.Order })

	var out LadderOutcome
	for _, step := range ordered {
		if !step.Enabled {
			continue
		}
		label := step.DisplayLabel()
		if !Evaluate(step.Filters, ctx) {
			out.Skipped = append(out.Skipped, label)
			out.lines = append(out.lines, fmt.Sprintf("Ladder step %q: filters not met, skipped", label))
			continue
		}

		res := StepResult{StepID: step.ID, Label: label, Base: step.BaseScore, Weight: step.WeightPercentage}
		value := step.BaseScore
		for i, mod := range step.Modifiers {
			if !Evaluate(mod.When, ctx) {
				continue
			}
			value = mod.Apply(value)
			name := mod.Label
			if name == "" {
				name = fmt.Sprintf("modifier #%d", i+1)
			}
			res.Modifiers = append(res.Modifiers, fmt.Sprintf("%s %s (%s)", mod.Op, num(mod.Value), name))
		}
		res.Value = value
		res.Contribution = value * step.WeightPercentage / 100
		res.Stopped = step.StopOnMatch

		out.Score += res.Contribution
		out.Matched = append(out.Matched, label)
		out.Results = append(out.Results, res)
		out.lines = append(out.lines, res.describe())

		if step.StopOnMatch {
			out.lines = append(out.lines, fmt.Sprintf("Ladder step %q: stop_on_match, remaining steps not evaluated", label))
			break
		}
	}
	return out
}

func (r StepResult) describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ladder step %q: base %s", r.Label, num(r.Base))
	for _, m := range r.Modifiers {
		fmt.Fprintf(&sb, ", %s", m)
	}
	fmt.Fprintf(&sb, " = %s, x %s%% weight = %s", num(r.Value), num(r.Weight), signed(r.Contribution))
	return sb.String()
}
