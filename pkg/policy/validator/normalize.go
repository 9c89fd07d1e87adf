package validator

import (
	"slices"

	"relief-hq/relief/pkg/policy/ast"
)

// Ids of the baseline rules every accepted policy carries.
const (
	RuleNoStayCoverage = "no-stay-coverage"
	RuleNoClassPull    = "no-class-pull"
)

// MandatoryRules returns fresh copies of the baseline rules in the order
// they are injected.
func MandatoryRules() []*ast.GoldenRule {
	return []*ast.GoldenRule{
		{
			ID:            RuleNoStayCoverage,
			Name:          "Never use a stay period for coverage",
			Description:   "A preparation (stay) period is protected time and is not used to cover absences.",
			Enabled:       true,
			Compliance:    100,
			Severity:      ast.SeverityCritical,
			AuditRequired: true,
			Mandatory:     true,
			When:          ast.All(&ast.Condition{LessonType: ast.LessonStay}),
			Effects:       []ast.Effect{{Type: ast.EffectBlock}},
		},
		{
			ID:            RuleNoClassPull,
			Name:          "Never pull a teacher out of their own class",
			Description:   "A teacher who is teaching an ordinary class in the period cannot leave it to cover.",
			Enabled:       true,
			Compliance:    100,
			Severity:      ast.SeverityCritical,
			AuditRequired: true,
			Mandatory:     true,
			When:          ast.All(&ast.Condition{LessonType: ast.LessonRegular}),
			Effects:       []ast.Effect{{Type: ast.EffectBlock}},
		},
	}
}

// IsMandatory reports whether id names a baseline rule.
func IsMandatory(id string) bool {
	return id == RuleNoStayCoverage || id == RuleNoClassPull
}

// Normalize returns a validated copy of policy that is ready for the
// engine: missing baseline rules are injected ahead of the policy's own
// rules, defaults are filled in and the ladder is sorted by order. The
// input is not modified.
func (v *Validator) Normalize(policy *ast.Policy) (*ast.Policy, error) {
	p := policy.Clone()

	var injected []*ast.GoldenRule
	for _, m := range MandatoryRules() {
		if existing := p.GetRule(m.ID); existing != nil {
			existing.Mandatory = true
			continue
		}
		injected = append(injected, m)
	}
	p.GoldenRules = append(injected, p.GoldenRules...)

	for _, r := range p.GoldenRules {
		if r.Severity == "" {
			r.Severity = ast.SeverityMedium
			if r.Mandatory {
				r.Severity = ast.SeverityCritical
			}
		}
		if r.When == nil {
			r.When = ast.Always()
		}
	}

	for _, s := range p.Ladder {
		if s.Filters == nil {
			s.Filters = ast.Always()
		}
	}
	slices.SortStableFunc(p.Ladder, func(a, b *ast.PriorityStep) int {
		return a.Order - b.Order
	})

	if p.Settings.FairnessSensitivity == "" {
		p.Settings.FairnessSensitivity = ast.FairnessBalanced
	}

	if err := v.Validate(p); err != nil {
		return nil, err
	}
	p.Normalized = true
	return p, nil
}
