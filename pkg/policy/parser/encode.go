package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"relief-hq/relief/pkg/policy/ast"
)

// The out* types mirror the policy file schema for encoding. Every field
// the parser defaults is written explicitly.
type outPolicy struct {
	ID             string              `yaml:"id"`
	Name           string              `yaml:"name,omitempty"`
	Version        string              `yaml:"version,omitempty"`
	Description    string              `yaml:"description,omitempty"`
	Settings       outSettings         `yaml:"settings"`
	SubjectDomains map[string][]string `yaml:"subject_domains,omitempty"`
	GoldenRules    []outRule           `yaml:"golden_rules,omitempty"`
	Ladder         []outStep           `yaml:"ladder,omitempty"`
}

type outSettings struct {
	DisableExternal       bool    `yaml:"disable_external"`
	DisableStay           bool    `yaml:"disable_stay"`
	DisableIndividual     bool    `yaml:"disable_individual"`
	MaxDailyCoverage      int     `yaml:"max_daily_coverage"`
	FairnessSensitivity   string  `yaml:"fairness_sensitivity,omitempty"`
	GoverningSubject      string  `yaml:"governing_subject,omitempty"`
	ForceHomeroomPresence bool    `yaml:"force_homeroom_presence"`
	Emergency             bool    `yaml:"emergency"`
	ImmunityPenalty       float64 `yaml:"immunity_penalty"`
	ContinuityBonus       float64 `yaml:"continuity_bonus"`
	HomeroomPriorityBonus float64 `yaml:"homeroom_priority_bonus"`
}

type outRule struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name,omitempty"`
	Description     string  `yaml:"description,omitempty"`
	Enabled         bool    `yaml:"enabled"`
	Compliance      float64 `yaml:"compliance"`
	Severity        string  `yaml:"severity,omitempty"`
	OverrideAllowed bool    `yaml:"override_allowed,omitempty"`
	AuditRequired   bool    `yaml:"audit_required,omitempty"`
	Mandatory       bool    `yaml:"mandatory,omitempty"`
	When            any     `yaml:"when,omitempty"`
	Effects         []any   `yaml:"effects,omitempty"`
	Exceptions      []any   `yaml:"exceptions,omitempty"`
}

type outStep struct {
	ID          string        `yaml:"id"`
	Label       string        `yaml:"label,omitempty"`
	Order       int           `yaml:"order"`
	Enabled     bool          `yaml:"enabled"`
	Filters     any           `yaml:"filters,omitempty"`
	BaseScore   float64       `yaml:"base_score"`
	Modifiers   []outModifier `yaml:"modifiers,omitempty"`
	Weight      float64       `yaml:"weight"`
	StopOnMatch bool          `yaml:"stop_on_match,omitempty"`
}

type outModifier struct {
	Label string  `yaml:"label,omitempty"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
	When  any     `yaml:"when,omitempty"`
}

// Marshal encodes a policy in the file format accepted by Parse. Parsing
// the output yields an equivalent policy; source locations are not kept.
func Marshal(p *ast.Policy) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("policy is nil")
	}

	out := outPolicy{
		ID:          p.ID,
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		Settings: outSettings{
			DisableExternal:       p.Settings.DisableExternal,
			DisableStay:           p.Settings.DisableStay,
			DisableIndividual:     p.Settings.DisableIndividual,
			MaxDailyCoverage:      p.Settings.MaxDailyCoverage,
			FairnessSensitivity:   string(p.Settings.FairnessSensitivity),
			GoverningSubject:      p.Settings.GoverningSubject,
			ForceHomeroomPresence: p.Settings.ForceHomeroomPresence,
			Emergency:             p.Settings.Emergency,
			ImmunityPenalty:       p.Settings.ImmunityPenalty,
			ContinuityBonus:       p.Settings.ContinuityBonus,
			HomeroomPriorityBonus: p.Settings.HomeroomPriorityBonus,
		},
	}
	if len(p.SubjectDomains) > 0 {
		out.SubjectDomains = map[string][]string(p.SubjectDomains)
	}

	for _, r := range p.GoldenRules {
		rule := outRule{
			ID:              r.ID,
			Name:            r.Name,
			Description:     r.Description,
			Enabled:         r.Enabled,
			Compliance:      r.Compliance,
			Severity:        string(r.Severity),
			OverrideAllowed: r.OverrideAllowed,
			AuditRequired:   r.AuditRequired,
			Mandatory:       r.Mandatory,
			When:            encodeGroup(r.When),
		}
		for _, e := range r.Effects {
			rule.Effects = append(rule.Effects, encodeEffect(e))
		}
		for _, g := range r.Exceptions {
			exc := encodeGroup(g)
			if exc == nil {
				exc = []any{}
			}
			rule.Exceptions = append(rule.Exceptions, exc)
		}
		out.GoldenRules = append(out.GoldenRules, rule)
	}

	for _, s := range p.Ladder {
		step := outStep{
			ID:          s.ID,
			Label:       s.Label,
			Order:       s.Order,
			Enabled:     s.Enabled,
			Filters:     encodeGroup(s.Filters),
			BaseScore:   s.BaseScore,
			Weight:      s.WeightPercentage,
			StopOnMatch: s.StopOnMatch,
		}
		for _, m := range s.Modifiers {
			step.Modifiers = append(step.Modifiers, outModifier{
				Label: m.Label,
				Op:    string(m.Op),
				Value: m.Value,
				When:  encodeGroup(m.When),
			})
		}
		out.Ladder = append(out.Ladder, step)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode policy %s: %w", p.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeEffect(e ast.Effect) any {
	if e.Type == ast.EffectBlock {
		return string(e.Type)
	}
	return map[string]float64{string(e.Type): e.Amount}
}

// encodeGroup returns nil for an empty top-level group, which the parser
// reads back as "always applies".
func encodeGroup(g *ast.ConditionGroup) any {
	if g.IsEmpty() {
		return nil
	}
	return encodeNode(g)
}

func encodeNode(n ast.Node) any {
	switch n := n.(type) {
	case *ast.Condition:
		return encodeLeaf(n)
	case *ast.ConditionGroup:
		children := make([]any, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, encodeNode(c))
		}
		if n.Operator == ast.OpAnd {
			return children
		}
		return map[string]any{string(n.Operator): children}
	default:
		return nil
	}
}

func encodeLeaf(c *ast.Condition) map[string]string {
	leaf := map[string]string{}
	if c.TeacherType != "" {
		leaf["teacher_type"] = string(c.TeacherType)
	}
	if c.LessonType != "" {
		leaf["lesson_type"] = string(c.LessonType)
	}
	if c.Subject != "" {
		leaf["subject"] = c.Subject
	}
	if c.TimeContext != "" {
		leaf["time_context"] = string(c.TimeContext)
	}
	if c.Relationship != "" {
		leaf["relationship"] = string(c.Relationship)
	}
	return leaf
}
