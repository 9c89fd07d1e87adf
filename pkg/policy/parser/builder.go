package parser

import (
	"slices"

	"gopkg.in/yaml.v3"

	"relief-hq/relief/pkg/policy/ast"
	policyErrors "relief-hq/relief/pkg/policy/errors"
)

// builder turns the YAML node tree into an ast.Policy, collecting every
// structural problem on the way.
type builder struct {
	sourcePath string
	maxDepth   int
	errors     *policyErrors.ErrorList
}

func newBuilder(sourcePath string, maxDepth int) *builder {
	return &builder{
		sourcePath: sourcePath,
		maxDepth:   maxDepth,
		errors:     policyErrors.NewErrorList(),
	}
}

func (b *builder) buildPolicy(root *yaml.Node) (*ast.Policy, error) {
	b.checkKeys(root, policyKeys, "policy")

	var yp yamlPolicy
	if err := root.Decode(&yp); err != nil {
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(root), "invalid policy: %v", err)
		return nil, b.errors
	}

	policy := &ast.Policy{
		ID:          yp.ID,
		Name:        yp.Name,
		Version:     yp.Version,
		Description: yp.Description,
		Settings:    ast.DefaultSettings(),
		SourceFile:  b.sourcePath,
		Location:    b.location(root),
	}
	if yp.Settings != nil {
		b.checkKeys(mappingValue(root, "settings"), settingsKeys, "settings")
		applySettings(&policy.Settings, yp.Settings)
	}
	if len(yp.SubjectDomains) > 0 {
		policy.SubjectDomains = ast.SubjectDomains(yp.SubjectDomains)
	}

	for i := range yp.GoldenRules {
		if rule := b.buildRule(&yp.GoldenRules[i]); rule != nil {
			policy.GoldenRules = append(policy.GoldenRules, rule)
		}
	}
	for i := range yp.Ladder {
		if step := b.buildStep(&yp.Ladder[i]); step != nil {
			policy.Ladder = append(policy.Ladder, step)
		}
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}
	return policy, nil
}

func applySettings(s *ast.Settings, ys *yamlSettings) {
	if ys.DisableExternal != nil {
		s.DisableExternal = *ys.DisableExternal
	}
	if ys.DisableStay != nil {
		s.DisableStay = *ys.DisableStay
	}
	if ys.DisableIndividual != nil {
		s.DisableIndividual = *ys.DisableIndividual
	}
	if ys.MaxDailyCoverage != nil {
		s.MaxDailyCoverage = *ys.MaxDailyCoverage
	}
	if ys.FairnessSensitivity != nil {
		s.FairnessSensitivity = ast.FairnessSensitivity(normalizeScalar(*ys.FairnessSensitivity))
	}
	if ys.GoverningSubject != nil {
		s.GoverningSubject = *ys.GoverningSubject
	}
	if ys.ForceHomeroomPresence != nil {
		s.ForceHomeroomPresence = *ys.ForceHomeroomPresence
	}
	if ys.Emergency != nil {
		s.Emergency = *ys.Emergency
	}
	if ys.ImmunityPenalty != nil {
		s.ImmunityPenalty = *ys.ImmunityPenalty
	}
	if ys.ContinuityBonus != nil {
		s.ContinuityBonus = *ys.ContinuityBonus
	}
	if ys.HomeroomPriorityBonus != nil {
		s.HomeroomPriorityBonus = *ys.HomeroomPriorityBonus
	}
}

func (b *builder) buildRule(n *yaml.Node) *ast.GoldenRule {
	if !b.expectKind(n, yaml.MappingNode, "golden rule") {
		return nil
	}
	b.checkKeys(n, ruleKeys, "golden rule")

	var yr yamlRule
	if err := n.Decode(&yr); err != nil {
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n), "invalid golden rule: %v", err)
		return nil
	}

	rule := &ast.GoldenRule{
		ID:              yr.ID,
		Name:            yr.Name,
		Description:     yr.Description,
		Enabled:         true,
		Compliance:      100,
		Severity:        ast.Severity(normalizeScalar(yr.Severity)),
		OverrideAllowed: yr.OverrideAllowed,
		AuditRequired:   yr.AuditRequired,
		Mandatory:       yr.Mandatory,
		When:            b.buildGroup(&yr.When, 1),
		Location:        b.location(n),
	}
	if yr.Enabled != nil {
		rule.Enabled = *yr.Enabled
	}
	if yr.Compliance != nil {
		rule.Compliance = *yr.Compliance
	}
	for i := range yr.Effects {
		if effect, ok := b.buildEffect(&yr.Effects[i]); ok {
			rule.Effects = append(rule.Effects, effect)
		}
	}
	for i := range yr.Exceptions {
		rule.Exceptions = append(rule.Exceptions, b.buildGroup(&yr.Exceptions[i], 1))
	}
	return rule
}

// buildEffect accepts "block", {boost: 10} or {type: boost, amount: 10}.
func (b *builder) buildEffect(n *yaml.Node) (ast.Effect, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		return ast.Effect{Type: ast.EffectType(normalizeScalar(n.Value))}, true
	case yaml.MappingNode:
		if t := mappingValue(n, "type"); t != nil {
			b.checkKeys(n, []string{"type", "amount"}, "effect")
			effect := ast.Effect{Type: ast.EffectType(normalizeScalar(t.Value))}
			if a := mappingValue(n, "amount"); a != nil {
				if err := a.Decode(&effect.Amount); err != nil {
					b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(a), "effect amount must be a number")
					return ast.Effect{}, false
				}
			}
			return effect, true
		}
		if len(n.Content) != 2 {
			b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n), "effect must have exactly one kind")
			return ast.Effect{}, false
		}
		effect := ast.Effect{Type: ast.EffectType(normalizeScalar(n.Content[0].Value))}
		if effect.Type != ast.EffectBlock {
			if err := n.Content[1].Decode(&effect.Amount); err != nil {
				b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n.Content[1]), "%s amount must be a number", effect.Type)
				return ast.Effect{}, false
			}
		}
		return effect, true
	default:
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n), "effect must be a scalar or mapping, got %s", kindName(n.Kind))
		return ast.Effect{}, false
	}
}

func (b *builder) buildStep(n *yaml.Node) *ast.PriorityStep {
	if !b.expectKind(n, yaml.MappingNode, "ladder step") {
		return nil
	}
	b.checkKeys(n, stepKeys, "ladder step")

	var ys yamlStep
	if err := n.Decode(&ys); err != nil {
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n), "invalid ladder step: %v", err)
		return nil
	}

	step := &ast.PriorityStep{
		ID:               ys.ID,
		Label:            ys.Label,
		Enabled:          true,
		Filters:          b.buildGroup(&ys.Filters, 1),
		BaseScore:        ys.BaseScore,
		WeightPercentage: 100,
		StopOnMatch:      ys.StopOnMatch,
		Location:         b.location(n),
	}
	if ys.Order != nil {
		step.Order = *ys.Order
	}
	if ys.Enabled != nil {
		step.Enabled = *ys.Enabled
	}
	if ys.Weight != nil {
		step.WeightPercentage = *ys.Weight
	}
	for i := range ys.Modifiers {
		mn := &ys.Modifiers[i]
		if !b.expectKind(mn, yaml.MappingNode, "modifier") {
			continue
		}
		b.checkKeys(mn, modifierKeys, "modifier")
		var ym yamlModifier
		if err := mn.Decode(&ym); err != nil {
			b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(mn), "invalid modifier: %v", err)
			continue
		}
		step.Modifiers = append(step.Modifiers, ast.Modifier{
			Label:    ym.Label,
			Op:       ast.ModifierOp(normalizeScalar(ym.Op)),
			Value:    ym.Value,
			When:     b.buildGroup(&ym.When, 1),
			Location: b.location(mn),
		})
	}
	return step
}

// buildGroup builds the condition tree rooted at n. A missing node is the
// empty group, a sequence is an implicit AND, and a bare leaf is wrapped in
// an AND group.
func (b *builder) buildGroup(n *yaml.Node, depth int) *ast.ConditionGroup {
	if isEmptyNode(n) {
		return &ast.ConditionGroup{Operator: ast.OpAnd, Location: b.location(n)}
	}
	node := b.buildNode(n, depth)
	if g, ok := node.(*ast.ConditionGroup); ok {
		return g
	}
	group := &ast.ConditionGroup{Operator: ast.OpAnd, Location: b.location(n)}
	if node != nil {
		group.Children = []ast.Node{node}
	}
	return group
}

func (b *builder) buildNode(n *yaml.Node, depth int) ast.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if depth > b.maxDepth {
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n),
			"condition nesting exceeds maximum depth %d", b.maxDepth)
		return nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		return b.buildChildren(ast.OpAnd, n, depth)
	case yaml.MappingNode:
		for _, op := range []ast.GroupOperator{ast.OpAnd, ast.OpOr, ast.OpNot} {
			if children := mappingValue(n, string(op)); children != nil {
				if len(n.Content) != 2 {
					b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n),
						"%q group cannot be mixed with other keys", op)
				}
				if children.Kind == yaml.MappingNode {
					group := &ast.ConditionGroup{Operator: op, Location: b.location(n)}
					if child := b.buildNode(children, depth+1); child != nil {
						group.Children = []ast.Node{child}
					}
					return group
				}
				group := b.buildChildren(op, children, depth)
				group.Location = b.location(n)
				return group
			}
		}
		return b.buildLeaf(n)
	default:
		if isEmptyNode(n) {
			return &ast.ConditionGroup{Operator: ast.OpAnd, Location: b.location(n)}
		}
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n),
			"condition must be a mapping or a list, got %s", kindName(n.Kind))
		return nil
	}
}

func (b *builder) buildChildren(op ast.GroupOperator, n *yaml.Node, depth int) *ast.ConditionGroup {
	group := &ast.ConditionGroup{Operator: op, Location: b.location(n)}
	if isEmptyNode(n) {
		return group
	}
	if n.Kind != yaml.SequenceNode {
		b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n),
			"%q expects a list of conditions, got %s", op, kindName(n.Kind))
		return group
	}
	for _, c := range n.Content {
		if child := b.buildNode(c, depth+1); child != nil {
			group.Children = append(group.Children, child)
		}
	}
	return group
}

func (b *builder) buildLeaf(n *yaml.Node) *ast.Condition {
	leaf := &ast.Condition{Location: b.location(n)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(val),
				"condition %q must be a scalar", key.Value)
			continue
		}
		switch key.Value {
		case "teacher_type":
			leaf.TeacherType = ast.TeacherType(normalizeScalar(val.Value))
		case "lesson_type":
			leaf.LessonType = ast.LessonType(normalizeScalar(val.Value))
		case "subject":
			// Subjects are matched verbatim, only the wildcard is folded.
			if normalizeScalar(val.Value) != "" {
				leaf.Subject = val.Value
			}
		case "time_context":
			leaf.TimeContext = ast.TimeContext(normalizeScalar(val.Value))
		case "relationship":
			leaf.Relationship = ast.Relationship(normalizeScalar(val.Value))
		default:
			err := b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(key),
				"unknown condition key %q", key.Value)
			err.Suggestion = policyErrors.SuggestValue(key.Value, slices.Concat(dimensionKeys, groupKeys))
		}
	}
	return leaf
}

func (b *builder) expectKind(n *yaml.Node, kind yaml.Kind, what string) bool {
	if n.Kind == kind {
		return true
	}
	b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(n),
		"%s must be a %s, got %s", what, kindName(kind), kindName(n.Kind))
	return false
}

func (b *builder) checkKeys(n *yaml.Node, allowed []string, what string) {
	if n == nil {
		return
	}
	for _, key := range mappingKeys(n) {
		if !slices.Contains(allowed, key.Value) {
			err := b.errors.Addf(policyErrors.ErrorTypeStructural, b.location(key),
				"unknown %s key %q", what, key.Value)
			err.Suggestion = policyErrors.SuggestValue(key.Value, allowed)
		}
	}
}
