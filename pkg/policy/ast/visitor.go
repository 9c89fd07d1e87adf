package ast

// Visitor is called for every node reached by Walk.
type Visitor interface {
	VisitRule(*GoldenRule) error
	VisitStep(*PriorityStep) error
	VisitGroup(*ConditionGroup) error
	VisitCondition(*Condition) error
}

// Walk visits the policy's golden rules, their when and exception trees,
// then the ladder steps, their filters and modifier gates. It stops at the
// first error.
func Walk(policy *Policy, v Visitor) error {
	for _, rule := range policy.GoldenRules {
		if err := v.VisitRule(rule); err != nil {
			return err
		}
		if err := WalkGroup(rule.When, v); err != nil {
			return err
		}
		for _, exc := range rule.Exceptions {
			if err := WalkGroup(exc, v); err != nil {
				return err
			}
		}
	}

	for _, step := range policy.Ladder {
		if err := v.VisitStep(step); err != nil {
			return err
		}
		if err := WalkGroup(step.Filters, v); err != nil {
			return err
		}
		for _, mod := range step.Modifiers {
			if err := WalkGroup(mod.When, v); err != nil {
				return err
			}
		}
	}

	return nil
}

// WalkGroup walks a condition tree depth first. A nil group is skipped.
func WalkGroup(g *ConditionGroup, v Visitor) error {
	if g == nil {
		return nil
	}
	if err := v.VisitGroup(g); err != nil {
		return err
	}
	for _, child := range g.Children {
		switch n := child.(type) {
		case *ConditionGroup:
			if err := WalkGroup(n, v); err != nil {
				return err
			}
		case *Condition:
			if err := v.VisitCondition(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// BaseVisitor implements Visitor with no-op methods; embed it to override
// only what is needed.
type BaseVisitor struct{}

func (BaseVisitor) VisitRule(*GoldenRule) error      { return nil }
func (BaseVisitor) VisitStep(*PriorityStep) error    { return nil }
func (BaseVisitor) VisitGroup(*ConditionGroup) error { return nil }
func (BaseVisitor) VisitCondition(*Condition) error  { return nil }
