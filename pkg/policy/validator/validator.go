package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"relief-hq/relief/pkg/policy/ast"
	policyErrors "relief-hq/relief/pkg/policy/errors"
)

// ValidationError rejects a whole policy at load time.
type ValidationError struct {
	PolicyID string
	Errors   *policyErrors.ErrorList
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("policy %q is invalid: %v", e.PolicyID, e.Errors)
}

func (e *ValidationError) Unwrap() error {
	return e.Errors
}

// fieldNames maps struct fields to their policy file keys where the
// snake_case form differs.
var fieldNames = map[string]string{
	"WeightPercentage": "weight",
	"Op":               "op",
	"Type":             "effect",
}

// Validator checks a parsed policy. Value ranges and enums come from the
// struct tags on the ast types; cross-node checks (duplicate ids, nesting
// depth, mandatory rules) are done here.
type Validator struct {
	validate *playground.Validate
	maxDepth int
}

// New returns a validator allowing condition trees up to 16 groups deep.
func New() *Validator {
	return &Validator{
		validate: playground.New(),
		maxDepth: 16,
	}
}

// WithMaxDepth sets the maximum condition nesting depth.
func (v *Validator) WithMaxDepth(depth int) *Validator {
	v.maxDepth = depth
	return v
}

// Validate returns a *ValidationError listing every problem in policy, or nil.
func (v *Validator) Validate(policy *ast.Policy) error {
	errs := policyErrors.NewErrorList()

	v.checkStruct(errs, policy, policy.Location, "policy")
	v.checkStruct(errs, &policy.Settings, policy.Location, "settings")

	ruleIDs := make(map[string]ast.Location)
	for _, rule := range policy.GoldenRules {
		v.checkStruct(errs, rule, rule.Location, "golden rule")
		if prev, ok := ruleIDs[rule.ID]; ok && rule.ID != "" {
			errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location,
				"duplicate golden rule id %q (first defined at %s)", rule.ID, prev)
		}
		ruleIDs[rule.ID] = rule.Location

		if len(rule.Effects) == 0 {
			errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location,
				"golden rule %q has no effects", rule.ID)
		}
		if rule.Mandatory || IsMandatory(rule.ID) {
			checkMandatory(errs, rule)
		}
		v.checkTree(errs, rule.When)
		for _, exc := range rule.Exceptions {
			v.checkTree(errs, exc)
		}
	}

	stepIDs := make(map[string]ast.Location)
	for _, step := range policy.Ladder {
		v.checkStruct(errs, step, step.Location, "ladder step")
		if prev, ok := stepIDs[step.ID]; ok && step.ID != "" {
			errs.Addf(policyErrors.ErrorTypeSemantic, step.Location,
				"duplicate ladder step id %q (first defined at %s)", step.ID, prev)
		}
		stepIDs[step.ID] = step.Location

		v.checkTree(errs, step.Filters)
		for _, mod := range step.Modifiers {
			v.checkTree(errs, mod.When)
		}
	}

	if !errs.HasErrors() {
		return nil
	}
	return &ValidationError{PolicyID: policy.ID, Errors: errs}
}

func checkMandatory(errs *policyErrors.ErrorList, rule *ast.GoldenRule) {
	switch {
	case !rule.Enabled:
		errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location, "mandatory rule %q cannot be disabled", rule.ID)
	case rule.Compliance != 100:
		errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location,
			"mandatory rule %q must have compliance 100, got %g", rule.ID, rule.Compliance)
	case rule.OverrideAllowed:
		errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location, "mandatory rule %q cannot allow override", rule.ID)
	case !rule.Blocks():
		errs.Addf(policyErrors.ErrorTypeSemantic, rule.Location, "mandatory rule %q must block", rule.ID)
	}
}

// treeChecker validates every node of a condition tree.
type treeChecker struct {
	ast.BaseVisitor
	v    *Validator
	errs *policyErrors.ErrorList
}

func (c *treeChecker) VisitGroup(g *ast.ConditionGroup) error {
	c.v.checkStruct(c.errs, g, g.Location, "condition group")
	return nil
}

func (c *treeChecker) VisitCondition(cond *ast.Condition) error {
	c.v.checkStruct(c.errs, cond, cond.Location, "condition")
	return nil
}

func (v *Validator) checkTree(errs *policyErrors.ErrorList, g *ast.ConditionGroup) {
	if g == nil {
		return
	}
	if d := g.Depth(); d > v.maxDepth {
		errs.Addf(policyErrors.ErrorTypeStructural, g.Location,
			"condition nesting depth %d exceeds maximum %d", d, v.maxDepth)
		return
	}
	_ = ast.WalkGroup(g, &treeChecker{v: v, errs: errs})
}

func (v *Validator) checkStruct(errs *policyErrors.ErrorList, s any, loc ast.Location, what string) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Addf(policyErrors.ErrorTypeSemantic, loc, "%s: %v", what, err)
		return
	}
	for _, fe := range fieldErrs {
		e := &policyErrors.Error{
			Type:     policyErrors.ErrorTypeSemantic,
			Message:  fmt.Sprintf("%s: %s", what, describe(fe)),
			Location: loc,
		}
		if fe.Tag() == "oneof" {
			e.Suggestion = policyErrors.SuggestValue(fmt.Sprint(fe.Value()), strings.Fields(fe.Param()))
		}
		errs.Add(e)
	}
}

func describe(fe playground.FieldError) string {
	name := yamlName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("unknown %s %q", name, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", name, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", name, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q check", name, fe.Tag())
	}
}

// yamlName converts a Go field name to its snake_case policy key.
func yamlName(field string) string {
	if name, ok := fieldNames[field]; ok {
		return name
	}
	var sb strings.Builder
	prevLower := false
	for _, r := range field {
		if unicode.IsUpper(r) {
			if prevLower {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
			prevLower = false
		} else {
			prevLower = true
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
