package engine

import (
	"strings"

	"relief-hq/relief/pkg/policy/ast"
)

// Evaluate reports whether group matches ctx. It is pure and total: a nil
// or empty group matches, AND and OR short-circuit, and NOT is true unless
// every child is true.
func Evaluate(group *ast.ConditionGroup, ctx *EvaluationContext) bool {
	if group == nil {
		return true
	}
	switch group.Operator {
	case ast.OpOr:
		if len(group.Children) == 0 {
			return true
		}
		for _, child := range group.Children {
			if evaluateNode(child, ctx) {
				return true
			}
		}
		return false
	case ast.OpNot:
		if len(group.Children) == 0 {
			return true
		}
		return !allMatch(group.Children, ctx)
	default:
		return allMatch(group.Children, ctx)
	}
}

func allMatch(children []ast.Node, ctx *EvaluationContext) bool {
	for _, child := range children {
		if !evaluateNode(child, ctx) {
			return false
		}
	}
	return true
}

func evaluateNode(n ast.Node, ctx *EvaluationContext) bool {
	switch node := n.(type) {
	case *ast.ConditionGroup:
		return Evaluate(node, ctx)
	case *ast.Condition:
		return MatchCondition(node, ctx)
	default:
		return false
	}
}

// MatchCondition reports whether every constrained dimension of the leaf
// holds for ctx.
func MatchCondition(c *ast.Condition, ctx *EvaluationContext) bool {
	if c.TeacherType != "" && c.TeacherType != ctx.TeacherType {
		return false
	}
	if c.LessonType != "" && c.LessonType != ctx.EffectiveActivity() {
		return false
	}
	if c.Subject != "" && strings.TrimSpace(c.Subject) != strings.TrimSpace(ctx.VacatedSubject) {
		return false
	}
	if c.TimeContext != "" && !matchTime(c.TimeContext, ctx) {
		return false
	}
	if c.Relationship != "" && !matchRelationship(c.Relationship, ctx) {
		return false
	}
	return true
}

func matchTime(tc ast.TimeContext, ctx *EvaluationContext) bool {
	switch tc {
	case ast.TimeSchoolHours:
		return ctx.InWindow
	case ast.TimeAfterHours:
		return !ctx.InWindow
	case ast.TimeStaySameDay:
		return ctx.HasStayToday
	case ast.TimeEmergency:
		return ctx.Emergency
	default:
		return false
	}
}

func matchRelationship(rel ast.Relationship, ctx *EvaluationContext) bool {
	switch rel {
	case ast.RelSameSubject:
		return ctx.SameSubject
	case ast.RelSameDomain:
		return ctx.SameDomain
	case ast.RelSameClass:
		return ctx.TeachesClass
	case ast.RelSameGrade:
		return ctx.SameGrade
	case ast.RelHomeroomOfClass:
		return ctx.HomeroomOfClass
	case ast.RelHomeroomTeacher:
		return ctx.IsHomeroom
	case ast.RelTaughtToday:
		return ctx.TaughtClassToday
	case ast.RelGoverning:
		return ctx.GoverningSubjectMatch
	case ast.RelSubjectRoaming:
		return ctx.SubjectTeacherRoaming
	case ast.RelContinuity:
		return ctx.ContinuityOfCare
	default:
		return false
	}
}
