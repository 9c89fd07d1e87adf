package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/policy/validator"
	"relief-hq/relief/pkg/roster"
)

// Tuesday. Monday the 2nd is "yesterday" and in the same school week.
var (
	testDate = roster.NewDate(2026, time.March, 3)
	testDay  = roster.Weekday(time.Tuesday)
	testAt   = time.Date(2026, time.March, 3, 7, 30, 0, 0, time.UTC)
)

// testSnapshot returns a small school. Dana (math, 7a) is absent in period
// 3 on Tuesday. The other teachers are set up so that each exercises one
// path through the composer:
//
//	avi    math, free in period 3, inside his working hours
//	bella  physics, teaching 8b in period 3
//	hila   english, homeroom of 7a, stay period in period 3
//	lior   biology, only teaches periods 5-6
//	omer   history, no lessons on Tuesday
//	rina   chemistry, free in period 3
//	ext    external substitute
func testSnapshot() *roster.Snapshot {
	lesson := func(teacher string, period int, class, subject string, activity roster.ActivityType) roster.Lesson {
		return roster.Lesson{Day: testDay, Period: period, TeacherID: teacher, ClassID: class, Subject: subject, Activity: activity}
	}
	return &roster.Snapshot{
		Employees: []roster.Employee{
			{ID: "dana", Name: "Dana", Subjects: []string{"math"}, Contract: roster.ContractHours{Frontal: 20}},
			{ID: "avi", Name: "Avi", Subjects: []string{"math"}, HomeroomClass: "8a", Contract: roster.ContractHours{Frontal: 18, Stay: 4}},
			{ID: "bella", Name: "Bella", Subjects: []string{"physics"}, Contract: roster.ContractHours{Frontal: 22}},
			{ID: "hila", Name: "Hila", Subjects: []string{"english"}, HomeroomClass: "7a", Contract: roster.ContractHours{Frontal: 16, Stay: 6}},
			{ID: "lior", Name: "Lior", Subjects: []string{"biology"}},
			{ID: "omer", Name: "Omer", Subjects: []string{"history"}},
			{ID: "rina", Name: "Rina", Subjects: []string{"chemistry"}},
			{ID: "ext", Name: "Yossi", External: true},
		},
		Lessons: []roster.Lesson{
			lesson("dana", 1, "7a", "math", ""),
			lesson("dana", 2, "7b", "math", ""),
			lesson("dana", 3, "7a", "math", ""),
			lesson("dana", 4, "7b", "math", ""),

			lesson("avi", 1, "8a", "math", ""),
			lesson("avi", 2, "7a", "math", ""),
			lesson("avi", 4, "8b", "math", ""),

			lesson("bella", 2, "8b", "physics", ""),
			lesson("bella", 3, "8b", "physics", ""),
			lesson("bella", 5, "8a", "physics", ""),

			lesson("hila", 1, "7a", "english", ""),
			lesson("hila", 3, "", "", roster.ActivityStay),
			lesson("hila", 5, "7a", "english", ""),

			lesson("lior", 5, "8a", "biology", ""),
			lesson("lior", 6, "8b", "biology", ""),

			lesson("rina", 2, "9a", "chemistry", ""),
			lesson("rina", 4, "9b", "chemistry", ""),
		},
	}
}

func testSlot() roster.Slot {
	return roster.Slot{Date: testDate, Period: 3, AbsentID: "dana"}
}

// normalize runs p through the validator and fails the test on error.
func normalize(t *testing.T, p *ast.Policy) *ast.Policy {
	t.Helper()
	if p.ID == "" {
		p.ID = "test"
	}
	np, err := validator.New().Normalize(p)
	require.NoError(t, err)
	return np
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(DefaultEngineConfig(), opts...)
	require.NoError(t, err)
	return e
}

func decide(t *testing.T, e *Engine, p *ast.Policy, snap *roster.Snapshot, candidate string, rng RandomSource) *DecisionTrace {
	t.Helper()
	idx := roster.NewIndex(snap)
	c := idx.Employee(candidate)
	require.NotNil(t, c, "unknown candidate %s", candidate)
	tr, err := e.Decide(t.Context(), Request{
		Policy:    p,
		Candidate: c,
		Slot:      testSlot(),
		Index:     idx,
		Random:    rng,
		At:        testAt,
	})
	require.NoError(t, err)
	return tr
}

func boostRule(id string, compliance, amount float64, when *ast.ConditionGroup) *ast.GoldenRule {
	return &ast.GoldenRule{
		ID:         id,
		Enabled:    true,
		Compliance: compliance,
		When:       when,
		Effects:    []ast.Effect{{Type: ast.EffectBoost, Amount: amount}},
	}
}

func leaf(c ast.Condition) *ast.ConditionGroup {
	return ast.All(&c)
}

func newPolicy(rules ...*ast.GoldenRule) *ast.Policy {
	return &ast.Policy{
		ID:          "test",
		Version:     "1",
		Settings:    ast.DefaultSettings(),
		GoldenRules: rules,
	}
}
