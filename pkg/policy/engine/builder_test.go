package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
)

func buildContext(t *testing.T, snap *roster.Snapshot, policy *ast.Policy, candidate string) *EvaluationContext {
	t.Helper()
	b := NewContextBuilder(DefaultEngineConfig())
	idx := roster.NewIndex(snap)
	c := idx.Employee(candidate)
	require.NotNil(t, c)
	return b.Build(c, b.PrepareSlot(policy, testSlot(), idx), policy, idx)
}

func TestPrepareSlot(t *testing.T) {
	b := NewContextBuilder(DefaultEngineConfig())
	idx := roster.NewIndex(testSnapshot())
	policy := newPolicy()

	facts := b.PrepareSlot(policy, testSlot(), idx)
	assert.Equal(t, "7a", facts.Slot.ClassID)
	assert.Equal(t, "math", facts.Slot.Subject)
	assert.False(t, facts.CoTaught)
	// avi and rina are free inside their hours; hila is in a stay period.
	assert.Equal(t, 2, facts.FreeInternal)
	assert.Equal(t, 1, facts.ExternalCount)
	assert.Equal(t, ShortageModerate, facts.Shortage)
	assert.False(t, facts.SubjectTeacherRoaming)

	policy.Settings.GoverningSubject = "physics"
	facts = b.PrepareSlot(policy, testSlot(), idx)
	assert.True(t, facts.SubjectTeacherRoaming, "bella teaches physics in period 3")
}

func TestPrepareSlot_Shortage(t *testing.T) {
	b := NewContextBuilder(DefaultEngineConfig())
	snap := testSnapshot()
	snap.Lessons = append(snap.Lessons,
		roster.Lesson{Day: testDay, Period: 3, TeacherID: "avi", ClassID: "9a", Subject: "math"},
		roster.Lesson{Day: testDay, Period: 3, TeacherID: "rina", ClassID: "9b", Subject: "chemistry"},
	)
	facts := b.PrepareSlot(newPolicy(), testSlot(), roster.NewIndex(snap))
	assert.Zero(t, facts.FreeInternal)
	assert.Equal(t, ShortageSevere, facts.Shortage)
}

func TestBuild_TeacherFacts(t *testing.T) {
	snap := testSnapshot()
	yesterday := testDate.AddDays(-1)
	snap.History = []roster.Substitution{
		{Date: yesterday, Period: 3, AbsentID: "dana", SubstituteID: "avi"},
		{Date: testDate, Period: 2, AbsentID: "omer", SubstituteID: "avi"},
		{Date: testDate.AddDays(-7), Period: 1, AbsentID: "omer", SubstituteID: "avi"},
	}
	ctx := buildContext(t, snap, newPolicy(), "avi")

	assert.Equal(t, ast.TeacherInternal, ctx.TeacherType)
	assert.True(t, ctx.IsHomeroom)
	assert.Equal(t, 22, ctx.ContractedHours)
	assert.Equal(t, 3, ctx.ActualWorkload)
	assert.Equal(t, 1, ctx.TodayCoverage)
	assert.Equal(t, 2, ctx.WeeklyCoverage)
	assert.Equal(t, 2, ctx.RecentCoverage)
	assert.InDelta(t, 0, ctx.FairnessDeviation, 1e-9)
	assert.False(t, ctx.Immune)
	assert.True(t, ctx.ContinuityOfCare)

	assert.Equal(t, 1, ctx.FirstPeriod)
	assert.Equal(t, 4, ctx.LastPeriod)
	assert.True(t, ctx.InWindow)
	assert.False(t, ctx.OffDuty)
	assert.Equal(t, ast.LessonFree, ctx.OwnActivity)
	// Periods 1, 2 (lesson and coverage) and 4; the vacated period is not
	// counted.
	assert.Equal(t, 2, ctx.FatigueStreak)
}

func TestBuild_WeekStart(t *testing.T) {
	sunday := roster.NewDate(2026, time.March, 8)
	snap := testSnapshot()
	for d := 0; d < 4; d++ {
		snap.History = append(snap.History, roster.Substitution{
			Date: roster.NewDate(2026, time.March, 2+d), Period: 1, AbsentID: "omer", SubstituteID: "avi",
		})
	}
	snap.Lessons = append(snap.Lessons,
		roster.Lesson{Day: roster.Weekday(time.Sunday), Period: 2, TeacherID: "dana", ClassID: "7a", Subject: "math"},
		roster.Lesson{Day: roster.Weekday(time.Sunday), Period: 1, TeacherID: "avi", ClassID: "8a", Subject: "math"},
		roster.Lesson{Day: roster.Weekday(time.Sunday), Period: 3, TeacherID: "avi", ClassID: "8b", Subject: "math"},
	)
	slot := roster.Slot{Date: sunday, Period: 2, AbsentID: "dana"}

	tests := []struct {
		name      string
		start     time.Weekday
		weekly    int
		deviation float64
	}{
		{name: "sunday starts a new week", start: time.Sunday, weekly: 0, deviation: -2},
		{name: "monday week includes the prior days", start: time.Monday, weekly: 4, deviation: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewContextBuilder(DefaultEngineConfig().WithWeekStart(roster.Weekday(tt.start)))
			idx := roster.NewIndex(snap)
			policy := newPolicy()
			ctx := b.Build(idx.Employee("avi"), b.PrepareSlot(policy, slot, idx), policy, idx)
			assert.Equal(t, tt.weekly, ctx.WeeklyCoverage)
			assert.InDelta(t, tt.deviation, ctx.FairnessDeviation, 1e-9)
		})
	}
}

func TestBuild_AlreadyCovering(t *testing.T) {
	snap := testSnapshot()
	snap.History = []roster.Substitution{
		{Date: testDate, Period: 3, AbsentID: "bella", SubstituteID: "avi"},
		{Date: testDate.AddDays(-7), Period: 3, AbsentID: "lior", SubstituteID: "avi"},
	}
	ctx := buildContext(t, snap, newPolicy(), "avi")
	assert.Equal(t, "bella", ctx.CoveringAbsentID)
	assert.Equal(t, 1, ctx.TodayCoverage)
	// Lessons in 1, 2 and 4 join the coverage in 3.
	assert.Equal(t, 4, ctx.FatigueStreak)

	ctx = buildContext(t, snap, newPolicy(), "rina")
	assert.Empty(t, ctx.CoveringAbsentID)
}

func TestBuild_StayCountsTowardFatigue(t *testing.T) {
	snap := testSnapshot()
	snap.Lessons = append(snap.Lessons,
		roster.Lesson{Day: testDay, Period: 2, TeacherID: "hila", ClassID: "7b", Subject: "english"},
		roster.Lesson{Day: testDay, Period: 4, TeacherID: "hila", Activity: roster.ActivityStay},
	)
	ctx := buildContext(t, snap, newPolicy(), "hila")
	assert.True(t, ctx.HasStayToday)
	// Lessons in 1 and 2, stay periods in 3 and 4, lesson in 5.
	assert.Equal(t, 5, ctx.FatigueStreak)
}

func TestBuild_Relationships(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		check     func(t *testing.T, ctx *EvaluationContext)
	}{
		{
			name:      "same subject teacher of the class",
			candidate: "avi",
			check: func(t *testing.T, ctx *EvaluationContext) {
				assert.True(t, ctx.SameSubject)
				assert.False(t, ctx.SameDomain, "domain is only set without a subject match")
				assert.True(t, ctx.TeachesClass)
				assert.True(t, ctx.TaughtClassToday)
				assert.True(t, ctx.SameGrade)
				assert.False(t, ctx.HomeroomOfClass)
			},
		},
		{
			name:      "homeroom teacher in a stay period",
			candidate: "hila",
			check: func(t *testing.T, ctx *EvaluationContext) {
				assert.True(t, ctx.HomeroomOfClass)
				assert.Equal(t, ast.LessonStay, ctx.OwnActivity)
				assert.True(t, ctx.HasStayToday)
				assert.False(t, ctx.StaySwap)
				assert.Equal(t, ast.LessonStay, ctx.EffectiveActivity())
			},
		},
		{
			name:      "teaching another class",
			candidate: "bella",
			check: func(t *testing.T, ctx *EvaluationContext) {
				assert.Equal(t, ast.LessonRegular, ctx.OwnActivity)
				assert.False(t, ctx.SameSubject)
				assert.False(t, ctx.SameGrade)
			},
		},
		{
			name:      "outside working hours",
			candidate: "lior",
			check: func(t *testing.T, ctx *EvaluationContext) {
				assert.True(t, ctx.OffDuty)
				assert.False(t, ctx.InWindow)
			},
		},
		{
			name:      "external",
			candidate: "ext",
			check: func(t *testing.T, ctx *EvaluationContext) {
				assert.True(t, ctx.IsExternal())
				assert.True(t, ctx.InWindow)
				assert.False(t, ctx.OffDuty)
				assert.Equal(t, ast.LessonFree, ctx.OwnActivity)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, buildContext(t, testSnapshot(), newPolicy(), tt.candidate))
		})
	}
}

func TestBuild_StaySwap(t *testing.T) {
	p := newPolicy()
	p.Settings.ForceHomeroomPresence = true
	ctx := buildContext(t, testSnapshot(), p, "hila")

	assert.True(t, ctx.StaySwap)
	assert.Equal(t, ast.LessonFree, ctx.EffectiveActivity())
}

func TestBuild_SameDomain(t *testing.T) {
	snap := testSnapshot()
	// Rina (chemistry) and a physics slot share the sciences domain.
	snap.Lessons[2].Subject = "physics"

	ctx := buildContext(t, snap, newPolicy(), "rina")
	assert.False(t, ctx.SameSubject)
	assert.True(t, ctx.SameDomain)

	p := newPolicy()
	p.SubjectDomains = ast.SubjectDomains{"lab": {"physics"}}
	ctx = buildContext(t, snap, p, "rina")
	assert.False(t, ctx.SameDomain, "policy domains replace the defaults")
}

func TestBuild_CoTeaching(t *testing.T) {
	snap := testSnapshot()
	snap.Lessons = append(snap.Lessons, roster.Lesson{Day: testDay, Period: 3, TeacherID: "rina", ClassID: "8b", Subject: "chemistry"})

	ctx := buildContext(t, snap, newPolicy(), "rina")
	assert.Equal(t, ast.LessonCoTeaching, ctx.OwnActivity, "bella is also in 8b")
}

func TestGradeOf(t *testing.T) {
	tests := map[string]string{
		"7a":   "7",
		"10-2": "10",
		"ז1":   "ז",
		"ט-3":  "ט",
		"":     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, gradeOf(in), in)
	}
}

func TestLongestRun(t *testing.T) {
	assert.Zero(t, longestRun(nil))
	assert.Equal(t, 3, longestRun(map[int]bool{1: true, 2: true, 3: true, 5: true}))
	assert.Equal(t, 1, longestRun(map[int]bool{2: true, 4: true}))
}
