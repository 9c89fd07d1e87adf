package engine

import (
	"strings"
	"unicode"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
)

// SlotFacts are the facts about a vacated slot that do not depend on the
// candidate. They are computed once per slot and shared by every
// candidate's context.
type SlotFacts struct {
	Slot                  roster.Slot
	CoTaught              bool
	FreeInternal          int
	ExternalCount         int
	Shortage              Shortage
	SubjectTeacherRoaming bool
}

// ContextBuilder derives evaluation contexts from roster snapshots. It
// holds no per-decision state and is safe for concurrent use.
type ContextBuilder struct {
	config *EngineConfig
}

// NewContextBuilder returns a builder using cfg's thresholds.
func NewContextBuilder(cfg *EngineConfig) *ContextBuilder {
	return &ContextBuilder{config: cfg}
}

// PrepareSlot resolves the slot's class and subject and computes the
// candidate-independent facts.
func (b *ContextBuilder) PrepareSlot(policy *ast.Policy, slot roster.Slot, idx *roster.Index) *SlotFacts {
	slot = idx.ResolveSlot(slot)
	day, period := slot.Day(), slot.Period
	facts := &SlotFacts{
		Slot:     slot,
		CoTaught: idx.IsCoTaught(slot.AbsentID, slot.ClassID, day, period),
	}

	governing := strings.TrimSpace(policy.Settings.GoverningSubject)
	for i := range idx.Employees() {
		e := &idx.Employees()[i]
		if e.ID == slot.AbsentID {
			continue
		}
		if e.External {
			facts.ExternalCount++
			continue
		}

		lesson, busy := idx.LessonAt(e.ID, day, period)
		if !busy {
			if first, last, ok := window(idx.LessonsOn(e.ID, day)); ok && period >= first && period <= last {
				facts.FreeInternal++
			}
		}
		if governing != "" && busy && lesson.Kind() != roster.ActivityStay && e.TeachesSubject(governing) {
			facts.SubjectTeacherRoaming = true
		}
	}

	switch {
	case facts.FreeInternal == 0:
		facts.Shortage = ShortageSevere
	case facts.FreeInternal <= b.config.ModerateShortage:
		facts.Shortage = ShortageModerate
	default:
		facts.Shortage = ShortageNone
	}
	return facts
}

// Build derives the evaluation context for candidate in the prepared slot.
// Inputs are only read.
func (b *ContextBuilder) Build(candidate *roster.Employee, facts *SlotFacts, policy *ast.Policy, idx *roster.Index) *EvaluationContext {
	slot := facts.Slot
	day, period := slot.Day(), slot.Period
	settings := policy.Settings

	ctx := &EvaluationContext{
		CandidateID:      candidate.ID,
		TeacherType:      ast.TeacherInternal,
		IsHomeroom:       candidate.IsHomeroom(),
		ContractedHours:  candidate.Contract.Total(),
		ActualWorkload:   len(idx.LessonsOf(candidate.ID)),
		CannotCoverAlone: candidate.CannotCoverAlone,

		Date:            slot.Date,
		Day:             day,
		Period:          period,
		OwnActivity:     ast.LessonFree,
		AbsentID:        slot.AbsentID,
		VacatedSubject:  slot.Subject,
		VacatedClass:    slot.ClassID,
		VacatedCoTaught: facts.CoTaught,

		SubjectTeacherRoaming: facts.SubjectTeacherRoaming,
		InternalAvailable:     facts.FreeInternal > 0,
		ExternalAvailable:     facts.ExternalCount > 0,
		Shortage:              facts.Shortage,
		Emergency:             settings.Emergency,
	}
	if candidate.External {
		ctx.TeacherType = ast.TeacherExternal
	}

	// Working window and off-duty. External substitutes are available
	// through their own channel and are never off duty.
	today := idx.LessonsOn(candidate.ID, day)
	first, last, hasLessons := window(today)
	ctx.FirstPeriod, ctx.LastPeriod = first, last
	if ctx.IsExternal() {
		ctx.InWindow = true
	} else {
		ctx.InWindow = hasLessons && period >= first && period <= last
		ctx.OffDuty = !ctx.InWindow
	}

	occupied := make(map[int]bool)
	for _, l := range today {
		if l.Kind() == roster.ActivityStay {
			ctx.HasStayToday = true
		}
		occupied[l.Period] = true
		if l.Period == period {
			ctx.OwnActivity = activityOf(l, candidate.ID, idx)
		}
		if slot.ClassID != "" && l.ClassID == slot.ClassID && l.Period < period {
			ctx.TaughtClassToday = true
		}
	}

	// Coverage history.
	windowStart := slot.Date.AddDays(-(b.config.ImmunityWindowDays - 1))
	yesterday := slot.Date.AddDays(-1)
	for _, h := range idx.CoverageBy(candidate.ID) {
		switch {
		case h.Date.Equal(slot.Date):
			ctx.TodayCoverage++
			occupied[h.Period] = true
			if h.Period == period && h.AbsentID != slot.AbsentID {
				ctx.CoveringAbsentID = h.AbsentID
			}
		case h.Date.Equal(yesterday) && h.AbsentID == slot.AbsentID:
			ctx.ContinuityOfCare = true
		}
		if h.Date.SameWeek(slot.Date, b.config.WeekStart) {
			ctx.WeeklyCoverage++
		}
		if !h.Date.Before(windowStart.Time) && !h.Date.After(slot.Date.Time) {
			ctx.RecentCoverage++
		}
	}
	ctx.FatigueStreak = longestRun(occupied)
	ctx.FairnessDeviation = float64(ctx.WeeklyCoverage) - b.config.FairnessBaseline
	ctx.Immune = ctx.RecentCoverage > b.config.ImmunityThreshold

	// Relationships.
	ctx.SameSubject = candidate.TeachesSubject(slot.Subject)
	if !ctx.SameSubject {
		table := policy.SubjectDomains
		if len(table) == 0 {
			table = b.config.SubjectDomains
		}
		ctx.SameDomain = sharesDomain(candidate.Subjects, slot.Subject, table)
	}
	if slot.ClassID != "" {
		ctx.HomeroomOfClass = candidate.HomeroomClass == slot.ClassID
		ctx.TeachesClass = ctx.HomeroomOfClass
		grade := gradeOf(slot.ClassID)
		ctx.SameGrade = grade != "" && gradeOf(candidate.HomeroomClass) == grade
		for _, l := range idx.LessonsOf(candidate.ID) {
			if l.ClassID == slot.ClassID {
				ctx.TeachesClass = true
			}
			if grade != "" && gradeOf(l.ClassID) == grade {
				ctx.SameGrade = true
			}
		}
	}
	if gs := strings.TrimSpace(settings.GoverningSubject); gs != "" {
		ctx.GoverningSubjectMatch = candidate.TeachesSubject(gs)
	}

	ctx.StaySwap = settings.ForceHomeroomPresence && ctx.HomeroomOfClass && ctx.OwnActivity == ast.LessonStay
	return ctx
}

func activityOf(l roster.Lesson, teacherID string, idx *roster.Index) ast.LessonType {
	switch l.Kind() {
	case roster.ActivityIndividual:
		return ast.LessonIndividual
	case roster.ActivityStay:
		return ast.LessonStay
	case roster.ActivityDuty:
		return ast.LessonDuty
	default:
		if idx.IsCoTaught(teacherID, l.ClassID, l.Day, l.Period) {
			return ast.LessonCoTeaching
		}
		return ast.LessonRegular
	}
}

// window returns the first and last period of the given lessons.
func window(lessons []roster.Lesson) (first, last int, ok bool) {
	for i, l := range lessons {
		if i == 0 || l.Period < first {
			first = l.Period
		}
		if i == 0 || l.Period > last {
			last = l.Period
		}
	}
	return first, last, len(lessons) > 0
}

// longestRun returns the length of the longest run of consecutive periods.
func longestRun(periods map[int]bool) int {
	best := 0
	for p := range periods {
		if periods[p-1] {
			continue
		}
		n := 1
		for periods[p+n] {
			n++
		}
		best = max(best, n)
	}
	return best
}

// gradeOf extracts the grade level from a class id: the leading digits of
// "10-2" or "7B", or the text before the trailing section number of "ז1".
func gradeOf(classID string) string {
	s := strings.TrimSpace(classID)
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if unicode.IsDigit(runes[0]) {
		end := 0
		for end < len(runes) && unicode.IsDigit(runes[end]) {
			end++
		}
		return string(runes[:end])
	}
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsDigit(r) || r == '-' || r == ' ' || r == '/' || r == '.'
	})
}
