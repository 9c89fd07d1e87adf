package engine

import (
	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
)

// Shortage is a coarse measure of how many internal teachers are free in
// the vacated period.
type Shortage string

const (
	ShortageNone     Shortage = "none"
	ShortageModerate Shortage = "moderate"
	ShortageSevere   Shortage = "severe"
)

// EvaluationContext is the derived fact set for one (candidate, slot)
// pair. It is built fresh for every decision and never modified.
type EvaluationContext struct {
	CandidateID string

	// Teacher facts.
	TeacherType       ast.TeacherType
	IsHomeroom        bool
	ContractedHours   int
	ActualWorkload    int // lessons in the weekly timetable
	TodayCoverage     int
	WeeklyCoverage    int
	RecentCoverage    int // coverages inside the immunity window
	FairnessDeviation float64
	FatigueStreak     int
	OffDuty           bool
	Immune            bool
	CannotCoverAlone  bool

	// FirstPeriod and LastPeriod bound the candidate's scheduled activity
	// today. Both are zero when the candidate has no activity.
	FirstPeriod int
	LastPeriod  int

	// Slot facts.
	Date            roster.Date
	Day             roster.Weekday
	Period          int
	OwnActivity     ast.LessonType
	StaySwap        bool // a homeroom teacher's stay period swapped away to be with the class
	HasStayToday    bool
	InWindow        bool // the period is inside the candidate's working window
	AbsentID        string
	VacatedSubject  string
	VacatedClass    string
	VacatedCoTaught bool

	// CoveringAbsentID is set when the candidate is already assigned to
	// cover another absent teacher in the same period.
	CoveringAbsentID string

	// Relationship facts.
	SameSubject           bool
	SameDomain            bool // only set when SameSubject is false
	TeachesClass          bool
	SameGrade             bool
	HomeroomOfClass       bool
	TaughtClassToday      bool
	GoverningSubjectMatch bool
	SubjectTeacherRoaming bool
	ContinuityOfCare      bool

	// Policy facts.
	InternalAvailable bool
	ExternalAvailable bool
	Shortage          Shortage
	Emergency         bool
}

// EffectiveActivity is the candidate's activity as seen by conditions. A
// swapped stay period counts as free.
func (c *EvaluationContext) EffectiveActivity() ast.LessonType {
	if c.StaySwap {
		return ast.LessonFree
	}
	return c.OwnActivity
}

// IsExternal reports whether the candidate is an external substitute.
func (c *EvaluationContext) IsExternal() bool {
	return c.TeacherType == ast.TeacherExternal
}

// Metrics is the snapshot of key context facts kept on a decision trace.
type Metrics struct {
	ActualWorkload    int      `json:"actual_workload"`
	TodayCoverage     int      `json:"today_coverage"`
	WeeklyCoverage    int      `json:"weekly_coverage"`
	FatigueStreak     int      `json:"fatigue_streak"`
	FairnessDeviation float64  `json:"fairness_deviation"`
	Immune            bool     `json:"immune"`
	OffDuty           bool     `json:"off_duty"`
	SameSubject       bool     `json:"same_subject"`
	DomainMatch       bool     `json:"domain_match"`
	Shortage          Shortage `json:"shortage"`
}

// Snapshot returns the metrics recorded on a trace.
func (c *EvaluationContext) Snapshot() Metrics {
	return Metrics{
		ActualWorkload:    c.ActualWorkload,
		TodayCoverage:     c.TodayCoverage,
		WeeklyCoverage:    c.WeeklyCoverage,
		FatigueStreak:     c.FatigueStreak,
		FairnessDeviation: c.FairnessDeviation,
		Immune:            c.Immune,
		OffDuty:           c.OffDuty,
		SameSubject:       c.SameSubject,
		DomainMatch:       c.SameDomain,
		Shortage:          c.Shortage,
	}
}
