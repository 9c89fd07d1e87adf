package ast

// TeacherType distinguishes staff employed by the school from outside substitutes.
type TeacherType string

const (
	TeacherInternal TeacherType = "internal"
	TeacherExternal TeacherType = "external"
)

// LessonType is the candidate's own activity in the vacated period.
type LessonType string

const (
	LessonRegular    LessonType = "regular"
	LessonIndividual LessonType = "individual"
	LessonStay       LessonType = "stay"
	LessonCoTeaching LessonType = "co_teaching"
	LessonDuty       LessonType = "duty"
	LessonFree       LessonType = "free"
)

// TimeContext describes when the vacated period falls relative to the
// candidate's day and the policy.
type TimeContext string

const (
	TimeSchoolHours TimeContext = "school_hours"
	TimeStaySameDay TimeContext = "stay_same_day"
	TimeAfterHours  TimeContext = "after_hours"
	TimeEmergency   TimeContext = "emergency"
)

// Relationship links the candidate to the absentee, the vacated class or the
// day's governing subject.
type Relationship string

const (
	RelSameSubject     Relationship = "same_subject"
	RelSameDomain      Relationship = "same_domain"
	RelSameClass       Relationship = "same_class"
	RelSameGrade       Relationship = "same_grade"
	RelHomeroomOfClass Relationship = "homeroom_of_class"
	RelHomeroomTeacher Relationship = "homeroom_teacher"
	RelTaughtToday     Relationship = "taught_class_today"
	RelGoverning       Relationship = "governing_subject"
	RelSubjectRoaming  Relationship = "subject_teacher_roaming"
	RelContinuity      Relationship = "continuity_of_care"
)

// GroupOperator combines the children of a ConditionGroup.
type GroupOperator string

const (
	OpAnd GroupOperator = "and"
	OpOr  GroupOperator = "or"
	// OpNot is true unless every child is true.
	OpNot GroupOperator = "not"
)

// Node is either a *Condition or a *ConditionGroup.
type Node interface {
	node()
	Loc() Location
}

// Condition is a leaf with five independent match dimensions. An empty
// dimension does not constrain the match, so a leaf with every dimension
// empty always matches.
type Condition struct {
	TeacherType  TeacherType `validate:"omitempty,oneof=internal external"`
	LessonType   LessonType  `validate:"omitempty,oneof=regular individual stay co_teaching duty free"`
	Subject      string
	TimeContext  TimeContext  `validate:"omitempty,oneof=school_hours stay_same_day after_hours emergency"`
	Relationship Relationship `validate:"omitempty,oneof=same_subject same_domain same_class same_grade homeroom_of_class homeroom_teacher taught_class_today governing_subject subject_teacher_roaming continuity_of_care"`
	Location     Location     `validate:"-"`
}

func (*Condition) node() {}

// Loc returns the source location of the leaf.
func (c *Condition) Loc() Location { return c.Location }

// IsWildcard reports whether no dimension is constrained.
func (c *Condition) IsWildcard() bool {
	return c.TeacherType == "" && c.LessonType == "" && c.Subject == "" &&
		c.TimeContext == "" && c.Relationship == ""
}

// ConditionGroup combines child nodes with an operator. Children may nest
// arbitrarily; an empty group always matches.
type ConditionGroup struct {
	Operator GroupOperator `validate:"oneof=and or not"`
	Children []Node        `validate:"-"`
	Location Location      `validate:"-"`
}

func (*ConditionGroup) node() {}

// Loc returns the source location of the group.
func (g *ConditionGroup) Loc() Location { return g.Location }

// IsEmpty reports whether the group has no children.
func (g *ConditionGroup) IsEmpty() bool {
	return g == nil || len(g.Children) == 0
}

// Depth returns the nesting depth of the tree rooted at g. A group of
// leaves has depth 1.
func (g *ConditionGroup) Depth() int {
	if g == nil {
		return 0
	}
	deepest := 0
	for _, child := range g.Children {
		if sub, ok := child.(*ConditionGroup); ok {
			if d := sub.Depth(); d > deepest {
				deepest = d
			}
		}
	}
	return deepest + 1
}

// All builds an AND group.
func All(children ...Node) *ConditionGroup {
	return &ConditionGroup{Operator: OpAnd, Children: children}
}

// Any builds an OR group.
func Any(children ...Node) *ConditionGroup {
	return &ConditionGroup{Operator: OpOr, Children: children}
}

// Not builds a NOT group over children.
func Not(children ...Node) *ConditionGroup {
	return &ConditionGroup{Operator: OpNot, Children: children}
}

// Always returns an empty AND group, which matches every context.
func Always() *ConditionGroup {
	return &ConditionGroup{Operator: OpAnd}
}
