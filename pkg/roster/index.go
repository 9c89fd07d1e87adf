package roster

import "slices"

type teacherDay struct {
	teacherID string
	day       Weekday
}

type periodKey struct {
	day    Weekday
	period int
}

// Index is a read-only lookup structure over a Snapshot. Build it once per
// batch and share it between concurrent decisions.
type Index struct {
	snapshot  *Snapshot
	employees map[string]*Employee
	byDay     map[teacherDay][]Lesson
	byPeriod  map[periodKey][]Lesson
	byTeacher map[string][]Lesson
	coverage  map[string][]Substitution
}

// NewIndex indexes s. The snapshot must not be modified afterwards.
func NewIndex(s *Snapshot) *Index {
	idx := &Index{
		snapshot:  s,
		employees: make(map[string]*Employee, len(s.Employees)),
		byDay:     make(map[teacherDay][]Lesson),
		byPeriod:  make(map[periodKey][]Lesson),
		byTeacher: make(map[string][]Lesson),
		coverage:  make(map[string][]Substitution),
	}
	for i := range s.Employees {
		e := &s.Employees[i]
		idx.employees[e.ID] = e
	}
	for _, l := range s.Lessons {
		td := teacherDay{l.TeacherID, l.Day}
		idx.byDay[td] = append(idx.byDay[td], l)
		pk := periodKey{l.Day, l.Period}
		idx.byPeriod[pk] = append(idx.byPeriod[pk], l)
		idx.byTeacher[l.TeacherID] = append(idx.byTeacher[l.TeacherID], l)
	}
	for _, h := range s.History {
		idx.coverage[h.SubstituteID] = append(idx.coverage[h.SubstituteID], h)
	}
	for k := range idx.byDay {
		slices.SortFunc(idx.byDay[k], func(a, b Lesson) int { return a.Period - b.Period })
	}
	return idx
}

// Snapshot returns the indexed snapshot.
func (idx *Index) Snapshot() *Snapshot {
	return idx.snapshot
}

// Employee returns the employee with the given id, or nil.
func (idx *Index) Employee(id string) *Employee {
	return idx.employees[id]
}

// Employees returns every employee in snapshot order.
func (idx *Index) Employees() []Employee {
	return idx.snapshot.Employees
}

// LessonsOn returns the teacher's lessons on day sorted by period.
func (idx *Index) LessonsOn(teacherID string, day Weekday) []Lesson {
	return idx.byDay[teacherDay{teacherID, day}]
}

// LessonsOf returns every lesson of the teacher in the week.
func (idx *Index) LessonsOf(teacherID string) []Lesson {
	return idx.byTeacher[teacherID]
}

// LessonAt returns the teacher's lesson in the given period, if any.
func (idx *Index) LessonAt(teacherID string, day Weekday, period int) (Lesson, bool) {
	for _, l := range idx.byDay[teacherDay{teacherID, day}] {
		if l.Period == period {
			return l, true
		}
	}
	return Lesson{}, false
}

// LessonsAt returns every lesson held in the given period.
func (idx *Index) LessonsAt(day Weekday, period int) []Lesson {
	return idx.byPeriod[periodKey{day, period}]
}

// IsCoTaught reports whether another teacher has a lesson with the same
// class in the same period as teacherID.
func (idx *Index) IsCoTaught(teacherID, classID string, day Weekday, period int) bool {
	if classID == "" {
		return false
	}
	for _, l := range idx.byPeriod[periodKey{day, period}] {
		if l.TeacherID != teacherID && l.ClassID == classID {
			return true
		}
	}
	return false
}

// CoverageBy returns the history records where id was the substitute.
func (idx *Index) CoverageBy(id string) []Substitution {
	return idx.coverage[id]
}

// ResolveSlot fills a slot's class and subject from the absentee's own
// lesson when they were left empty.
func (idx *Index) ResolveSlot(s Slot) Slot {
	if s.ClassID != "" && s.Subject != "" {
		return s
	}
	if l, ok := idx.LessonAt(s.AbsentID, s.Day(), s.Period); ok {
		if s.ClassID == "" {
			s.ClassID = l.ClassID
		}
		if s.Subject == "" {
			s.Subject = l.Subject
		}
	}
	return s
}
