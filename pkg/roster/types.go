package roster

import (
	"fmt"
	"slices"
	"strings"
)

// ActivityType is what a timetable entry has its teacher doing.
type ActivityType string

const (
	ActivityRegular    ActivityType = "regular"
	ActivityIndividual ActivityType = "individual"
	ActivityStay       ActivityType = "stay"
	ActivityDuty       ActivityType = "duty"
)

// ContractHours is the weekly breakdown of an employee's contracted hours.
type ContractHours struct {
	Frontal    int `yaml:"frontal" json:"frontal"`
	Individual int `yaml:"individual" json:"individual"`
	Stay       int `yaml:"stay" json:"stay"`
}

// Total returns the contracted weekly hours.
func (c ContractHours) Total() int {
	return c.Frontal + c.Individual + c.Stay
}

// Employee is a staff member or external substitute.
type Employee struct {
	ID               string        `yaml:"id" json:"id"`
	Name             string        `yaml:"name" json:"name"`
	Subjects         []string      `yaml:"subjects" json:"subjects"`
	Contract         ContractHours `yaml:"contract" json:"contract"`
	HomeroomClass    string        `yaml:"homeroom_class,omitempty" json:"homeroom_class,omitempty"`
	External         bool          `yaml:"external,omitempty" json:"external,omitempty"`
	CannotCoverAlone bool          `yaml:"cannot_cover_alone,omitempty" json:"cannot_cover_alone,omitempty"`
}

// IsHomeroom reports whether the employee is the homeroom teacher of any class.
func (e *Employee) IsHomeroom() bool {
	return e.HomeroomClass != ""
}

// TeachesSubject reports whether subject is on the employee's list. The
// comparison is exact after trimming surrounding spaces.
func (e *Employee) TeachesSubject(subject string) bool {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return false
	}
	return slices.ContainsFunc(e.Subjects, func(s string) bool {
		return strings.TrimSpace(s) == subject
	})
}

// Lesson is one weekly timetable entry.
type Lesson struct {
	Day       Weekday      `yaml:"day" json:"day"`
	Period    int          `yaml:"period" json:"period"`
	TeacherID string       `yaml:"teacher" json:"teacher"`
	ClassID   string       `yaml:"class,omitempty" json:"class,omitempty"`
	Subject   string       `yaml:"subject,omitempty" json:"subject,omitempty"`
	Activity  ActivityType `yaml:"activity,omitempty" json:"activity,omitempty"`
}

// Kind returns the lesson's activity, treating an empty value as regular.
func (l Lesson) Kind() ActivityType {
	if l.Activity == "" {
		return ActivityRegular
	}
	return l.Activity
}

// Substitution is a historical coverage assignment.
type Substitution struct {
	Date         Date   `yaml:"date" json:"date"`
	Period       int    `yaml:"period" json:"period"`
	AbsentID     string `yaml:"absent" json:"absent"`
	SubstituteID string `yaml:"substitute" json:"substitute"`
	ClassID      string `yaml:"class,omitempty" json:"class,omitempty"`
}

// Slot is a vacated period that needs cover.
type Slot struct {
	Date     Date   `yaml:"date" json:"date"`
	Period   int    `yaml:"period" json:"period"`
	AbsentID string `yaml:"absent" json:"absent"`
	ClassID  string `yaml:"class,omitempty" json:"class,omitempty"`
	Subject  string `yaml:"subject,omitempty" json:"subject,omitempty"`
}

// Day returns the weekday of the slot.
func (s Slot) Day() Weekday {
	return Weekday(s.Date.Weekday())
}

// Key identifies the slot, e.g. "2026-03-02/p3/t-levi".
func (s Slot) Key() string {
	return fmt.Sprintf("%s/p%d/%s", s.Date, s.Period, s.AbsentID)
}

// Snapshot is the read-only roster state a decision is made against.
type Snapshot struct {
	Employees []Employee     `yaml:"staff" json:"staff"`
	Lessons   []Lesson       `yaml:"lessons" json:"lessons"`
	History   []Substitution `yaml:"history" json:"history"`
}
