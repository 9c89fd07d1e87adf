// Package roster holds the read-only inputs of a substitution decision:
// employees, the weekly timetable, substitution history and the vacated
// slot. These are snapshots handed over by the surrounding application;
// nothing in this package writes them back.
package roster
