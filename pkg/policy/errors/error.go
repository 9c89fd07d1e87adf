package errors

import (
	"fmt"
	"strings"

	"relief-hq/relief/pkg/policy/ast"
)

// ErrorType groups load-time errors by the stage that found them.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // malformed YAML
	ErrorTypeStructural ErrorType = "structural" // wrong shape or unknown keys
	ErrorTypeSemantic   ErrorType = "semantic"   // bad values, duplicates, weakened mandatory rules
	ErrorTypeIO         ErrorType = "io"
)

// Error is a policy load error pinned to a source location.
type Error struct {
	Type       ErrorType
	Message    string
	Location   ast.Location
	Context    string // excerpt of the surrounding source lines
	Suggestion string
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Type, e.Message)
	if e.Location.IsValid() {
		fmt.Fprintf(&sb, "\n  --> %s", e.Location)
	}
	if e.Context != "" {
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(e.Context, "\n"))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "\n  = suggestion: %s", e.Suggestion)
	}
	return sb.String()
}

// ErrorList accumulates errors so that a policy file reports every problem
// at once.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList returns an empty list.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add appends err.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// Addf appends a new error with a formatted message.
func (el *ErrorList) Addf(errType ErrorType, loc ast.Location, format string, args ...any) *Error {
	err := &Error{Type: errType, Message: fmt.Sprintf(format, args...), Location: loc}
	el.Add(err)
	return err
}

// Merge appends every error of other. Non-list errors are wrapped as
// semantic errors without a location.
func (el *ErrorList) Merge(other error) {
	if other == nil {
		return
	}
	switch e := other.(type) {
	case *ErrorList:
		el.Errors = append(el.Errors, e.Errors...)
	case *Error:
		el.Add(e)
	default:
		el.Add(&Error{Type: ErrorTypeSemantic, Message: other.Error()})
	}
}

// HasErrors reports whether anything was recorded.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// HasErrorType reports whether an error of the given type was recorded.
func (el *ErrorList) HasErrorType(t ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == t {
			return true
		}
	}
	return false
}

func (el *ErrorList) Error() string {
	if len(el.Errors) == 1 {
		return el.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d errors:", len(el.Errors))
	for i, err := range el.Errors {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, err.Error())
	}
	return sb.String()
}

// ToError returns nil for an empty list and the list otherwise.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// AttachContext fills in Context for every error whose location has a line
// inside source.
func (el *ErrorList) AttachContext(source []byte) {
	for _, err := range el.Errors {
		if err.Context == "" && err.Location.Line > 0 {
			err.Context = Excerpt(source, err.Location, 2)
		}
	}
}

// Excerpt renders the lines around loc with the offending line marked.
func Excerpt(source []byte, loc ast.Location, around int) string {
	lines := strings.Split(string(source), "\n")
	idx := loc.Line - 1
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	start := max(idx-around, 0)
	end := min(idx+around, len(lines)-1)
	width := len(fmt.Sprint(end + 1))

	var sb strings.Builder
	for i := start; i <= end; i++ {
		marker := "  "
		if i == idx {
			marker = "->"
		}
		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, i+1, lines[i])
		if i == idx && loc.Column > 0 {
			fmt.Fprintf(&sb, "   %*s | %s^\n", width, "", strings.Repeat(" ", loc.Column-1))
		}
	}
	return sb.String()
}
