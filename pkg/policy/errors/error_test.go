package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relief-hq/relief/pkg/policy/ast"
)

func TestErrorList_ToError(t *testing.T) {
	el := NewErrorList()
	assert.NoError(t, el.ToError())

	el.Addf(ErrorTypeSemantic, ast.Location{}, "bad %s", "thing")
	err := el.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[semantic] bad thing")
}

func TestErrorList_Merge(t *testing.T) {
	a := NewErrorList()
	a.Addf(ErrorTypeStructural, ast.Location{}, "one")

	b := NewErrorList()
	b.Merge(a)
	b.Merge(&Error{Type: ErrorTypeIO, Message: "two"})
	b.Merge(assert.AnError)
	b.Merge(nil)

	assert.Len(t, b.Errors, 3)
	assert.True(t, b.HasErrorType(ErrorTypeIO))
	assert.False(t, b.HasErrorType(ErrorTypeSyntax))
	assert.Contains(t, b.Error(), "found 3 errors")
}

func TestExcerpt(t *testing.T) {
	src := []byte("a: 1\nb: 2\nc: 3\nd: 4\n")
	out := Excerpt(src, ast.Location{File: "p.yaml", Line: 2, Column: 4}, 1)

	assert.Contains(t, out, "-> 2 | b: 2")
	assert.Contains(t, out, "   1 | a: 1")
	assert.Contains(t, out, "   3 | c: 3")
	assert.Contains(t, out, "   ^")
	assert.Empty(t, Excerpt(src, ast.Location{Line: 99}, 1))
}

func TestSuggestValue(t *testing.T) {
	allowed := []string{"regular", "individual", "stay"}

	assert.Equal(t, `did you mean "stay"?`, SuggestValue("stya", allowed))
	assert.Equal(t, "allowed values: regular, individual, stay", SuggestValue("zzzzzzzzzz", allowed))
	assert.Empty(t, SuggestValue("x", nil))
}
