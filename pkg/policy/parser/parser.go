package parser

import (
	"fmt"
	"os"

	"relief-hq/relief/pkg/policy/ast"
	policyErrors "relief-hq/relief/pkg/policy/errors"
)

// Parser reads policy files into ASTs. It performs the structural checks
// that need the YAML node tree (unknown keys, shapes, nesting depth); value
// checks are left to the validator.
type Parser struct {
	maxFileSize int64
	maxDepth    int
}

// New returns a parser with a 1MB file limit and a maximum condition
// nesting depth of 16.
func New() *Parser {
	return &Parser{
		maxFileSize: 1 << 20,
		maxDepth:    16,
	}
}

// WithMaxFileSize sets the maximum accepted file size in bytes.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum condition nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// Parse reads and parses the policy file at path.
func (p *Parser) Parse(path string) (*ast.Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &policyErrors.Error{
			Type:     policyErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("cannot access policy file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	if info.Size() > p.maxFileSize {
		return nil, &policyErrors.Error{
			Type:     policyErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("file size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &policyErrors.Error{
			Type:     policyErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("cannot read policy file: %v", err),
			Location: ast.Location{File: path},
		}
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses policy YAML held in memory. sourcePath is only used
// for locations in errors.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Policy, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &policyErrors.Error{
			Type:     policyErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	root, err := parseYAMLBytes(data)
	if err != nil {
		return nil, &policyErrors.Error{
			Type:       policyErrors.ErrorTypeSyntax,
			Message:    fmt.Sprintf("YAML parsing failed: %v", err),
			Location:   ast.Location{File: sourcePath, Line: 1, Column: 1},
			Suggestion: "check indentation, colons and quoting",
		}
	}

	b := newBuilder(sourcePath, p.maxDepth)
	policy, err := b.buildPolicy(root)
	if err != nil {
		b.errors.AttachContext(data)
		return nil, err
	}
	return policy, nil
}
