package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"

	"relief-hq/relief/pkg/policy/ast"
)

// Registry is an immutable snapshot of normalized policies keyed by id.
// A reload builds a new Registry and swaps it in whole.
type Registry struct {
	policies map[string]*ast.Policy
	ids      []string
	version  string
	loadedAt time.Time
}

// PolicyMetadata summarizes a registered policy.
type PolicyMetadata struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Version      string `json:"version" yaml:"version"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	FilePath     string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Rules        int    `json:"rules" yaml:"rules"`
	EnabledRules int    `json:"enabled_rules" yaml:"enabled_rules"`
	Steps        int    `json:"steps" yaml:"steps"`
}

// newRegistry indexes policies, which must already be normalized.
func newRegistry(policies []*ast.Policy, loadedAt time.Time) (*Registry, error) {
	r := &Registry{
		policies: make(map[string]*ast.Policy, len(policies)),
		ids:      make([]string, 0, len(policies)),
		loadedAt: loadedAt,
	}
	for _, p := range policies {
		if prev, ok := r.policies[p.ID]; ok {
			return nil, &DuplicatePolicyError{PolicyID: p.ID, First: origin(prev), Second: origin(p)}
		}
		r.policies[p.ID] = p
		r.ids = append(r.ids, p.ID)
	}
	slices.Sort(r.ids)
	r.version = fingerprint(r)
	return r, nil
}

// Get returns the policy with id.
func (r *Registry) Get(id string) (*ast.Policy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// List returns the policies ordered by id.
func (r *Registry) List() []*ast.Policy {
	out := make([]*ast.Policy, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.policies[id]
	}
	return out
}

// IDs returns the sorted policy ids.
func (r *Registry) IDs() []string {
	return slices.Clone(r.ids)
}

// Len returns the number of policies.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Version is a short content fingerprint of the registered set.
func (r *Registry) Version() string {
	return r.version
}

// LoadedAt returns when the snapshot was built.
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}

// Metadata summarizes every policy, ordered by id.
func (r *Registry) Metadata() []PolicyMetadata {
	out := make([]PolicyMetadata, 0, len(r.ids))
	for _, p := range r.List() {
		out = append(out, PolicyMetadata{
			ID:           p.ID,
			Name:         p.Name,
			Version:      p.Version,
			Description:  p.Description,
			FilePath:     p.SourceFile,
			Rules:        len(p.GoldenRules),
			EnabledRules: len(p.EnabledRules()),
			Steps:        len(p.Ladder),
		})
	}
	return out
}

func fingerprint(r *Registry) string {
	h := sha256.New()
	for _, id := range r.ids {
		p := r.policies[id]
		h.Write([]byte(strings.Join([]string{
			p.ID,
			p.Version,
			p.SourceFile,
			strconv.Itoa(len(p.GoldenRules)),
			strconv.Itoa(len(p.Ladder)),
		}, "\x00")))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func origin(p *ast.Policy) string {
	if p.SourceFile != "" {
		return p.SourceFile
	}
	return "<memory>"
}
