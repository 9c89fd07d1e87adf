package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"relief-hq/relief/pkg/policy/ast"
)

// yamlPolicy mirrors the top level of a policy file. Condition trees stay
// as raw nodes so that each leaf keeps its line and column.
type yamlPolicy struct {
	ID             string              `yaml:"id"`
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Description    string              `yaml:"description"`
	Settings       *yamlSettings       `yaml:"settings"`
	SubjectDomains map[string][]string `yaml:"subject_domains"`
	GoldenRules    []yaml.Node         `yaml:"golden_rules"`
	Ladder         []yaml.Node         `yaml:"ladder"`
}

type yamlSettings struct {
	DisableExternal       *bool    `yaml:"disable_external"`
	DisableStay           *bool    `yaml:"disable_stay"`
	DisableIndividual     *bool    `yaml:"disable_individual"`
	MaxDailyCoverage      *int     `yaml:"max_daily_coverage"`
	FairnessSensitivity   *string  `yaml:"fairness_sensitivity"`
	GoverningSubject      *string  `yaml:"governing_subject"`
	ForceHomeroomPresence *bool    `yaml:"force_homeroom_presence"`
	Emergency             *bool    `yaml:"emergency"`
	ImmunityPenalty       *float64 `yaml:"immunity_penalty"`
	ContinuityBonus       *float64 `yaml:"continuity_bonus"`
	HomeroomPriorityBonus *float64 `yaml:"homeroom_priority_bonus"`
}

type yamlRule struct {
	ID              string      `yaml:"id"`
	Name            string      `yaml:"name"`
	Description     string      `yaml:"description"`
	Enabled         *bool       `yaml:"enabled"`
	Compliance      *float64    `yaml:"compliance"`
	Severity        string      `yaml:"severity"`
	OverrideAllowed bool        `yaml:"override_allowed"`
	AuditRequired   bool        `yaml:"audit_required"`
	Mandatory       bool        `yaml:"mandatory"`
	When            yaml.Node   `yaml:"when"`
	Effects         []yaml.Node `yaml:"effects"`
	Exceptions      []yaml.Node `yaml:"exceptions"`
}

type yamlStep struct {
	ID          string      `yaml:"id"`
	Label       string      `yaml:"label"`
	Order       *int        `yaml:"order"`
	Enabled     *bool       `yaml:"enabled"`
	Filters     yaml.Node   `yaml:"filters"`
	BaseScore   float64     `yaml:"base_score"`
	Modifiers   []yaml.Node `yaml:"modifiers"`
	Weight      *float64    `yaml:"weight"`
	StopOnMatch bool        `yaml:"stop_on_match"`
}

type yamlModifier struct {
	Label string    `yaml:"label"`
	Op    string    `yaml:"op"`
	Value float64   `yaml:"value"`
	When  yaml.Node `yaml:"when"`
}

var (
	policyKeys   = []string{"id", "name", "version", "description", "settings", "subject_domains", "golden_rules", "ladder"}
	ruleKeys     = []string{"id", "name", "description", "enabled", "compliance", "severity", "override_allowed", "audit_required", "mandatory", "when", "effects", "exceptions"}
	stepKeys     = []string{"id", "label", "order", "enabled", "filters", "base_score", "modifiers", "weight", "stop_on_match"}
	modifierKeys = []string{"label", "op", "value", "when"}
	settingsKeys = []string{"disable_external", "disable_stay", "disable_individual", "max_daily_coverage",
		"fairness_sensitivity", "governing_subject", "force_homeroom_presence", "emergency",
		"immunity_penalty", "continuity_bonus", "homeroom_priority_bonus"}
	dimensionKeys = []string{"teacher_type", "lesson_type", "subject", "time_context", "relationship"}
	groupKeys     = []string{"and", "or", "not"}
)

// parseYAMLBytes decodes data into the document root node.
func parseYAMLBytes(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("policy must be a mapping, got %s", kindName(root.Kind))
	}
	return root, nil
}

// mappingKeys returns the keys of a mapping node with their nodes.
func mappingKeys(n *yaml.Node) []*yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i])
	}
	return keys
}

// mappingValue returns the value node for key, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func isEmptyNode(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "nothing"
	}
}

// normalizeScalar lower-cases an enum value and maps the wildcard spellings
// to the empty "don't care" value.
func normalizeScalar(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "any", "*":
		return ""
	}
	return strings.ToLower(v)
}

func (b *builder) location(n *yaml.Node) ast.Location {
	if n == nil {
		return ast.Location{File: b.sourcePath}
	}
	return ast.Location{File: b.sourcePath, Line: n.Line, Column: n.Column}
}
