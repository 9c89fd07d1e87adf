package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a self-contained decision input used by the command line
// tools: a roster snapshot plus the slots to cover.
type Scenario struct {
	Snapshot `yaml:",inline"`

	Policy string `yaml:"policy,omitempty"`
	Seed   uint64 `yaml:"seed,omitempty"`
	Slots  []Slot `yaml:"slots"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML and checks references between its
// sections.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Check(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Check verifies that every lesson, history record and slot refers to a
// known employee and that employee ids are unique.
func (sc *Scenario) Check() error {
	seen := make(map[string]bool, len(sc.Employees))
	for _, e := range sc.Employees {
		if e.ID == "" {
			return fmt.Errorf("employee without id")
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate employee id %q", e.ID)
		}
		seen[e.ID] = true
	}
	for i, l := range sc.Lessons {
		if !seen[l.TeacherID] {
			return fmt.Errorf("lesson %d: unknown teacher %q", i, l.TeacherID)
		}
		if l.Period <= 0 {
			return fmt.Errorf("lesson %d: period must be positive", i)
		}
	}
	for i, h := range sc.History {
		if !seen[h.SubstituteID] {
			return fmt.Errorf("history %d: unknown substitute %q", i, h.SubstituteID)
		}
	}
	for i, s := range sc.Slots {
		if !seen[s.AbsentID] {
			return fmt.Errorf("slot %d: unknown absent teacher %q", i, s.AbsentID)
		}
		if s.Date.IsZero() {
			return fmt.Errorf("slot %d: date is required", i)
		}
	}
	return nil
}

// Candidates returns every employee except the absentee.
func (sc *Scenario) Candidates(absentID string) []Employee {
	out := make([]Employee, 0, len(sc.Employees))
	for _, e := range sc.Employees {
		if e.ID != absentID {
			out = append(out, e)
		}
	}
	return out
}
