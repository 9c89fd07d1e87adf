package ast

// ModifierOp is the arithmetic a ladder modifier applies to a step's value.
type ModifierOp string

const (
	ModAdd      ModifierOp = "add"
	ModSubtract ModifierOp = "subtract"
	ModMultiply ModifierOp = "multiply"
	// ModSet overwrites the running value.
	ModSet ModifierOp = "set"
)

// Modifier adjusts a matched step's value when its own gate matches.
type Modifier struct {
	Label    string
	Op       ModifierOp `validate:"oneof=add subtract multiply set"`
	Value    float64
	When     *ConditionGroup `validate:"-"`
	Location Location        `validate:"-"`
}

// Apply returns the value after the modifier's arithmetic.
func (m Modifier) Apply(v float64) float64 {
	switch m.Op {
	case ModAdd:
		return v + m.Value
	case ModSubtract:
		return v - m.Value
	case ModMultiply:
		return v * m.Value
	case ModSet:
		return m.Value
	default:
		return v
	}
}

// PriorityStep is one weighted scoring step of the priority ladder.
type PriorityStep struct {
	ID        string `validate:"required"`
	Label     string
	Order     int
	Enabled   bool
	Filters   *ConditionGroup `validate:"-"`
	BaseScore float64
	Modifiers []Modifier `validate:"dive"`

	// WeightPercentage scales the step's final value before it is added
	// to the total.
	WeightPercentage float64 `validate:"gte=0"`

	// StopOnMatch halts the ladder once this step matches.
	StopOnMatch bool

	Location Location `validate:"-"`
}

// DisplayLabel returns Label, falling back to ID.
func (s *PriorityStep) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// Clone returns a copy of the step with its own modifier slice.
func (s *PriorityStep) Clone() *PriorityStep {
	c := *s
	c.Modifiers = append([]Modifier(nil), s.Modifiers...)
	return &c
}
