package ast

// Severity tags a golden rule for audit and display.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// EffectType is what a fired golden rule does to the candidate.
type EffectType string

const (
	// EffectBlock rejects the candidate and stops all further evaluation.
	EffectBlock EffectType = "block"
	// EffectBoost adds Amount to the running score.
	EffectBoost EffectType = "boost"
	// EffectPenalize subtracts Amount from the running score.
	EffectPenalize EffectType = "penalize"
)

// Effect is a single consequence of a fired golden rule.
type Effect struct {
	Type   EffectType `validate:"oneof=block boost penalize" json:"type"`
	Amount float64    `validate:"gte=0" json:"amount,omitempty"`
}

// Delta returns the signed score change of the effect. Block has none.
func (e Effect) Delta() float64 {
	switch e.Type {
	case EffectBoost:
		return e.Amount
	case EffectPenalize:
		return -e.Amount
	default:
		return 0
	}
}

// GoldenRule is a policy constraint enforced with a compliance probability.
type GoldenRule struct {
	ID          string `validate:"required"`
	Name        string
	Description string
	Enabled     bool

	// Compliance is the percentage chance (0-100) that the rule is
	// enforced each time When matches.
	Compliance float64 `validate:"gte=0,lte=100"`

	Severity        Severity `validate:"omitempty,oneof=critical high medium low"`
	OverrideAllowed bool
	AuditRequired   bool

	// Mandatory marks baseline rules that must stay at full compliance.
	Mandatory bool

	When       *ConditionGroup   `validate:"-"`
	Effects    []Effect          `validate:"dive"`
	Exceptions []*ConditionGroup `validate:"-"`

	Location Location `validate:"-"`
}

// DisplayName returns Name, falling back to ID.
func (r *GoldenRule) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// Blocks reports whether any effect of the rule is a block.
func (r *GoldenRule) Blocks() bool {
	for _, e := range r.Effects {
		if e.Type == EffectBlock {
			return true
		}
	}
	return false
}

// Clone returns a copy of the rule. Condition trees are shared since they
// are never mutated after load.
func (r *GoldenRule) Clone() *GoldenRule {
	c := *r
	c.Effects = append([]Effect(nil), r.Effects...)
	c.Exceptions = append([]*ConditionGroup(nil), r.Exceptions...)
	return &c
}
