package ast

// FairnessSensitivity selects how hard the composer dampens the score of
// candidates who already cover more than the baseline.
type FairnessSensitivity string

const (
	FairnessStrict   FairnessSensitivity = "strict"
	FairnessBalanced FairnessSensitivity = "balanced"
	FairnessFlexible FairnessSensitivity = "flexible"
)

// Settings is the policy's settings block. Boolean switches become hard
// filters in the composer.
type Settings struct {
	DisableExternal       bool
	DisableStay           bool
	DisableIndividual     bool
	MaxDailyCoverage      int                 `validate:"gte=0"`
	FairnessSensitivity   FairnessSensitivity `validate:"omitempty,oneof=strict balanced flexible"`
	GoverningSubject      string
	ForceHomeroomPresence bool

	// Emergency marks a relaxed policy used during a declared emergency.
	// Temporary immunity is not applied under it.
	Emergency bool

	ImmunityPenalty       float64 `validate:"gte=0"`
	ContinuityBonus       float64 `validate:"gte=0"`
	HomeroomPriorityBonus float64 `validate:"gte=0"`
}

// Default amounts for the composer's built-in contributions.
const (
	DefaultImmunityPenalty       = 20
	DefaultContinuityBonus       = 15
	DefaultHomeroomPriorityBonus = 100
)

// DefaultSettings returns the settings a policy starts from before its
// settings block is applied.
func DefaultSettings() Settings {
	return Settings{
		FairnessSensitivity:   FairnessBalanced,
		ImmunityPenalty:       DefaultImmunityPenalty,
		ContinuityBonus:       DefaultContinuityBonus,
		HomeroomPriorityBonus: DefaultHomeroomPriorityBonus,
	}
}

// SubjectDomains maps a coarse domain name to the aliases whose presence in
// a subject name places the subject in that domain.
type SubjectDomains map[string][]string

// Policy is the root node of a loaded policy: golden rules, the priority
// ladder and settings.
type Policy struct {
	ID          string `validate:"required"`
	Name        string
	Version     string
	Description string

	Settings       Settings        `validate:"-"`
	SubjectDomains SubjectDomains  `validate:"-"`
	GoldenRules    []*GoldenRule   `validate:"-"`
	Ladder         []*PriorityStep `validate:"-"`

	// Normalized is set once the policy has been through normalization and
	// may be handed to the engine.
	Normalized bool

	SourceFile string
	Location   Location `validate:"-"`
}

// GetRule returns the golden rule with the given id, or nil.
func (p *Policy) GetRule(id string) *GoldenRule {
	for _, r := range p.GoldenRules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// GetStep returns the ladder step with the given id, or nil.
func (p *Policy) GetStep(id string) *PriorityStep {
	for _, s := range p.Ladder {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// EnabledRules returns the enabled golden rules in order.
func (p *Policy) EnabledRules() []*GoldenRule {
	var enabled []*GoldenRule
	for _, r := range p.GoldenRules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled
}

// Clone returns a copy of the policy that can be modified without touching
// the receiver's rule and step slices.
func (p *Policy) Clone() *Policy {
	c := *p
	c.GoldenRules = make([]*GoldenRule, len(p.GoldenRules))
	for i, r := range p.GoldenRules {
		c.GoldenRules[i] = r.Clone()
	}
	c.Ladder = make([]*PriorityStep, len(p.Ladder))
	for i, s := range p.Ladder {
		c.Ladder[i] = s.Clone()
	}
	if p.SubjectDomains != nil {
		c.SubjectDomains = make(SubjectDomains, len(p.SubjectDomains))
		for k, v := range p.SubjectDomains {
			c.SubjectDomains[k] = append([]string(nil), v...)
		}
	}
	return &c
}
