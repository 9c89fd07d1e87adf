package engine

import (
	"fmt"
	"time"

	"relief-hq/relief/pkg/policy/ast"
	"relief-hq/relief/pkg/roster"
)

// EngineConfig holds the numeric constants of the decision process that
// are not part of a policy.
type EngineConfig struct {
	// FairnessBaseline is the assumed average number of coverages per
	// teacher per week. Fairness deviation is measured against it rather
	// than a population mean.
	// Default: 2.
	FairnessBaseline float64

	// StrictThreshold and StrictFactor apply when a policy's fairness
	// sensitivity is strict: a deviation above the threshold multiplies the
	// final score by the factor.
	// Default: 1 and 0.5.
	StrictThreshold float64
	StrictFactor    float64

	// FlexibleThreshold and FlexibleFactor are the flexible counterparts.
	// Default: 3 and 0.8.
	FlexibleThreshold float64
	FlexibleFactor    float64

	// ImmunityThreshold is the number of coverages within the immunity
	// window that must be exceeded before a teacher is temporarily immune.
	// Default: 3.
	ImmunityThreshold int

	// ImmunityWindowDays is the number of calendar days, counting the
	// decision day, that make up the immunity window. Two days stands in
	// for "the last 48 hours".
	// Default: 2.
	ImmunityWindowDays int

	// WeekStart is the first day of the school week. Weekly coverage
	// counts the assignments from that day up to the decision date's week.
	// Default: Sunday.
	WeekStart roster.Weekday

	// ModerateShortage is the largest number of free internal teachers
	// that still counts as a moderate shortage. None free is severe.
	// Default: 2.
	ModerateShortage int

	// Workers bounds the number of concurrent decisions in a batch.
	// Default: 4.
	Workers int

	// SubjectDomains is the subject-domain table used when a policy does
	// not carry its own.
	SubjectDomains ast.SubjectDomains
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		FairnessBaseline:   2,
		StrictThreshold:    1,
		StrictFactor:       0.5,
		FlexibleThreshold:  3,
		FlexibleFactor:     0.8,
		ImmunityThreshold:  3,
		ImmunityWindowDays: 2,
		WeekStart:          roster.Weekday(time.Sunday),
		ModerateShortage:   2,
		Workers:            4,
		SubjectDomains:     DefaultSubjectDomains(),
	}
}

// Validate checks the configuration.
func (c *EngineConfig) Validate() error {
	if c.FairnessBaseline < 0 {
		return fmt.Errorf("%w: fairness baseline cannot be negative", ErrInvalidConfig)
	}
	if c.StrictThreshold < 0 || c.FlexibleThreshold < 0 {
		return fmt.Errorf("%w: fairness thresholds cannot be negative", ErrInvalidConfig)
	}
	if c.StrictThreshold > c.FlexibleThreshold {
		return fmt.Errorf("%w: strict threshold cannot exceed flexible threshold", ErrInvalidConfig)
	}
	if c.StrictFactor < 0 || c.StrictFactor > 1 || c.FlexibleFactor < 0 || c.FlexibleFactor > 1 {
		return fmt.Errorf("%w: fairness factors must be between 0 and 1", ErrInvalidConfig)
	}
	if c.ImmunityThreshold < 0 {
		return fmt.Errorf("%w: immunity threshold cannot be negative", ErrInvalidConfig)
	}
	if c.ImmunityWindowDays <= 0 {
		return fmt.Errorf("%w: immunity window must be positive", ErrInvalidConfig)
	}
	if c.WeekStart < roster.Weekday(time.Sunday) || c.WeekStart > roster.Weekday(time.Saturday) {
		return fmt.Errorf("%w: week start %d is not a weekday", ErrInvalidConfig, c.WeekStart)
	}
	if c.ModerateShortage < 0 {
		return fmt.Errorf("%w: moderate shortage cannot be negative", ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithFairnessBaseline sets the assumed weekly coverage average.
func (c *EngineConfig) WithFairnessBaseline(baseline float64) *EngineConfig {
	c.FairnessBaseline = baseline
	return c
}

// WithFairnessThresholds sets the strict and flexible deviation thresholds.
func (c *EngineConfig) WithFairnessThresholds(strict, flexible float64) *EngineConfig {
	c.StrictThreshold = strict
	c.FlexibleThreshold = flexible
	return c
}

// WithImmunity sets the immunity threshold and window.
func (c *EngineConfig) WithImmunity(threshold, windowDays int) *EngineConfig {
	c.ImmunityThreshold = threshold
	c.ImmunityWindowDays = windowDays
	return c
}

// WithWeekStart sets the first day of the school week.
func (c *EngineConfig) WithWeekStart(day roster.Weekday) *EngineConfig {
	c.WeekStart = day
	return c
}

// WithWorkers sets the batch concurrency.
func (c *EngineConfig) WithWorkers(n int) *EngineConfig {
	c.Workers = n
	return c
}

// WithSubjectDomains replaces the default subject-domain table.
func (c *EngineConfig) WithSubjectDomains(domains ast.SubjectDomains) *EngineConfig {
	c.SubjectDomains = domains
	return c
}
