package history

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"relief-hq/relief/pkg/config"
	"relief-hq/relief/pkg/roster"
)

// ErrInvalidRecord is returned when a substitution lacks a date, period
// or teacher.
var ErrInvalidRecord = errors.New("invalid substitution record")

// Store persists substitution history. Appending a record that is already
// stored is a no-op.
type Store interface {
	Append(ctx context.Context, subs ...roster.Substitution) error

	// Between returns the records dated from..to inclusive.
	Between(ctx context.Context, from, to roster.Date) ([]roster.Substitution, error)

	All(ctx context.Context) ([]roster.Substitution, error)

	Close() error
}

// Open creates the store described by cfg.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

func check(s roster.Substitution) error {
	switch {
	case s.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	case s.Period <= 0:
		return fmt.Errorf("%w: period must be positive", ErrInvalidRecord)
	case s.SubstituteID == "":
		return fmt.Errorf("%w: substitute is required", ErrInvalidRecord)
	case s.AbsentID == "":
		return fmt.Errorf("%w: absent teacher is required", ErrInvalidRecord)
	}
	return nil
}

// compare orders records by date, period, absent and substitute.
func compare(a, b roster.Substitution) int {
	return cmp.Or(
		a.Date.Compare(b.Date.Time),
		cmp.Compare(a.Period, b.Period),
		strings.Compare(a.AbsentID, b.AbsentID),
		strings.Compare(a.SubstituteID, b.SubstituteID),
	)
}

func sortRecords(subs []roster.Substitution) {
	slices.SortFunc(subs, compare)
}
