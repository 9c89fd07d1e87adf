// Package manager owns the set of policies the engine may use.
//
// A Manager reads from a source.PolicySource, validates and normalizes
// every policy (injecting the mandatory golden rules) and publishes them
// as an immutable Registry. Loads are atomic: when any policy is rejected
// the whole load fails and the previous registry stays active, so a bad
// edit never leaves the engine with a partial policy set.
//
//	src := source.NewFileSource("./policies")
//	m, err := manager.New(src, manager.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := m.Load(ctx); err != nil {
//	    return err
//	}
//	policy, err := m.Get("weekday")
//
// # Hot reload
//
// Watch consumes the source's change events, coalesces bursts with a
// Debouncer and reloads. For git sources, Sync pulls on demand and resets
// the clone when the new revision is rejected.
package manager
