// Package validator checks parsed policies and normalizes them for the
// engine.
//
// Validation rejects the whole policy when anything is wrong: unknown enum
// values in a condition, compliance outside 0-100, negative weights or
// effect amounts, duplicate ids, over-deep condition trees, and baseline
// rules that have been weakened. Per-candidate outcomes are never errors.
//
// Normalize is the single place baseline rules come from. It injects
// no-stay-coverage and no-class-pull when a policy does not define them,
// so every policy the engine sees enforces them.
package validator
