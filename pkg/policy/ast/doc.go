// Package ast defines the in-memory form of a substitution policy: the
// recursive condition language, golden rules, priority ladder steps and the
// settings block.
//
// A condition tree is a sum type. Node is implemented by *Condition, a leaf
// over five match dimensions (teacher type, lesson type, subject, time
// context, relationship), and *ConditionGroup, which combines children with
// AND, OR or NOT. NOT is "not all children true", and an empty group always
// matches.
//
// Trees are plain data with no back references. Once a policy has been
// normalized it is treated as immutable and may be shared between
// concurrent evaluations.
package ast
