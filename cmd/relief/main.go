// Relief ranks substitute teachers for vacated lessons under a declarative
// school policy.
//
// Every decision is explained: the trace lists each rule and ladder step
// that contributed to a candidate's score, and traces can be recorded as
// tamper-evident evidence and replayed later.
//
// Usage:
//
//	# Check policy files
//	relief lint policies/
//
//	# Show the normalized form of a policy
//	relief policy show policies/default.yaml
//
//	# Rank every candidate for the slots of a scenario
//	relief rank --scenario monday.yaml
//
//	# Explain the decision for one candidate
//	relief decide --scenario monday.yaml --candidate t-cohen
//
//	# Query recorded decisions
//	relief evidence query --candidate t-cohen --format json
package main

func main() {
	Execute()
}
