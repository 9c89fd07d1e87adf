// Package parser loads substitution policies from YAML.
//
// A policy file looks like this:
//
//	id: default
//	name: Default weekday policy
//	version: "3"
//	settings:
//	  disable_external: false
//	  max_daily_coverage: 2
//	  fairness_sensitivity: strict      # strict | balanced | flexible
//	  force_homeroom_presence: true
//	subject_domains:
//	  sciences: [physics, chemistry, biology, science]
//	golden_rules:
//	  - id: prefer-same-subject
//	    name: Prefer subject teachers
//	    compliance: 95
//	    severity: medium
//	    when:
//	      relationship: same_subject
//	    effects:
//	      - boost: 10
//	    exceptions:
//	      - teacher_type: external
//	ladder:
//	  - id: homeroom
//	    label: Homeroom teacher
//	    order: 1
//	    filters:
//	      or:
//	        - relationship: homeroom_of_class
//	        - relationship: same_class
//	    base_score: 50
//	    modifiers:
//	      - op: add
//	        value: 10
//	        when: {relationship: taught_class_today}
//	    weight: 100
//	    stop_on_match: true
//
// A condition is a mapping of dimension keys (a leaf), a mapping with a
// single and/or/not key holding a list of conditions (a group), or a list
// of conditions (an implicit AND). A missing condition matches everything.
// "any" or "*" as a dimension value means the dimension is not constrained.
//
// Omitted fields default to: enabled true, compliance 100, weight 100.
package parser
