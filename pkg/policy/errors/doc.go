// Package errors carries located errors produced while loading a policy.
//
// Parsing and validation collect every problem into an ErrorList instead
// of stopping at the first one, and each Error points at the file, line and
// column of the offending node:
//
//	[semantic] unknown lesson_type "stya"
//	  --> policies/default.yaml:14:23
//	   13 |     when:
//	-> 14 |       - lesson_type: stya
//	      |                      ^
//	  = suggestion: did you mean "stay"?
package errors
