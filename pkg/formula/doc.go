// Package formula implements the expression language used by derived fields.
//
// A formula is a small arithmetic/string expression over the derived field's
// parent values, referenced positionally as parent0, parent1, and so on:
//
//	parent0 + parent1
//	concat(upper(parent0), " ", parent1)
//	floor(yearsBetween(date(parent0), today()))
//
// The language supports +, -, *, /, parentheses, unary minus, numeric and
// string literals, and a fixed table of named helpers. Nothing else is
// reachable: evaluation sees only the supplied parent values and the helper
// table, performs no I/O, and is bounded (no loops, capped nesting depth).
//
// The + operator adds numerically when both operands coerce to numbers and
// concatenates otherwise, so "3" + "4" is 7 while "a" + "b" is "ab".
package formula
