// File: internal/analysis/core/taint_definitions.go
// Package core holds the names shared by every stage of the taint analysis
// and the error taxonomy the stages report with.
package core

// Vulnerability names a pattern in the policy (e.g. "SQL injection").
type Vulnerability string

// Source names an origin of untrusted data, matched against identifiers in the analysed code.
type Source string

// Sink names an operation that must not receive unsanitized data from a source.
type Sink string

// Sanitizer names an operation that neutralizes data flowing through it.
type Sanitizer string

// Variable is a program variable. Attribute accesses are flattened into the
// composite identifier "obj.attr".
type Variable string

// AttributeVariable returns the composite variable used for obj.attr.
func AttributeVariable(obj, attr string) Variable {
	return Variable(obj + "." + attr)
}
