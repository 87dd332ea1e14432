package netconfig

import "fmt"

// ParseError reports configuration text whose indentation cannot form a tree.
type ParseError struct {
	// Line is the 1-based physical line number.
	Line int

	// Text is the offending line as it appeared in the input.
	Text string

	// Reason describes what was wrong with the line.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// PolicyError reports an unknown match or replace policy.
type PolicyError struct {
	Kind  string
	Value string
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("unknown %s policy %q", e.Kind, e.Value)
}
