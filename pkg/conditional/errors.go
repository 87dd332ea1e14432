package conditional

import "fmt"

// SyntaxError reports an expression that could not be parsed.
type SyntaxError struct {
	Expression string
	Reason     string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid condition %q: %s", e.Expression, e.Reason)
}

// IndexError reports a condition that refers to a missing result.
type IndexError struct {
	Expression string
	Index      int
	Available  int
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("condition %q refers to result[%d] but only %d results are available",
		e.Expression, e.Index, e.Available)
}
