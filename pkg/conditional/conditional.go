// Package conditional parses and evaluates wait-for expressions of the form
//
//	result[N] [not] <operator> <value>
//
// against the outputs of a command batch. Supported operators are contains,
// matches, eq (==), ne (!=, neq), lt (<), le (<=), gt (>) and ge (>=).
// Comparisons are numeric when both sides parse as numbers.
package conditional

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is a comparison operator.
type Operator string

const (
	OpContains     Operator = "contains"
	OpMatches      Operator = "matches"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpLess         Operator = "lt"
	OpLessEqual    Operator = "le"
	OpGreater      Operator = "gt"
	OpGreaterEqual Operator = "ge"
)

var wordOperators = map[string]Operator{
	"contains": OpContains,
	"matches":  OpMatches,
	"eq":       OpEqual,
	"ne":       OpNotEqual,
	"neq":      OpNotEqual,
	"lt":       OpLess,
	"le":       OpLessEqual,
	"gt":       OpGreater,
	"ge":       OpGreaterEqual,
}

// symbolOperators is ordered longest first so that ">=" wins over ">".
var symbolOperators = []struct {
	symbol string
	op     Operator
}{
	{"==", OpEqual},
	{"!=", OpNotEqual},
	{">=", OpGreaterEqual},
	{"<=", OpLessEqual},
	{">", OpGreater},
	{"<", OpLess},
}

var subjectRe = regexp.MustCompile(`^result\[(\d+)\]`)

// Condition is a parsed wait-for expression.
type Condition struct {
	raw     string
	index   int
	op      Operator
	negate  bool
	value   string
	pattern *regexp.Regexp
}

// Parse parses a single expression.
func Parse(expr string) (*Condition, error) {
	raw := expr
	expr = strings.TrimSpace(expr)

	m := subjectRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, &SyntaxError{Expression: raw, Reason: "expected result[N] subject"}
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, &SyntaxError{Expression: raw, Reason: "invalid result index"}
	}

	c := &Condition{raw: raw, index: index}
	rest := strings.TrimSpace(expr[len(m[0]):])

	if word, tail, ok := strings.Cut(rest, " "); ok && word == "not" {
		c.negate = true
		rest = strings.TrimSpace(tail)
	}

	op, tail, ok := cutOperator(rest)
	if !ok {
		return nil, &SyntaxError{Expression: raw, Reason: "unknown operator"}
	}
	c.op = op

	c.value = unquote(strings.TrimSpace(tail))
	if c.value == "" {
		return nil, &SyntaxError{Expression: raw, Reason: "missing value"}
	}

	if c.op == OpMatches {
		c.pattern, err = regexp.Compile(c.value)
		if err != nil {
			return nil, &SyntaxError{Expression: raw, Reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
	}

	return c, nil
}

// ParseAll parses every expression, failing on the first syntax error.
func ParseAll(exprs []string) ([]*Condition, error) {
	conditions := make([]*Condition, 0, len(exprs))
	for _, expr := range exprs {
		c, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}

func cutOperator(s string) (Operator, string, bool) {
	for _, sym := range symbolOperators {
		if strings.HasPrefix(s, sym.symbol) {
			return sym.op, s[len(sym.symbol):], true
		}
	}
	word, tail, _ := strings.Cut(s, " ")
	op, ok := wordOperators[strings.ToLower(word)]
	return op, tail, ok
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// Raw returns the expression as written.
func (c *Condition) Raw() string { return c.raw }

// Index returns the result index the condition inspects.
func (c *Condition) Index() int { return c.index }

// Operator returns the comparison operator.
func (c *Condition) Operator() Operator { return c.op }

// Negated reports whether the expression used "not".
func (c *Condition) Negated() bool { return c.negate }

// Value returns the comparison operand with quotes removed.
func (c *Condition) Value() string { return c.value }

// String returns the expression as written.
func (c *Condition) String() string { return c.raw }

// Evaluate reports whether the condition holds for results. An index past
// the end of results evaluates to false and returns an *IndexError.
func (c *Condition) Evaluate(results []string) (bool, error) {
	if c.index >= len(results) {
		return false, &IndexError{Expression: c.raw, Index: c.index, Available: len(results)}
	}

	ok := c.compare(results[c.index])
	if c.negate {
		ok = !ok
	}
	return ok, nil
}

func (c *Condition) compare(output string) bool {
	switch c.op {
	case OpContains:
		return strings.Contains(output, c.value)
	case OpMatches:
		return c.pattern.MatchString(output)
	}

	subject := strings.TrimSpace(output)
	cmp := compareValues(subject, c.value)
	switch c.op {
	case OpEqual:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpLess:
		return cmp < 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpGreaterEqual:
		return cmp >= 0
	}
	return false
}

func compareValues(a, b string) int {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
