package netconfig

import (
	"regexp"
	"strings"
)

// IgnoreFilter decides which configuration lines are excluded from
// comparison. A pattern matches a line when it equals the trimmed text or
// when, read as a regular expression, it matches at the start of the text.
// Patterns that are not valid regular expressions match as literal prefixes.
type IgnoreFilter struct {
	patterns []string
	exprs    []*regexp.Regexp
}

// NewIgnoreFilter compiles the given patterns. Empty patterns are skipped.
func NewIgnoreFilter(patterns ...string) *IgnoreFilter {
	f := &IgnoreFilter{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		expr, err := regexp.Compile("^(?:" + p + ")")
		if err != nil {
			expr = regexp.MustCompile("^" + regexp.QuoteMeta(p))
		}
		f.patterns = append(f.patterns, p)
		f.exprs = append(f.exprs, expr)
	}
	return f
}

// Match reports whether text is covered by any pattern.
func (f *IgnoreFilter) Match(text string) bool {
	if f == nil {
		return false
	}
	text = strings.TrimSpace(text)
	for i, expr := range f.exprs {
		if text == f.patterns[i] || expr.MatchString(text) {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the patterns in the filter.
func (f *IgnoreFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}

// Len returns the number of patterns.
func (f *IgnoreFilter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.patterns)
}
