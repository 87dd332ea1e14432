package netconfig

import "strings"

// keySeparator joins path segments into map keys. Configuration text never
// contains a NUL byte.
const keySeparator = "\x00"

// Line is a single configuration line together with its enclosing blocks.
// A Line is immutable once created.
type Line struct {
	text    string
	parents []string
	raw     string
}

// NewLine creates a line with the given text nested under parents.
// Surrounding whitespace is stripped from the text and from every parent.
func NewLine(text string, parents ...string) Line {
	ps := make([]string, 0, len(parents))
	for _, p := range parents {
		ps = append(ps, strings.TrimSpace(p))
	}
	text = strings.TrimSpace(text)
	return Line{
		text:    text,
		parents: ps,
		raw:     strings.Repeat(" ", len(ps)) + text,
	}
}

// Text returns the trimmed line text.
func (l Line) Text() string { return l.text }

// Raw returns the line as it appeared in the source, indentation included.
func (l Line) Raw() string { return l.raw }

// Depth returns the nesting depth; top-level lines have depth zero.
func (l Line) Depth() int { return len(l.parents) }

// Parents returns a copy of the parent chain, outermost first.
func (l Line) Parents() []string {
	return append([]string(nil), l.parents...)
}

// Path returns the parent chain followed by the line's own text.
func (l Line) Path() []string {
	path := make([]string, 0, len(l.parents)+1)
	path = append(path, l.parents...)
	return append(path, l.text)
}

// Key returns a string that identifies the line by text and parent chain.
func (l Line) Key() string {
	return joinKey(l.Path())
}

// Equal reports whether two lines have the same text and parent chain.
func (l Line) Equal(other Line) bool {
	return l.text == other.text && equalPath(l.parents, other.parents)
}

// String returns the line text.
func (l Line) String() string { return l.text }

func joinKey(path []string) string {
	return strings.Join(path, keySeparator)
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasPathPrefix(path, prefix []string) bool {
	if len(prefix) > len(path) {
		return false
	}
	return equalPath(path[:len(prefix)], prefix)
}

func commonPrefixLen(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
