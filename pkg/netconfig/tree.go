package netconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultIndent is the number of spaces per nesting level used by Serialize.
const DefaultIndent = 1

// DefaultCommentTokens are the prefixes that mark a comment line.
var DefaultCommentTokens = []string{"#"}

// Option configures how a Tree is built.
type Option func(*treeOptions)

type treeOptions struct {
	indent   int
	comments []string
	ignore   *IgnoreFilter
}

// WithIgnoreLines drops lines matching any of the patterns, together with
// everything nested under them.
func WithIgnoreLines(patterns ...string) Option {
	return func(o *treeOptions) {
		o.ignore = NewIgnoreFilter(patterns...)
	}
}

// WithCommentTokens replaces the default comment prefixes.
func WithCommentTokens(tokens ...string) Option {
	return func(o *treeOptions) {
		o.comments = append([]string(nil), tokens...)
	}
}

// WithIndent sets the spaces per nesting level used when serializing.
func WithIndent(n int) Option {
	return func(o *treeOptions) {
		if n > 0 {
			o.indent = n
		}
	}
}

func newTreeOptions(opts []Option) treeOptions {
	o := treeOptions{
		indent:   DefaultIndent,
		comments: DefaultCommentTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o treeOptions) isComment(text string) bool {
	for _, token := range o.comments {
		if token != "" && strings.HasPrefix(text, token) {
			return true
		}
	}
	return false
}

// Tree is an ordered configuration tree. Lines are kept in document order,
// each block header immediately followed by its descendants. A Tree is never
// modified after construction; Add returns a new Tree.
type Tree struct {
	opts  treeOptions
	lines []Line
	index map[string]struct{}
}

// New returns an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{opts: newTreeOptions(opts)}
	t.seal()
	return t
}

// Parse builds a tree from indented configuration text.
//
// The indentation of the first significant line is the baseline. A line
// indented less than the baseline is rejected with a *ParseError.
func Parse(text string, opts ...Option) (*Tree, error) {
	t := &Tree{opts: newTreeOptions(opts)}

	type frame struct {
		indent int
		text   string
	}

	var stack []frame
	baseline := -1
	skipUnder := -1

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, physical := range strings.Split(text, "\n") {
		physical = strings.TrimRight(physical, " \t\r")
		trimmed := strings.TrimSpace(physical)
		if trimmed == "" || t.opts.isComment(trimmed) {
			continue
		}

		indent := len(physical) - len(strings.TrimLeft(physical, " \t"))
		if baseline < 0 {
			baseline = indent
		}
		if indent < baseline {
			return nil, &ParseError{
				Line:   i + 1,
				Text:   physical,
				Reason: "indentation below the first line",
			}
		}

		// Descendants of an ignored line go with it.
		if skipUnder >= 0 {
			if indent > skipUnder {
				continue
			}
			skipUnder = -1
		}
		if t.opts.ignore.Match(trimmed) {
			skipUnder = indent
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		parents := make([]string, len(stack))
		for j, f := range stack {
			parents[j] = f.text
		}

		t.lines = append(t.lines, Line{text: trimmed, parents: parents, raw: physical})
		stack = append(stack, frame{indent: indent, text: trimmed})
	}

	t.seal()
	return t, nil
}

// Add returns a new tree with lines added under parents. Missing parent
// blocks are created; lines already present under the same parents are not
// duplicated. New lines are placed at the end of their block. Comments and
// ignored lines are dropped as Parse drops them.
func (t *Tree) Add(lines []string, parents []string) *Tree {
	out := &Tree{
		opts:  t.opts,
		lines: append([]Line(nil), t.lines...),
	}
	out.seal()

	path := make([]string, 0, len(parents))
	for _, p := range parents {
		p = strings.TrimSpace(p)
		if p == "" || out.opts.isComment(p) {
			continue
		}
		out.insert(NewLine(p, path...))
		path = append(path, p)
	}

	for _, text := range lines {
		text = strings.TrimSpace(text)
		if text == "" || out.opts.isComment(text) || out.opts.ignore.Match(text) {
			continue
		}
		out.insert(NewLine(text, path...))
	}

	return out
}

func (t *Tree) insert(l Line) {
	if t.Contains(l) {
		return
	}
	at := t.blockEnd(l.parents)
	t.lines = append(t.lines, Line{})
	copy(t.lines[at+1:], t.lines[at:])
	t.lines[at] = l
	t.index[l.Key()] = struct{}{}
}

// blockEnd returns the index just past the last descendant of the block
// identified by path. The root block ends at the end of the tree.
func (t *Tree) blockEnd(path []string) int {
	if len(path) == 0 {
		return len(t.lines)
	}
	header := -1
	for i, l := range t.lines {
		if l.text == path[len(path)-1] && equalPath(l.parents, path[:len(path)-1]) {
			header = i
		}
	}
	if header < 0 {
		return len(t.lines)
	}
	end := header + 1
	for end < len(t.lines) && hasPathPrefix(t.lines[end].parents, path) {
		end++
	}
	return end
}

func (t *Tree) seal() {
	t.index = make(map[string]struct{}, len(t.lines))
	for _, l := range t.lines {
		t.index[l.Key()] = struct{}{}
	}
}

// Lines returns the lines of the tree in document order.
func (t *Tree) Lines() []Line {
	return append([]Line(nil), t.lines...)
}

// Len returns the number of lines.
func (t *Tree) Len() int { return len(t.lines) }

// Contains reports whether a line with the same text and parents exists.
func (t *Tree) Contains(l Line) bool {
	_, ok := t.index[l.Key()]
	return ok
}

// Children returns the direct children of the block at path, in order.
// A nil path selects the top-level lines.
func (t *Tree) Children(path []string) []Line {
	var out []Line
	for _, l := range t.lines {
		if equalPath(l.parents, path) {
			out = append(out, l)
		}
	}
	return out
}

// Block returns every line nested under path, at any depth. The header line
// itself is not included; an empty path returns the whole tree.
func (t *Tree) Block(path []string) []Line {
	var out []Line
	for _, l := range t.lines {
		if hasPathPrefix(l.parents, path) {
			out = append(out, l)
		}
	}
	return out
}

// IgnorePatterns returns the ignore patterns the tree was built with.
func (t *Tree) IgnorePatterns() []string {
	return t.opts.ignore.Patterns()
}

// Serialize renders the canonical text form: one line per entry, indented
// by depth, joined with newlines.
func (t *Tree) Serialize() string {
	var b strings.Builder
	for i, l := range t.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat(" ", t.opts.indent*len(l.parents)))
		b.WriteString(l.text)
	}
	return b.String()
}

// String is an alias for Serialize.
func (t *Tree) String() string { return t.Serialize() }

// Fingerprint returns the hex SHA-256 of the canonical serialization.
func (t *Tree) Fingerprint() string {
	sum := sha256.Sum256([]byte(t.Serialize()))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two trees serialize identically.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Fingerprint() == other.Fingerprint()
}
