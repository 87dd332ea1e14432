package netconfig

import "strings"

// MatchPolicy selects how candidate lines are matched against running lines.
type MatchPolicy string

const (
	// MatchLine selects candidate lines absent anywhere in the running tree.
	MatchLine MatchPolicy = "line"

	// MatchStrict also requires a line to hold the same position among its
	// siblings.
	MatchStrict MatchPolicy = "strict"

	// MatchExact selects a whole block when its child sequence differs.
	MatchExact MatchPolicy = "exact"

	// MatchNone selects every candidate line.
	MatchNone MatchPolicy = "none"
)

// Valid reports whether p is a known policy.
func (p MatchPolicy) Valid() bool {
	switch p {
	case MatchLine, MatchStrict, MatchExact, MatchNone:
		return true
	}
	return false
}

// ReplacePolicy selects the granularity of the change set.
type ReplacePolicy string

const (
	// ReplaceLine emits only the selected lines.
	ReplaceLine ReplacePolicy = "line"

	// ReplaceBlock emits the whole block containing any selected line.
	ReplaceBlock ReplacePolicy = "block"
)

// Valid reports whether p is a known policy.
func (p ReplacePolicy) Valid() bool {
	return p == ReplaceLine || p == ReplaceBlock
}

// ExitCommand leaves the current configuration block.
const ExitCommand = "exit"

// DiffOptions configures ComputeDiff. Zero values select MatchLine and
// ReplaceLine over the whole tree.
type DiffOptions struct {
	Match   MatchPolicy
	Replace ReplacePolicy

	// Path scopes the comparison to lines nested under this block.
	Path []string
}

// DiffResult is the outcome of ComputeDiff.
type DiffResult struct {
	// Commands is the rendered command sequence, navigation included.
	Commands []string

	// Lines are the selected candidate lines in candidate order.
	Lines []Line

	// IgnoredPatterns echoes the ignore patterns of the running tree.
	IgnoredPatterns []string
}

// Empty reports whether there is nothing to push.
func (r *DiffResult) Empty() bool {
	return r == nil || len(r.Commands) == 0
}

// Text joins the commands with newlines.
func (r *DiffResult) Text() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Commands, "\n")
}

// ComputeDiff returns the candidate lines that must be pushed for running to
// reach candidate under opts. A nil running tree selects every candidate
// line. ComputeDiff never mutates its inputs.
func ComputeDiff(candidate, running *Tree, opts DiffOptions) (*DiffResult, error) {
	match := opts.Match
	if match == "" {
		match = MatchLine
	}
	if !match.Valid() {
		return nil, &PolicyError{Kind: "match", Value: string(match)}
	}
	replace := opts.Replace
	if replace == "" {
		replace = ReplaceLine
	}
	if !replace.Valid() {
		return nil, &PolicyError{Kind: "replace", Value: string(replace)}
	}

	result := &DiffResult{}
	if candidate == nil {
		return result, nil
	}
	if running != nil {
		result.IgnoredPatterns = running.IgnorePatterns()
	}

	lines := candidate.lines
	selected := make([]bool, len(lines))

	if match == MatchNone || running == nil {
		for i := range lines {
			selected[i] = true
		}
	} else {
		scoped := scopeIndices(lines, opts.Path)
		switch match {
		case MatchLine:
			selectMissing(lines, scoped, running, selected)
		case MatchStrict:
			selectMisplaced(candidate, scoped, running, selected)
		case MatchExact:
			selectChangedBlocks(candidate, scoped, running, selected)
		}
		if replace == ReplaceBlock {
			expandBlocks(lines, scoped, opts.Path, selected)
		}
	}

	for i, l := range lines {
		if selected[i] {
			result.Lines = append(result.Lines, l)
		}
	}
	result.Commands = RenderCommands(result.Lines)

	return result, nil
}

func scopeIndices(lines []Line, path []string) []int {
	scoped := make([]int, 0, len(lines))
	for i, l := range lines {
		if len(path) == 0 || hasPathPrefix(l.parents, path) {
			scoped = append(scoped, i)
		}
	}
	return scoped
}

func selectMissing(lines []Line, scoped []int, running *Tree, selected []bool) {
	for _, i := range scoped {
		if !running.Contains(lines[i]) {
			selected[i] = true
		}
	}
}

func selectMisplaced(candidate *Tree, scoped []int, running *Tree, selected []bool) {
	positions := make(map[string]int)
	for i, l := range candidate.lines {
		key := joinKey(l.parents)
		pos := positions[key]
		positions[key] = pos + 1
		if !containsIndex(scoped, i) {
			continue
		}
		siblings := running.Children(l.parents)
		if pos >= len(siblings) || siblings[pos].text != l.text {
			selected[i] = true
		}
	}
}

func selectChangedBlocks(candidate *Tree, scoped []int, running *Tree, selected []bool) {
	seen := make(map[string]bool)
	for _, i := range scoped {
		parents := candidate.lines[i].parents
		key := joinKey(parents)
		if seen[key] {
			continue
		}
		seen[key] = true

		if sameTexts(candidate.Children(parents), running.Children(parents)) {
			continue
		}
		for _, j := range scoped {
			if hasPathPrefix(candidate.lines[j].parents, parents) {
				selected[j] = true
			}
		}
	}
}

// expandBlocks widens the selection to the whole enclosing block. With a
// scope path the block is the scope; otherwise it is the top-level block the
// selected line belongs to.
func expandBlocks(lines []Line, scoped []int, path []string, selected []bool) {
	roots := make(map[string]bool)
	found := false
	for _, i := range scoped {
		if !selected[i] {
			continue
		}
		found = true
		roots[rootOf(lines[i])] = true
	}
	if !found {
		return
	}

	for _, i := range scoped {
		if len(path) > 0 || roots[rootOf(lines[i])] {
			selected[i] = true
		}
	}
}

func rootOf(l Line) string {
	if len(l.parents) == 0 {
		return l.text
	}
	return l.parents[0]
}

func sameTexts(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].text != b[i].text {
			return false
		}
	}
	return true
}

func containsIndex(sorted []int, i int) bool {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case sorted[mid] == i:
			return true
		case sorted[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}

// RenderCommands turns lines into a command sequence. Entering a block
// emits its parent lines, leaving one emits ExitCommand, and every block
// opened is closed by the end of the sequence.
func RenderCommands(lines []Line) []string {
	var (
		commands []string
		current  []string
		opened   []string
	)

	for _, l := range lines {
		// A selected header line already entered its block.
		if opened != nil && hasPathPrefix(l.parents, opened) {
			current = opened
		}

		common := commonPrefixLen(current, l.parents)
		for depth := len(current); depth > common; depth-- {
			commands = append(commands, ExitCommand)
		}
		next := append([]string(nil), current[:common]...)
		for _, p := range l.parents[common:] {
			commands = append(commands, p)
			next = append(next, p)
		}
		current = next

		commands = append(commands, l.text)
		opened = append(append([]string(nil), current...), l.text)
	}

	for range current {
		commands = append(commands, ExitCommand)
	}
	return commands
}
