// Package netconfig models a router configuration as an ordered tree of
// lines and computes the minimal command sequence needed to move a running
// configuration toward a candidate one.
//
// # Line model
//
// Every configuration line carries its trimmed text and the chain of parent
// lines that encloses it. Two lines are equal when both the text and the
// parent chain match, so the same "description" line under two different
// "pp select" blocks is two distinct lines.
//
// # Parsing
//
// Parse builds a Tree from indented text. Indentation defines nesting: a line
// indented deeper than the previous one is its child. Blank lines and comment
// lines are dropped. Lines matching an ignore pattern are dropped together
// with everything nested under them.
//
//	tree, err := netconfig.Parse(running, netconfig.WithIgnoreLines("ntp .*"))
//
// # Diffing
//
// ComputeDiff compares a candidate tree against a running tree under a match
// policy (line, strict, exact, none) and a replace policy (line, block), and
// renders the selected candidate lines as CLI commands with block navigation:
// parent lines are emitted to enter a block and "exit" to leave it.
//
//	result, err := netconfig.ComputeDiff(candidate, running, netconfig.DiffOptions{
//		Match:   netconfig.MatchLine,
//		Replace: netconfig.ReplaceLine,
//	})
package netconfig
