// Package console saves and restores the terminal display settings of a
// device session around scripted command batches.
//
// Scripted output parsing needs a fixed character set, no pagination and a
// wide terminal. Guard records the user's console settings, applies the
// scripted ones, and puts the user's settings back afterwards, folding in
// any console commands the batch itself issued.
package console

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ShowCommand reads the current console settings.
const ShowCommand = "show config | grep console"

// State holds the console settings of a session. Empty fields mean the
// device default.
type State struct {
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	Lines     string `json:"lines,omitempty" yaml:"lines,omitempty"`
	Columns   int    `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Scripted is the state applied while a batch runs.
var Scripted = State{
	Character: "ascii",
	Lines:     "infinity",
	Columns:   200,
}

var (
	characterRe = regexp.MustCompile(`(?m)^\s*console character (\S+)`)
	linesRe     = regexp.MustCompile(`(?m)^\s*console lines (\S+)`)
	columnsRe   = regexp.MustCompile(`(?m)^\s*console columns (\d{2,})`)

	setRe     = regexp.MustCompile(`^console (character|lines|columns)\s+(\S+)$`)
	settingRe = regexp.MustCompile(`^\s*console (character|lines|columns)\s`)
	resetRe   = regexp.MustCompile(`^no console (character|lines|columns)\b`)
)

// ParseState extracts console settings from configuration text.
func ParseState(text string) State {
	var s State
	if m := characterRe.FindStringSubmatch(text); m != nil {
		s.Character = m[1]
	}
	if m := linesRe.FindStringSubmatch(text); m != nil {
		s.Lines = m[1]
	}
	if m := columnsRe.FindStringSubmatch(text); m != nil {
		s.Columns, _ = strconv.Atoi(m[1])
	}
	return s
}

// Commands returns the commands that put a session into this state.
func (s State) Commands() []string {
	cmds := make([]string, 0, 3)

	if s.Character != "" {
		cmds = append(cmds, "console character "+s.Character)
	} else {
		cmds = append(cmds, "no console character")
	}

	if s.Lines != "" {
		cmds = append(cmds, "console lines "+s.Lines)
	} else {
		cmds = append(cmds, "no console lines")
	}

	if s.Columns > 0 {
		cmds = append(cmds, fmt.Sprintf("console columns %d", s.Columns))
	} else {
		cmds = append(cmds, "no console columns")
	}

	return cmds
}

// ConfigLines returns the configuration lines "show config" prints for s.
// Default settings print nothing.
func (s State) ConfigLines() []string {
	var lines []string
	if s.Character != "" {
		lines = append(lines, "console character "+s.Character)
	}
	if s.Lines != "" {
		lines = append(lines, "console lines "+s.Lines)
	}
	if s.Columns > 0 {
		lines = append(lines, fmt.Sprintf("console columns %d", s.Columns))
	}
	return lines
}

// Rewrite returns text with its console setting lines replaced by those of
// s, placed where the first setting line was. Text without setting lines is
// returned unchanged.
func (s State) Rewrite(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	replaced := false
	for _, line := range lines {
		if !settingRe.MatchString(line) {
			out = append(out, line)
			continue
		}
		if !replaced {
			out = append(out, s.ConfigLines()...)
			replaced = true
		}
	}
	if !replaced {
		return text
	}
	return strings.Join(out, "\n")
}

// Update returns the state after applying commands in order. Commands that
// do not touch the console are skipped.
func (s State) Update(commands []string) State {
	for _, cmd := range commands {
		cmd = strings.TrimSpace(cmd)

		if m := resetRe.FindStringSubmatch(cmd); m != nil {
			switch m[1] {
			case "character":
				s.Character = ""
			case "lines":
				s.Lines = ""
			case "columns":
				s.Columns = 0
			}
			continue
		}

		m := setRe.FindStringSubmatch(cmd)
		if m == nil {
			continue
		}
		switch m[1] {
		case "character":
			s.Character = m[2]
		case "lines":
			s.Lines = m[2]
		case "columns":
			if n, err := strconv.Atoi(m[2]); err == nil {
				s.Columns = n
			}
		}
	}
	return s
}
