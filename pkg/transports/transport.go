// Package transports defines the device session contract shared by the
// reconciliation engine and the concrete transports under this directory.
package transports

import "context"

// Command is a CLI command with an optional interactive prompt. When Prompt
// matches the device output, Answer is sent before the command completes.
type Command struct {
	Command string `json:"command" yaml:"command" mapstructure:"command" validate:"required"`
	Prompt  string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`
	Answer  string `json:"answer,omitempty" yaml:"answer,omitempty" mapstructure:"answer"`
}

// Commands wraps plain strings as commands without prompts.
func Commands(texts ...string) []Command {
	cmds := make([]Command, 0, len(texts))
	for _, t := range texts {
		cmds = append(cmds, Command{Command: t})
	}
	return cmds
}

// FetchStatus describes how a configuration fetch ended.
type FetchStatus int

const (
	// FetchOK means Text holds the requested configuration.
	FetchOK FetchStatus = iota

	// FetchFilterUnsupported means the device rejected the section filter;
	// the caller should retry without it.
	FetchFilterUnsupported
)

// String returns the status name.
func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchFilterUnsupported:
		return "filter_unsupported"
	}
	return "unknown"
}

// FetchResult is the outcome of a configuration fetch.
type FetchResult struct {
	Text   string
	Status FetchStatus
}

// CLI is a stateful, line-oriented device session. Implementations are not
// safe for concurrent use; a command must complete before the next is sent.
type CLI interface {
	// RunCommands runs each command in order and returns one output per
	// command. A device-reported error aborts the batch.
	RunCommands(ctx context.Context, commands []Command) ([]string, error)

	// GetConfig returns the running configuration, optionally restricted to
	// a section filter.
	GetConfig(ctx context.Context, filter string) (FetchResult, error)

	// EditConfig pushes configuration commands and returns the responses.
	EditConfig(ctx context.Context, commands []string) ([]string, error)

	// EditMacro pushes a multi-line macro definition.
	EditMacro(ctx context.Context, commands []string) error

	// Host names the device the session is connected to.
	Host() string
}
