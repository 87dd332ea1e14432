package ssh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rtxops/rtxctl/pkg/transports"
)

const (
	// becomeCommand enters administrator mode.
	becomeCommand = "administrator"

	// becomePrompt is the administrator password prompt.
	becomePrompt = `[\r\n]?Password: ?$`

	// savePrompt is asked when leaving administrator mode with unsaved
	// changes.
	savePrompt = `\(Y/N\)`
)

// RunCommands runs each command in order. A device error aborts the batch
// and the outputs gathered so far are returned with the error.
func (c *SSHClient) RunCommands(ctx context.Context, commands []transports.Command) ([]string, error) {
	sh, err := c.getShell()
	if err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(commands))
	for _, cmd := range commands {
		startTime := time.Now()
		out, err := sh.execute(ctx, cmd)
		if err != nil {
			return outputs, wrapExecError("exec", err)
		}
		outputs = append(outputs, out)

		log.Debug().
			Str("host", c.config.Host).
			Str("command", cmd.Command).
			Int("bytes", len(out)).
			Dur("duration", time.Since(startTime)).
			Msg("command completed")
	}

	return outputs, nil
}

// GetConfig runs "show config", optionally followed by a section filter.
// A filter the device rejects yields FetchFilterUnsupported, not an error.
func (c *SSHClient) GetConfig(ctx context.Context, filter string) (transports.FetchResult, error) {
	sh, err := c.getShell()
	if err != nil {
		return transports.FetchResult{}, err
	}

	command := "show config"
	if filter = strings.TrimSpace(filter); filter != "" {
		command += " " + filter
	}

	out, err := sh.execute(ctx, transports.Command{Command: command})
	if err != nil {
		var cmdErr *CommandError
		if filter != "" && errors.As(err, &cmdErr) {
			log.Warn().
				Str("host", c.config.Host).
				Str("filter", filter).
				Msg("section filter not supported by device")
			return transports.FetchResult{Status: transports.FetchFilterUnsupported}, nil
		}
		return transports.FetchResult{}, wrapExecError("get-config", err)
	}

	return transports.FetchResult{Text: out, Status: transports.FetchOK}, nil
}

// EditConfig pushes configuration commands, entering administrator mode
// first when the transport is configured to.
func (c *SSHClient) EditConfig(ctx context.Context, commands []string) ([]string, error) {
	if c.config.Become {
		if err := c.Become(ctx); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("host", c.config.Host).
		Int("commands", len(commands)).
		Msg("pushing configuration")

	return c.RunCommands(ctx, transports.Commands(commands...))
}

// EditMacro sends a macro definition line by line, waiting for the prompt
// after each one.
func (c *SSHClient) EditMacro(ctx context.Context, commands []string) error {
	if len(commands) == 0 {
		return nil
	}
	if c.config.Become {
		if err := c.Become(ctx); err != nil {
			return err
		}
	}

	sh, err := c.getShell()
	if err != nil {
		return err
	}

	for _, line := range commands {
		if _, err := sh.execute(ctx, transports.Command{Command: line}); err != nil {
			return wrapExecError("edit-macro", err)
		}
	}
	return nil
}

// Become enters administrator mode unless the shell is already in it.
func (c *SSHClient) Become(ctx context.Context) error {
	sh, err := c.getShell()
	if err != nil {
		return err
	}
	if sh.administrator() {
		return nil
	}

	cmd := transports.Command{Command: becomeCommand}
	if c.config.BecomePassword != "" {
		cmd.Prompt = becomePrompt
		cmd.Answer = c.config.BecomePassword
	}

	if _, err := sh.execute(ctx, cmd); err != nil {
		return &TransportError{
			Op:          "become",
			Err:         fmt.Errorf("unable to elevate privilege to administrator mode: %w", err),
			IsAuthError: true,
		}
	}
	if !sh.administrator() {
		return &TransportError{
			Op:          "become",
			Err:         fmt.Errorf("unable to elevate privilege to administrator mode: prompt %q", sh.lastPrompt),
			IsAuthError: true,
		}
	}

	log.Debug().Str("host", c.config.Host).Msg("entered administrator mode")
	return nil
}

// Unbecome leaves administrator mode, declining to save.
func (c *SSHClient) Unbecome(ctx context.Context) error {
	sh, err := c.getShell()
	if err != nil {
		return err
	}
	if !sh.administrator() {
		return nil
	}

	if _, err := sh.execute(ctx, transports.Command{Command: "exit", Prompt: savePrompt, Answer: "N"}); err != nil {
		return wrapExecError("unbecome", err)
	}
	return nil
}

// wrapExecError converts shell errors to *TransportError.
func wrapExecError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}

	temporary := errors.Is(err, ErrTimeout)
	return &TransportError{
		Op:          op,
		Err:         err,
		IsTemporary: temporary,
	}
}
