package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Runner runs commands on a device session and returns one output per
// command.
type Runner interface {
	Run(ctx context.Context, commands ...string) ([]string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, commands ...string) ([]string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, commands ...string) ([]string, error) {
	return f(ctx, commands...)
}

// Guard holds the console state to restore when a batch finishes.
type Guard struct {
	runner   Runner
	saved    State
	released bool
}

// Acquire records the current console state and applies Scripted.
func Acquire(ctx context.Context, runner Runner) (*Guard, error) {
	out, err := runner.Run(ctx, ShowCommand)
	if err != nil {
		return nil, fmt.Errorf("failed to read console state: %w", err)
	}

	var text string
	if len(out) > 0 {
		text = out[0]
	}
	g := &Guard{runner: runner, saved: ParseState(text)}

	if _, err := runner.Run(ctx, Scripted.Commands()...); err != nil {
		err = fmt.Errorf("failed to apply scripted console state: %w", err)
		// Part of the batch may have been applied.
		return nil, errors.Join(err, g.Release(context.WithoutCancel(ctx)))
	}

	log.Debug().
		Str("character", g.saved.Character).
		Str("lines", g.saved.Lines).
		Int("columns", g.saved.Columns).
		Msg("Console state saved")

	return g, nil
}

// Track folds console commands issued by the batch into the state that
// Release will apply.
func (g *Guard) Track(commands []string) {
	g.saved = g.saved.Update(commands)
}

// Saved returns the state Release will apply.
func (g *Guard) Saved() State {
	return g.saved
}

// Unscript rewrites configuration text read while the guard is held so its
// console settings are the ones Release will apply instead of Scripted.
func (g *Guard) Unscript(text string) string {
	return g.saved.Rewrite(text)
}

// Release applies the saved state. Every restore command is attempted even
// if an earlier one fails. Calling Release more than once is a no-op.
func (g *Guard) Release(ctx context.Context) error {
	if g.released {
		return nil
	}
	g.released = true

	var errs []error
	for _, cmd := range g.saved.Commands() {
		if _, err := g.runner.Run(ctx, cmd); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cmd, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to restore console state: %w", errors.Join(errs...))
	}

	log.Debug().Msg("Console state restored")
	return nil
}

// Do runs fn between Acquire and Release. Release always runs, even if fn
// fails or panics, and uses a context that outlives cancellation of ctx. A
// release failure is joined after the error returned by fn.
func Do(ctx context.Context, runner Runner, fn func(g *Guard) error) (err error) {
	g, err := Acquire(ctx, runner)
	if err != nil {
		return err
	}

	defer func() {
		if relErr := g.Release(context.WithoutCancel(ctx)); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()

	return fn(g)
}
