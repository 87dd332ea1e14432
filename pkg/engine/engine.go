package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rtxops/rtxctl/pkg/backup"
	"github.com/rtxops/rtxctl/pkg/conditional"
	"github.com/rtxops/rtxctl/pkg/console"
	"github.com/rtxops/rtxctl/pkg/netconfig"
	"github.com/rtxops/rtxctl/pkg/stores"
	"github.com/rtxops/rtxctl/pkg/telemetry"
	"github.com/rtxops/rtxctl/pkg/transports"
	"go.opentelemetry.io/otel/trace"
)

// Operation names used in history, metrics and spans.
const (
	OpCommand = "command"
	OpConfig  = "config"
	OpDiff    = "diff"
	OpBackup  = "backup"
)

// SaveCommand copies the running configuration to flash.
const SaveCommand = "save"

// Engine runs operations against a single device session. Operations are
// strictly sequential; an Engine must not be shared between goroutines.
type Engine struct {
	transport transports.CLI
	host      string
	cache     *ConfigCache
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	events    *telemetry.EventPublisher
	recorder  Recorder
	policy    PolicyEngine
	sleep     SleepFunc
	now       func() time.Time
	guard     bool
	held      *console.Guard
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithEvents publishes run, drift and policy events to p.
func WithEvents(p *telemetry.EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithRecorder records every operation as a run.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithPolicy gates command batches through p.
func WithPolicy(p PolicyEngine) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep replaces the pause between retry attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithoutConsoleGuard skips saving and restoring console settings.
func WithoutConsoleGuard() Option {
	return func(e *Engine) { e.guard = false }
}

// New creates an engine for the device behind transport.
func New(transport transports.CLI, opts ...Option) *Engine {
	e := &Engine{
		transport: transport,
		host:      transport.Host(),
		cache:     NewConfigCache(),
		logger:    telemetry.WrapLogger(log.Logger),
		tracer:    telemetry.NewNopTracer(),
		sleep:     sleepContext,
		now:       time.Now,
		guard:     true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.NewComponentLogger("engine").WithHost(e.host)
	return e
}

// log returns the logger of the operation running on ctx.
func (e *Engine) log(ctx context.Context) *zerolog.Logger {
	l := telemetry.FromContext(ctx, e.logger).Zerolog()
	return &l
}

// Host returns the device name.
func (e *Engine) Host() string {
	return e.host
}

// Cache returns the session configuration cache.
func (e *Engine) Cache() *ConfigCache {
	return e.cache
}

// Close ends the session from the engine's point of view. The transport is
// owned by the caller.
func (e *Engine) Close() {
	e.cache.Invalidate()
}

// RunCommands executes opts.Commands until the wait_for conditions hold or
// the attempt budget is spent. When conditions remain unsatisfied the
// result is returned together with an error wrapping
// *UnsatisfiedConditionsError.
func (e *Engine) RunCommands(ctx context.Context, opts CommandOptions) (*CommandResult, error) {
	opts.setDefaults()
	if err := opts.Validate(); err != nil {
		return nil, e.decorate(err, OpCommand)
	}

	conditions, err := conditional.ParseAll(opts.WaitFor)
	if err != nil {
		return nil, NewPermanentError("invalid wait_for condition", err).
			WithCode(ErrCodeCondition).WithHost(e.host).WithOperation(OpCommand)
	}

	result := &CommandResult{}
	commands := opts.Commands
	if opts.CheckMode {
		commands, result.Warnings = showOnly(commands)
	}
	texts := commandTexts(commands)

	ctx, op := e.begin(ctx, OpCommand, texts)
	result.RunID = op.runID()

	if err := e.checkPolicy(ctx, OpCommand, texts, opts.CheckMode); err != nil {
		return nil, op.end(err)
	}

	var outcome *RetryOutcome
	err = e.withConsole(ctx, func(g *console.Guard) error {
		track(g, texts)
		var loopErr error
		outcome, loopErr = RetryLoop(ctx, conditions, RetryPolicy{
			Match:    opts.Match,
			Retries:  opts.Retries,
			Interval: opts.Interval,
		}, e.attempt(commands), e.sleep)
		return loopErr
	})

	if outcome != nil {
		result.Stdout = outcome.Outputs
		result.StdoutLines = toLines(outcome.Outputs)
		result.FailedConditions = outcome.Failed
		result.Attempts = outcome.Attempts
		result.Warnings = append(result.Warnings, outcome.Errors...)
	}
	if err != nil {
		return result, op.end(e.classify(err, "failed to run commands"))
	}

	if !outcome.Satisfied() {
		e.metrics.RecordConditionFailures(e.host, len(outcome.Failed))
		op.failed = outcome.Failed
		return result, op.end(NewSoftError("conditional statements not satisfied", &UnsatisfiedConditionsError{
			Failed:  outcome.Failed,
			Outputs: outcome.Outputs,
		}).WithCode(ErrCodeUnsatisfied))
	}

	e.log(ctx).Info().
		Int("commands", len(commands)).
		Int("attempts", outcome.Attempts).
		Msg("Commands completed")

	return result, op.end(nil)
}

// ApplyConfig reconciles the device configuration with the candidate in
// opts and pushes only the commands needed to converge.
func (e *Engine) ApplyConfig(ctx context.Context, opts ConfigOptions) (*ConfigResult, error) {
	opts.setDefaults()
	if err := opts.Validate(); err != nil {
		return nil, e.decorate(err, OpConfig)
	}

	ctx, op := e.begin(ctx, OpConfig, nil)
	result := &ConfigResult{RunID: op.runID()}

	wantCurrent := opts.Backup || (opts.Diff && opts.DiffAgainst == DiffAgainstRunning)
	wantAfter := opts.Diff && opts.DiffAgainst != "" && opts.RunningConfig == ""

	var current, after string
	err := e.withConsole(ctx, func(g *console.Guard) error {
		if wantCurrent {
			text, err := e.GetConfig(ctx, "")
			if err != nil {
				return err
			}
			current = text
			if opts.Backup {
				info, err := e.writeBackup(ctx, op, text, opts.BackupOptions)
				if err != nil {
					return err
				}
				result.Backup = info
			}
		}

		if len(opts.Lines) > 0 || opts.Src != "" {
			commands, err := e.reconcile(ctx, g, opts, current, result)
			if err != nil {
				return err
			}
			op.commands = commands
		}

		if wantAfter {
			text, err := e.GetConfig(ctx, "")
			if err != nil {
				return err
			}
			after = text
		}
		return nil
	})
	if err != nil {
		return result, op.end(e.classify(err, "failed to apply configuration"))
	}

	if e.shouldSave(opts.SaveWhen, result.Changed) {
		result.Changed = true
		if opts.CheckMode {
			result.Warnings = append(result.Warnings,
				"Skipping command `save` due to check mode. Configuration not copied to non-volatile storage")
		} else {
			if err := e.save(ctx); err != nil {
				return result, op.end(e.classify(err, "failed to save configuration"))
			}
			result.Saved = true
		}
	}

	if opts.Diff {
		if opts.RunningConfig != "" {
			after = opts.RunningConfig
		}

		var base string
		compare := true
		switch opts.DiffAgainst {
		case DiffAgainstRunning:
			if opts.CheckMode {
				result.Warnings = append(result.Warnings,
					"unable to perform diff against running-config due to check mode")
				compare = false
			}
			base = current
		case DiffAgainstIntended:
			base = opts.IntendedConfig
		default:
			compare = false
		}

		if compare {
			diff, err := CompareConfigs(base, after, opts.DiffIgnoreLines)
			if err != nil {
				return result, op.end(e.classify(err, "failed to compare configurations"))
			}
			if diff.Changed {
				result.Changed = true
				result.Diff = diff
			}
			if after != "" && opts.RunningConfig == "" {
				e.snapshot(ctx, op, "config", after, diff.AfterFingerprint)
			}
		}
	}

	op.changed = result.Changed
	e.metrics.RecordReconcile(e.host, result.Changed, len(result.Commands))

	e.log(ctx).Info().
		Bool("changed", result.Changed).
		Int("commands", len(result.Commands)).
		Bool("saved", result.Saved).
		Msg("Configuration reconciled")

	return result, op.end(nil)
}

// reconcile computes the change set and pushes it unless in check mode.
func (e *Engine) reconcile(ctx context.Context, g *console.Guard, opts ConfigOptions, current string, result *ConfigResult) ([]string, error) {
	candidate, err := candidateTree(opts)
	if err != nil {
		return nil, err
	}

	running := opts.RunningConfig
	if running == "" {
		running = current
	}
	if running == "" {
		if running, err = e.GetConfig(ctx, ""); err != nil {
			return nil, err
		}
	}

	runningTree, err := netconfig.Parse(running, netconfig.WithIgnoreLines(opts.DiffIgnoreLines...))
	if err != nil {
		return nil, NewPermanentError("failed to parse running configuration", err).WithCode(ErrCodeParse)
	}

	diff, err := netconfig.ComputeDiff(candidate, runningTree, netconfig.DiffOptions{
		Match:   opts.Match,
		Replace: opts.Replace,
		Path:    opts.Parents,
	})
	if err != nil {
		return nil, NewPermanentError("failed to compute diff", err).WithCode(ErrCodeValidation)
	}

	if diff.Empty() {
		e.log(ctx).Debug().Msg("Running configuration already matches candidate")
		return nil, nil
	}

	commands := make([]string, 0, len(opts.Before)+len(diff.Commands)+len(opts.After))
	commands = append(commands, opts.Before...)
	commands = append(commands, diff.Commands...)
	commands = append(commands, opts.After...)
	result.Commands = commands
	result.Changed = true

	if err := e.checkPolicy(ctx, OpConfig, commands, opts.CheckMode); err != nil {
		return commands, err
	}

	if opts.CheckMode {
		return commands, nil
	}

	track(g, commands)
	if err := e.push(ctx, commands); err != nil {
		return commands, err
	}
	return commands, nil
}

// push sends commands in configuration form, or in macro form when the
// first command defines a macro.
func (e *Engine) push(ctx context.Context, commands []string) error {
	defer e.cache.Invalidate()

	e.log(ctx).Info().Int("commands", len(commands)).Msg("Pushing configuration")

	if strings.HasPrefix(commands[0], "macro") {
		return e.transport.EditMacro(ctx, commands)
	}
	_, err := e.transport.EditConfig(ctx, commands)
	return err
}

func (e *Engine) shouldSave(when SaveWhen, changed bool) bool {
	switch when {
	case SaveAlways:
		return true
	case SaveChanged:
		return changed
	}
	return false
}

func (e *Engine) save(ctx context.Context) error {
	if _, err := e.transport.EditConfig(ctx, []string{SaveCommand}); err != nil {
		return err
	}
	e.log(ctx).Info().Msg("Configuration saved")
	return nil
}

// CheckIntended compares the running configuration with intended.
func (e *Engine) CheckIntended(ctx context.Context, intended string, ignoreLines []string) (*ConfigDiff, error) {
	ctx, op := e.begin(ctx, OpDiff, nil)

	var running string
	err := e.withConsole(ctx, func(*console.Guard) error {
		var err error
		running, err = e.GetConfig(ctx, "")
		return err
	})
	if err != nil {
		return nil, op.end(e.classify(err, "failed to read running configuration"))
	}

	diff, err := CompareConfigs(intended, running, ignoreLines)
	if err != nil {
		return nil, op.end(e.classify(err, "failed to compare configurations"))
	}
	op.changed = diff.Changed
	if diff.Changed {
		e.log(ctx).Warn().
			Str("intended", diff.BeforeFingerprint).
			Str("running", diff.AfterFingerprint).
			Msg("Running configuration drifted from intended")
		e.events.PublishDriftDetected(e.host, op.runID(), diff.AfterFingerprint, diff.BeforeFingerprint)
	}
	return diff, op.end(nil)
}

// Backup writes the running configuration to disk.
func (e *Engine) Backup(ctx context.Context, opts backup.Options) (*BackupResult, error) {
	ctx, op := e.begin(ctx, OpBackup, nil)

	var text string
	err := e.withConsole(ctx, func(*console.Guard) error {
		var err error
		text, err = e.GetConfig(ctx, "")
		return err
	})
	if err != nil {
		return nil, op.end(e.classify(err, "failed to read running configuration"))
	}

	info, err := e.writeBackup(ctx, op, text, opts)
	if err != nil {
		return nil, op.end(err)
	}

	return &BackupResult{
		Info:        info,
		Fingerprint: fingerprint(text),
		RunID:       op.runID(),
	}, op.end(nil)
}

func (e *Engine) writeBackup(ctx context.Context, op *operation, text string, opts backup.Options) (*backup.Info, error) {
	info, err := backup.Write(e.host, text, opts, e.now())
	if err != nil {
		return nil, NewPermanentError("failed to write backup", err).WithCode(ErrCodeBackupFailed)
	}
	e.snapshot(ctx, op, "backup", text, fingerprint(text))
	return info, nil
}

// GetConfig returns the running configuration, restricted to filter when
// the device supports it. Results are cached until the next push. Inside a
// console guard the user's console settings are reported, not the scripted
// ones in effect.
func (e *Engine) GetConfig(ctx context.Context, filter string) (string, error) {
	if text, ok := e.cache.Get(filter); ok {
		return text, nil
	}

	res, err := e.transport.GetConfig(ctx, filter)
	if err != nil {
		return "", err
	}
	if res.Status == transports.FetchFilterUnsupported {
		e.log(ctx).Warn().
			Str("filter", filter).
			Msg("Section filter not supported, reading full configuration")
		if res, err = e.transport.GetConfig(ctx, ""); err != nil {
			return "", err
		}
	}
	if res.Status != transports.FetchOK {
		return "", fmt.Errorf("unexpected fetch status %s", res.Status)
	}

	text := res.Text
	if e.held != nil {
		text = e.held.Unscript(text)
	}
	e.cache.Put(filter, text)
	return text, nil
}

// CompareConfigs compares two configuration texts after dropping lines
// matching ignoreLines. Equal fingerprints short-circuit the comparison.
func CompareConfigs(before, after string, ignoreLines []string) (*ConfigDiff, error) {
	beforeTree, err := netconfig.Parse(before, netconfig.WithIgnoreLines(ignoreLines...))
	if err != nil {
		return nil, NewPermanentError("failed to parse base configuration", err).WithCode(ErrCodeParse)
	}
	afterTree, err := netconfig.Parse(after, netconfig.WithIgnoreLines(ignoreLines...))
	if err != nil {
		return nil, NewPermanentError("failed to parse configuration", err).WithCode(ErrCodeParse)
	}

	diff := &ConfigDiff{
		BeforeFingerprint: beforeTree.Fingerprint(),
		AfterFingerprint:  afterTree.Fingerprint(),
	}
	if diff.BeforeFingerprint == diff.AfterFingerprint {
		return diff, nil
	}

	diff.Changed = true
	diff.Before = beforeTree.Serialize()
	diff.After = afterTree.Serialize()
	diff.Unified, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(diff.Before),
		B:        difflib.SplitLines(diff.After),
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	})
	if err != nil {
		return nil, NewPermanentError("failed to render diff", err).WithCode(ErrCodeInternal)
	}
	return diff, nil
}

func candidateTree(opts ConfigOptions) (*netconfig.Tree, error) {
	if opts.Src != "" {
		tree, err := netconfig.Parse(opts.Src)
		if err != nil {
			return nil, NewPermanentError("failed to parse candidate configuration", err).WithCode(ErrCodeParse)
		}
		return tree, nil
	}
	return netconfig.New().Add(opts.Lines, opts.Parents), nil
}

// attempt returns the retry loop step that runs commands once.
func (e *Engine) attempt(commands []transports.Command) AttemptFunc {
	return func(ctx context.Context, n int) ([]string, error) {
		ctx, span := e.tracer.StartAttemptSpan(ctx, e.host, n, len(commands))
		defer span.End()

		e.metrics.RecordCommandAttempt(e.host)
		e.log(ctx).Debug().Int("attempt", n).Int("commands", len(commands)).Msg("Running commands")

		out, err := e.transport.RunCommands(ctx, commands)
		if err != nil {
			telemetry.RecordError(span, err)
			return out, err
		}
		telemetry.RecordSuccess(span)
		return out, nil
	}
}

func (e *Engine) checkPolicy(ctx context.Context, operation string, commands []string, checkMode bool) error {
	if e.policy == nil {
		return nil
	}

	res, err := e.policy.EvaluateCommands(ctx, &CommandBatch{
		Host:      e.host,
		Operation: operation,
		Commands:  commands,
		CheckMode: checkMode,
	})
	if err != nil {
		return NewPermanentError("policy evaluation failed", err).WithCode(ErrCodeInternal)
	}
	for _, w := range res.Warnings {
		e.log(ctx).Warn().Str("warning", w).Msg("Policy warning")
	}
	if res.Allowed {
		return nil
	}

	span := telemetry.SpanFromContext(ctx)
	for _, v := range res.Violations {
		e.metrics.RecordPolicyDenied(e.host, v.Policy)
		telemetry.AddEvent(span, "policy.denied",
			telemetry.AttrPolicy.String(v.Policy),
			telemetry.AttrPolicySeverity.String(v.Severity),
		)
		e.events.PublishPolicyViolation(e.host, operation, v.Policy, v.Severity, v.Message)
	}
	return NewPermanentError("command batch denied", &PolicyDeniedError{Violations: res.Violations}).
		WithCode(ErrCodePolicyDenied)
}

// withConsole runs fn with scripted console settings in place.
func (e *Engine) withConsole(ctx context.Context, fn func(g *console.Guard) error) error {
	if !e.guard {
		return fn(nil)
	}
	return console.Do(ctx, console.RunnerFunc(func(ctx context.Context, commands ...string) ([]string, error) {
		return e.transport.RunCommands(ctx, transports.Commands(commands...))
	}), func(g *console.Guard) error {
		e.held = g
		defer func() { e.held = nil }()
		return fn(g)
	})
}

func track(g *console.Guard, commands []string) {
	if g != nil {
		g.Track(commands)
	}
}

// decorate adds engine context to an error.
func (e *Engine) decorate(err error, operation string) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		if ee.Host == "" {
			ee.Host = e.host
		}
		if ee.Operation == "" {
			ee.Operation = operation
		}
	}
	return err
}

// classify wraps errors that are not yet an *EngineError. Errors from the
// transport are temporary when the transport says so.
func (e *Engine) classify(err error, message string) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		return err
	}

	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) && temp.Temporary() {
		return NewTransientError(message, err).WithCode(ErrCodeTransport)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransientError(message, err).WithCode(ErrCodeTransport)
	}
	return NewPermanentError(message, err).WithCode(ErrCodeTransport)
}

func (e *Engine) snapshot(ctx context.Context, op *operation, source, text, fp string) {
	if e.recorder == nil {
		return
	}
	snap := &stores.Snapshot{
		Host:        e.host,
		Source:      source,
		Fingerprint: fp,
		Content:     text,
		TakenAt:     e.now().UTC(),
	}
	if id := op.runID(); id != "" {
		snap.RunID = &id
	}
	if err := e.recorder.SaveSnapshot(ctx, snap); err != nil {
		e.log(ctx).Warn().Err(err).Msg("Failed to record configuration snapshot")
	}
}

// operation tracks bookkeeping for one engine call.
type operation struct {
	e        *Engine
	ctx      context.Context
	name     string
	logger   *telemetry.Logger
	run      *stores.Run
	span     trace.Span
	timer    *telemetry.Timer
	commands []string
	failed   []string
	changed  bool
}

func (e *Engine) begin(ctx context.Context, name string, commands []string) (context.Context, *operation) {
	ctx, span := e.tracer.StartOperationSpan(ctx, e.host, name)
	op := &operation{
		e:        e,
		name:     name,
		logger:   e.logger.WithOperation(name),
		span:     span,
		timer:    telemetry.NewTimer(),
		commands: commands,
	}

	e.metrics.RecordOperationStarted(name)

	if e.recorder != nil {
		run := &stores.Run{
			Host:      e.host,
			Operation: name,
			Status:    stores.RunStatusRunning,
			StartedAt: e.now().UTC(),
		}
		if err := e.recorder.CreateRun(ctx, run); err != nil {
			op.log().Warn().Err(err).Msg("Failed to record run")
		} else {
			op.run = run
			op.logger = op.logger.WithRunID(run.ID)
			telemetry.SetAttributes(span, telemetry.AttrRunID.String(run.ID))
		}
	}

	if traceID := telemetry.TraceID(ctx); traceID != "" {
		op.logger = op.logger.WithField("trace_id", traceID).WithField("span_id", telemetry.SpanID(ctx))
	}
	ctx = op.logger.WithContext(ctx)
	op.ctx = ctx

	e.events.PublishRunStarted(e.host, name, op.runID())

	return ctx, op
}

func (op *operation) log() *zerolog.Logger {
	l := op.logger.Zerolog()
	return &l
}

func (op *operation) runID() string {
	if op.run == nil {
		return ""
	}
	return op.run.ID
}

// end completes the operation and returns err decorated with host and
// operation context.
func (op *operation) end(err error) error {
	e := op.e
	defer op.span.End()

	err = e.decorate(err, op.name)

	status := stores.RunStatusSucceeded
	switch {
	case err == nil:
		telemetry.RecordSuccess(op.span)
	case CodeOf(err) == ErrCodeUnsatisfied:
		status = stores.RunStatusUnsatisfied
	default:
		status = stores.RunStatusFailed
	}

	if err != nil {
		telemetry.RecordError(op.span, err)
		var ee *EngineError
		if errors.As(err, &ee) {
			e.metrics.RecordError(string(ee.Class), ee.Code)
			telemetry.SetAttributes(op.span, telemetry.AttrErrorCode.String(ee.Code))
		}
		op.log().Error().Err(err).Msg("Operation failed")
	}
	telemetry.SetAttributes(op.span, telemetry.AttrChanged.Bool(op.changed))

	duration := op.timer.Duration()
	e.metrics.RecordOperationCompleted(op.name, string(status), duration)
	if err != nil {
		e.events.PublishRunFailed(e.host, op.name, op.runID(), string(status), err.Error())
	} else {
		e.events.PublishRunCompleted(e.host, op.name, op.runID(), op.changed, duration)
	}

	if op.run != nil {
		completed := e.now().UTC()
		op.run.Status = status
		op.run.Changed = op.changed
		op.run.Commands = op.commands
		op.run.FailedConditions = op.failed
		op.run.CompletedAt = &completed
		if err != nil {
			msg := err.Error()
			op.run.Error = &msg
		}
		if recErr := e.recorder.CompleteRun(context.WithoutCancel(op.ctx), op.run); recErr != nil {
			op.log().Warn().Err(recErr).Msg("Failed to record run completion")
		}
	}

	return err
}

func showOnly(commands []transports.Command) ([]transports.Command, []string) {
	kept := make([]transports.Command, 0, len(commands))
	var warnings []string
	for _, c := range commands {
		if strings.HasPrefix(strings.TrimSpace(c.Command), "show") {
			kept = append(kept, c)
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"Only show commands are supported when using check mode, not executing %s", c.Command))
	}
	return kept, warnings
}

func commandTexts(commands []transports.Command) []string {
	texts := make([]string, 0, len(commands))
	for _, c := range commands {
		texts = append(texts, c.Command)
	}
	return texts
}

func toLines(outputs []string) [][]string {
	lines := make([][]string, 0, len(outputs))
	for _, out := range outputs {
		lines = append(lines, strings.Split(out, "\n"))
	}
	return lines
}

func fingerprint(text string) string {
	tree, err := netconfig.Parse(text)
	if err != nil {
		return ""
	}
	return tree.Fingerprint()
}
