package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rtxops/rtxctl/pkg/console"
	"github.com/rtxops/rtxctl/pkg/stores"
	"github.com/rtxops/rtxctl/pkg/transports"
)

var errSessionLost = errors.New("session lost")

// mockTransport is an in-memory device session.
type mockTransport struct {
	mu sync.Mutex

	host    string
	config  string
	console string

	// outputs maps a command to the outputs of successive calls; the last
	// output repeats.
	outputs map[string][]string
	calls   map[string]int

	// failOn makes RunCommands fail when it reaches this command.
	failOn string

	// afterEdit replaces config after EditConfig or EditMacro.
	afterEdit string

	filterUnsupported bool

	// consoleInConfig makes GetConfig report the live console settings the
	// way "show config" does.
	consoleInConfig bool
	live            console.State

	batches    [][]string
	edits      [][]string
	macros     [][]string
	getConfigs []string
}

func newMockTransport(config string) *mockTransport {
	m := &mockTransport{
		host:    "rtx1",
		config:  config,
		console: "console character sjis\nconsole lines 24\nconsole columns 120",
		outputs: make(map[string][]string),
		calls:   make(map[string]int),
	}
	m.live = console.ParseState(m.console)
	return m
}

func (m *mockTransport) Host() string { return m.host }

func (m *mockTransport) RunCommands(ctx context.Context, commands []transports.Command) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	texts := make([]string, 0, len(commands))
	for _, c := range commands {
		texts = append(texts, c.Command)
	}
	m.batches = append(m.batches, texts)

	out := make([]string, 0, len(commands))
	for _, c := range commands {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if c.Command == m.failOn {
			return out, errSessionLost
		}
		if c.Command == console.ShowCommand {
			out = append(out, m.console)
			continue
		}
		m.live = m.live.Update([]string{c.Command})

		n := m.calls[c.Command]
		m.calls[c.Command] = n + 1

		seq := m.outputs[c.Command]
		switch {
		case len(seq) == 0:
			out = append(out, "")
		case n < len(seq):
			out = append(out, seq[n])
		default:
			out = append(out, seq[len(seq)-1])
		}
	}
	return out, nil
}

func (m *mockTransport) GetConfig(_ context.Context, filter string) (transports.FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getConfigs = append(m.getConfigs, filter)
	if m.failOn == "show config" {
		return transports.FetchResult{}, errSessionLost
	}
	if filter != "" && m.filterUnsupported {
		return transports.FetchResult{Status: transports.FetchFilterUnsupported}, nil
	}
	text := m.config
	if m.consoleInConfig {
		text = strings.Join(append(m.live.ConfigLines(), m.config), "\n")
	}
	return transports.FetchResult{Text: text, Status: transports.FetchOK}, nil
}

func (m *mockTransport) EditConfig(_ context.Context, commands []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.edits = append(m.edits, append([]string(nil), commands...))
	m.live = m.live.Update(commands)
	if m.afterEdit != "" {
		m.config = m.afterEdit
	}
	return make([]string, len(commands)), nil
}

func (m *mockTransport) EditMacro(_ context.Context, commands []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.macros = append(m.macros, append([]string(nil), commands...))
	if m.afterEdit != "" {
		m.config = m.afterEdit
	}
	return nil
}

func (m *mockTransport) callCount(command string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[command]
}

func (m *mockTransport) lastBatches(n int) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.batches) {
		n = len(m.batches)
	}
	return m.batches[len(m.batches)-n:]
}

// mockRecorder keeps runs and snapshots in memory.
type mockRecorder struct {
	mu        sync.Mutex
	runs      map[string]*stores.Run
	order     []string
	snapshots []*stores.Snapshot
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{runs: make(map[string]*stores.Run)}
}

func (r *mockRecorder) CreateRun(_ context.Context, run *stores.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.ID = "run-" + string(rune('a'+len(r.order)))
	copied := *run
	r.runs[run.ID] = &copied
	r.order = append(r.order, run.ID)
	return nil
}

func (r *mockRecorder) CompleteRun(_ context.Context, run *stores.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *mockRecorder) SaveSnapshot(_ context.Context, snap *stores.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snap
	r.snapshots = append(r.snapshots, &copied)
	return nil
}

func (r *mockRecorder) last() *stores.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.runs[r.order[len(r.order)-1]]
}

// mockPolicy denies any batch containing a forbidden command.
type mockPolicy struct {
	forbidden string
	batches   []*CommandBatch
}

func (p *mockPolicy) EvaluateCommands(_ context.Context, batch *CommandBatch) (*PolicyResult, error) {
	p.batches = append(p.batches, batch)
	res := &PolicyResult{Allowed: true, EvaluatedAt: time.Now()}
	for _, c := range batch.Commands {
		if c == p.forbidden {
			res.Allowed = false
			res.Violations = append(res.Violations, PolicyViolation{
				Policy:   "forbidden-command",
				Message:  "command is not allowed",
				Severity: "error",
				Command:  c,
			})
		}
	}
	return res, nil
}

// sleepRecorder records requested pauses without sleeping.
type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return ctx.Err()
}

func newTestEngine(m *mockTransport, opts ...Option) (*Engine, *sleepRecorder) {
	s := &sleepRecorder{}
	opts = append([]Option{WithSleep(s.sleep)}, opts...)
	return New(m, opts...), s
}
