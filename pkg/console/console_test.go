package console

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingRunner records every command and answers ShowCommand with show.
type recordingRunner struct {
	show     string
	commands []string
	failOn   map[string]error
}

func (r *recordingRunner) Run(_ context.Context, commands ...string) ([]string, error) {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		r.commands = append(r.commands, cmd)
		if err := r.failOn[cmd]; err != nil {
			return out, err
		}
		if cmd == ShowCommand {
			out = append(out, r.show)
			continue
		}
		out = append(out, "")
	}
	return out, nil
}

func TestParseState(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		expect State
	}{
		{
			name:   "all settings",
			text:   "console character sjis\nconsole lines 24\nconsole columns 80\nconsole prompt RTX",
			expect: State{Character: "sjis", Lines: "24", Columns: 80},
		},
		{
			name:   "defaults",
			text:   "console prompt RTX",
			expect: State{},
		},
		{
			name:   "single digit columns are not a setting",
			text:   "console columns 8",
			expect: State{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseState(tt.text); got != tt.expect {
				t.Errorf("Expected %+v, got %+v", tt.expect, got)
			}
		})
	}
}

func TestState_Commands(t *testing.T) {
	got := State{Character: "sjis", Columns: 120}.Commands()
	expected := "console character sjis|no console lines|console columns 120"
	if strings.Join(got, "|") != expected {
		t.Errorf("Expected %q, got %q", expected, strings.Join(got, "|"))
	}

	scripted := strings.Join(Scripted.Commands(), "|")
	if scripted != "console character ascii|console lines infinity|console columns 200" {
		t.Errorf("Unexpected scripted commands: %q", scripted)
	}
}

func TestState_Update(t *testing.T) {
	s := State{Character: "sjis", Lines: "24", Columns: 80}

	got := s.Update([]string{
		"ip lan1 address 192.168.1.1/24",
		"console lines 30",
		"console lines infinity",
		"no console character",
		"console columns wide",
	})

	expect := State{Lines: "infinity", Columns: 80}
	if got != expect {
		t.Errorf("Expected %+v, got %+v", expect, got)
	}
	if s.Lines != "24" {
		t.Error("Update must not modify the receiver")
	}
}

func TestDo_RestoresAfterSuccess(t *testing.T) {
	runner := &recordingRunner{show: "console character sjis\nconsole lines 24"}

	err := Do(context.Background(), runner, func(g *Guard) error {
		g.Track([]string{"console columns 100"})
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	expected := []string{
		ShowCommand,
		"console character ascii",
		"console lines infinity",
		"console columns 200",
		"console character sjis",
		"console lines 24",
		"console columns 100",
	}
	if strings.Join(runner.commands, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected %q, got %q", expected, runner.commands)
	}
}

func TestDo_RestoresAfterFailure(t *testing.T) {
	runner := &recordingRunner{show: ""}
	batchErr := errors.New("batch failed")

	err := Do(context.Background(), runner, func(g *Guard) error {
		return batchErr
	})
	if !errors.Is(err, batchErr) {
		t.Fatalf("Expected batch error, got %v", err)
	}

	tail := runner.commands[len(runner.commands)-3:]
	expected := "no console character|no console lines|no console columns"
	if strings.Join(tail, "|") != expected {
		t.Errorf("Expected restore %q, got %q", expected, strings.Join(tail, "|"))
	}
}

func TestDo_RestoresAfterCancel(t *testing.T) {
	runner := &recordingRunner{show: "console lines 24"}
	ctx, cancel := context.WithCancel(context.Background())

	err := Do(ctx, runner, func(g *Guard) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if last := runner.commands[len(runner.commands)-1]; last != "no console columns" {
		t.Errorf("Expected restore to run, last command %q", last)
	}
}

func TestDo_JoinsReleaseError(t *testing.T) {
	restoreErr := errors.New("connection lost")
	runner := &recordingRunner{
		show:   "console lines 24",
		failOn: map[string]error{"console lines 24": restoreErr},
	}
	batchErr := errors.New("batch failed")

	err := Do(context.Background(), runner, func(g *Guard) error {
		return batchErr
	})
	if !errors.Is(err, batchErr) {
		t.Error("Expected the batch error to be preserved")
	}
	if !errors.Is(err, restoreErr) {
		t.Error("Expected the restore error to be joined")
	}

	// The remaining restore commands still ran.
	if last := runner.commands[len(runner.commands)-1]; last != "no console columns" {
		t.Errorf("Expected all restore commands to be attempted, last %q", last)
	}
}

func TestAcquire_ShowFails(t *testing.T) {
	runner := &recordingRunner{failOn: map[string]error{ShowCommand: errors.New("closed")}}

	called := false
	err := Do(context.Background(), runner, func(g *Guard) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if called {
		t.Error("Batch must not run when the console state cannot be read")
	}
}

func TestRelease_Idempotent(t *testing.T) {
	runner := &recordingRunner{}
	g, err := Acquire(context.Background(), runner)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if err := g.Release(context.Background()); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	n := len(runner.commands)
	if err := g.Release(context.Background()); err != nil {
		t.Fatalf("Second release failed: %v", err)
	}
	if len(runner.commands) != n {
		t.Error("Second release issued commands")
	}
}

func TestState_Rewrite(t *testing.T) {
	user := State{Character: "sjis", Columns: 120}

	tests := []struct {
		name   string
		text   string
		expect string
	}{
		{
			name:   "scripted settings replaced in place",
			text:   "ip lan1 address 192.168.100.1/24\nconsole character ascii\nconsole lines infinity\nconsole columns 200\nconsole prompt RTX\nsyslog notice on",
			expect: "ip lan1 address 192.168.100.1/24\nconsole character sjis\nconsole columns 120\nconsole prompt RTX\nsyslog notice on",
		},
		{
			name:   "no setting lines",
			text:   "console prompt RTX\nip lan1 address 192.168.100.1/24",
			expect: "console prompt RTX\nip lan1 address 192.168.100.1/24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := user.Rewrite(tt.text); got != tt.expect {
				t.Errorf("Expected %q, got %q", tt.expect, got)
			}
		})
	}

	if got := (State{}).Rewrite("console lines infinity\nip routing process fast"); got != "ip routing process fast" {
		t.Errorf("Expected default settings to print nothing, got %q", got)
	}
}

func TestGuard_Unscript(t *testing.T) {
	runner := &recordingRunner{show: "console lines 24"}
	g, err := Acquire(context.Background(), runner)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer g.Release(context.Background())

	scripted := strings.Join(Scripted.ConfigLines(), "\n") + "\nip lan1 mtu 1500"
	if got := g.Unscript(scripted); got != "console lines 24\nip lan1 mtu 1500" {
		t.Errorf("Unexpected text %q", got)
	}

	g.Track([]string{"console columns 100"})
	if got := g.Unscript(scripted); got != "console lines 24\nconsole columns 100\nip lan1 mtu 1500" {
		t.Errorf("Expected tracked settings, got %q", got)
	}
}
