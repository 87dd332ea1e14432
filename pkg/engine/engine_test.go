package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rtxops/rtxctl/pkg/backup"
	"github.com/rtxops/rtxctl/pkg/console"
	"github.com/rtxops/rtxctl/pkg/netconfig"
	"github.com/rtxops/rtxctl/pkg/stores"
	"github.com/rtxops/rtxctl/pkg/transports"
)

const environmentOutput = "RTX1210 BootROM Ver. 1.04\nRTX1210 Rev.14.01.42 (Fri Jan 15 10:00:00 2026)\nCPU:   3%(5sec)   2%(1min)   2%(5min)    Memory: 21% used"

func TestRunCommands_Simple(t *testing.T) {
	m := newMockTransport("")
	m.outputs["show environment"] = []string{environmentOutput}
	eng, _ := newTestEngine(m)

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show environment"),
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}

	if len(res.Stdout) != 1 || !strings.HasPrefix(res.Stdout[0], "RTX1210") {
		t.Errorf("unexpected stdout %v", res.Stdout)
	}
	if len(res.StdoutLines) != 1 || len(res.StdoutLines[0]) != 3 {
		t.Errorf("unexpected stdout lines %v", res.StdoutLines)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}

	expected := [][]string{
		{console.ShowCommand},
		console.Scripted.Commands(),
		{"show environment"},
		{"console character sjis"},
		{"console lines 24"},
		{"console columns 120"},
	}
	if !reflect.DeepEqual(m.batches, expected) {
		t.Errorf("unexpected batches:\n got %v\nwant %v", m.batches, expected)
	}
}

func TestRunCommands_MultipleCommands(t *testing.T) {
	m := newMockTransport("")
	m.outputs["show environment"] = []string{environmentOutput}
	eng, _ := newTestEngine(m, WithoutConsoleGuard())

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show environment", "show environment"),
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}
	if len(res.Stdout) != 2 {
		t.Errorf("expected 2 outputs, got %d", len(res.Stdout))
	}
	if len(m.batches) != 1 {
		t.Errorf("expected one batch without console guard, got %v", m.batches)
	}
}

func TestRunCommands_RetriesExhausted(t *testing.T) {
	m := newMockTransport("")
	m.outputs["show status"] = []string{"down"}
	eng, sleeps := newTestEngine(m)

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show status"),
		WaitFor:  []string{`result[0] contains "up"`},
		Retries:  2,
		Interval: 0,
	})
	if err == nil {
		t.Fatal("expected unsatisfied conditions")
	}

	if got := m.callCount("show status"); got != 2 {
		t.Errorf("expected 2 executions, got %d", got)
	}
	if len(sleeps.durations) != 1 {
		t.Errorf("expected one pause between attempts, got %d", len(sleeps.durations))
	}

	if !IsSoft(err) || CodeOf(err) != ErrCodeUnsatisfied {
		t.Errorf("expected soft UNSATISFIED_CONDITIONS, got %v", err)
	}
	var uerr *UnsatisfiedConditionsError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnsatisfiedConditionsError, got %T", err)
	}
	if !reflect.DeepEqual(uerr.Failed, []string{`result[0] contains "up"`}) {
		t.Errorf("unexpected failed conditions %v", uerr.Failed)
	}
	if !reflect.DeepEqual(uerr.Outputs, []string{"down"}) {
		t.Errorf("unexpected outputs %v", uerr.Outputs)
	}

	if res == nil || res.Attempts != 2 || len(res.FailedConditions) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunCommands_MatchAny(t *testing.T) {
	m := newMockTransport("")
	m.outputs["show environment"] = []string{environmentOutput}
	eng, _ := newTestEngine(m)

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show environment"),
		WaitFor: []string{
			`result[0] contains "RTX830"`,
			`result[0] contains "RTX1210"`,
		},
		Match:   MatchAny,
		Retries: 5,
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}
	if m.callCount("show environment") != 1 {
		t.Errorf("expected one execution, got %d", m.callCount("show environment"))
	}
	if len(res.FailedConditions) != 0 {
		t.Errorf("expected no failed conditions, got %v", res.FailedConditions)
	}
}

func TestRunCommands_EventuallySatisfied(t *testing.T) {
	m := newMockTransport("")
	m.outputs["show status pp 1"] = []string{"Disconnected", "Disconnected", "Connected"}
	eng, sleeps := newTestEngine(m)

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show status pp 1"),
		WaitFor:  []string{`result[0] contains "Connected"`, `result[0] ne "Disconnected"`},
		Interval: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if !reflect.DeepEqual(sleeps.durations, []time.Duration{3 * time.Second, 3 * time.Second}) {
		t.Errorf("unexpected pauses %v", sleeps.durations)
	}
}

func TestRunCommands_ConditionSyntaxError(t *testing.T) {
	m := newMockTransport("")
	eng, _ := newTestEngine(m)

	_, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show environment"),
		WaitFor:  []string{"uptime is high"},
	})
	if CodeOf(err) != ErrCodeCondition {
		t.Fatalf("expected CONDITION_SYNTAX, got %v", err)
	}
	if len(m.batches) != 0 {
		t.Errorf("expected nothing to run, got %v", m.batches)
	}
}

func TestRunCommands_TransportErrorAborts(t *testing.T) {
	m := newMockTransport("")
	m.failOn = "show status"
	eng, sleeps := newTestEngine(m)

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show status"),
		WaitFor:  []string{`result[0] contains "up"`},
		Retries:  5,
	})
	if CodeOf(err) != ErrCodeTransport {
		t.Fatalf("expected TRANSPORT_ERROR, got %v", err)
	}
	if !errors.Is(err, errSessionLost) {
		t.Errorf("expected the transport error in the chain, got %v", err)
	}
	if res.Attempts != 1 || len(sleeps.durations) != 0 {
		t.Errorf("expected the loop to stop after the first attempt, got %d attempts", res.Attempts)
	}

	restore := m.lastBatches(3)
	if !reflect.DeepEqual(restore, [][]string{{"console character sjis"}, {"console lines 24"}, {"console columns 120"}}) {
		t.Errorf("expected console restore after failure, got %v", restore)
	}
}

func TestRunCommands_CheckMode(t *testing.T) {
	m := newMockTransport("")
	eng, _ := newTestEngine(m, WithoutConsoleGuard())

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands:  transports.Commands("show environment", "ip route default gateway pp 1"),
		CheckMode: true,
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}

	if !reflect.DeepEqual(m.batches, [][]string{{"show environment"}}) {
		t.Errorf("expected only show commands, got %v", m.batches)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "ip route default gateway pp 1") {
		t.Errorf("unexpected warnings %v", res.Warnings)
	}
}

func TestRunCommands_ConsoleCommandsBecomeBaseline(t *testing.T) {
	m := newMockTransport("")
	eng, _ := newTestEngine(m)

	_, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("console columns 80", "show environment"),
	})
	if err != nil {
		t.Fatalf("RunCommands failed: %v", err)
	}

	restore := m.lastBatches(3)
	expected := [][]string{{"console character sjis"}, {"console lines 24"}, {"console columns 80"}}
	if !reflect.DeepEqual(restore, expected) {
		t.Errorf("expected restore %v, got %v", expected, restore)
	}
}

func TestRunCommands_IndexOutOfRange(t *testing.T) {
	m := newMockTransport("")
	eng, _ := newTestEngine(m, WithoutConsoleGuard())

	res, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show environment"),
		WaitFor:  []string{`result[3] contains "x"`},
		Retries:  1,
	})
	if CodeOf(err) != ErrCodeUnsatisfied {
		t.Fatalf("expected UNSATISFIED_CONDITIONS, got %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "result[3]") {
		t.Errorf("expected index warning, got %v", res.Warnings)
	}
}

func TestRunCommands_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts CommandOptions
	}{
		{name: "no commands", opts: CommandOptions{}},
		{name: "empty command", opts: CommandOptions{Commands: []transports.Command{{}}}},
		{name: "unknown match", opts: CommandOptions{Commands: transports.Commands("show environment"), Match: "some"}},
		{name: "negative retries", opts: CommandOptions{Commands: transports.Commands("show environment"), Retries: -1}},
		{name: "negative interval", opts: CommandOptions{Commands: transports.Commands("show environment"), Interval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockTransport("")
			eng, _ := newTestEngine(m)

			_, err := eng.RunCommands(context.Background(), tt.opts)
			if CodeOf(err) != ErrCodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			var ee *EngineError
			if errors.As(err, &ee) && (ee.Host != "rtx1" || ee.Operation != OpCommand) {
				t.Errorf("expected host and operation context, got %+v", ee)
			}
			if len(m.batches) != 0 {
				t.Errorf("expected nothing to run")
			}
		})
	}
}

func TestRunCommands_PolicyDenied(t *testing.T) {
	m := newMockTransport("")
	policy := &mockPolicy{forbidden: "clear status"}
	eng, _ := newTestEngine(m, WithPolicy(policy))

	_, err := eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("clear status"),
	})
	if CodeOf(err) != ErrCodePolicyDenied {
		t.Fatalf("expected POLICY_DENIED, got %v", err)
	}
	if len(m.batches) != 0 {
		t.Errorf("expected nothing to run, got %v", m.batches)
	}
}

const runningConfig = `# RTX1210 Rev.14.01.42 (Fri Jan 15 10:00:00 2026)
ip lan1 address 192.168.1.1/24
pp select anonymous
 pp bind tunnel1
 pp auth request mschap-v2
`

func TestApplyConfig_NoChange(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines: []string{"ip lan1 address 192.168.1.1/24"},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if res.Changed || len(res.Commands) != 0 {
		t.Errorf("expected no change, got %+v", res)
	}
	if len(m.edits) != 0 {
		t.Errorf("expected nothing pushed, got %v", m.edits)
	}
}

func TestApplyConfig_LineUnderParent(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines:   []string{"description pp test"},
		Parents: []string{"pp select anonymous"},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	expected := []string{"pp select anonymous", "description pp test", "exit"}
	if !res.Changed || !reflect.DeepEqual(res.Commands, expected) {
		t.Errorf("expected %v, got %+v", expected, res)
	}
	if !reflect.DeepEqual(m.edits, [][]string{expected}) {
		t.Errorf("expected push %v, got %v", expected, m.edits)
	}
}

func TestApplyConfig_BeforeAfter(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		expected []string
	}{
		{
			name:     "wrapped around changes",
			lines:    []string{"ip lan2 address dhcp"},
			expected: []string{"clear arp", "ip lan2 address dhcp", "show arp"},
		},
		{
			name:     "omitted without changes",
			lines:    []string{"ip lan1 address 192.168.1.1/24"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockTransport(runningConfig)
			eng, _ := newTestEngine(m)

			res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
				Lines:  tt.lines,
				Before: []string{"clear arp"},
				After:  []string{"show arp"},
			})
			if err != nil {
				t.Fatalf("ApplyConfig failed: %v", err)
			}
			if !reflect.DeepEqual(res.Commands, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, res.Commands)
			}
		})
	}
}

func TestApplyConfig_Macro(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	_, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines: []string{"macro define greet", "show environment"},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if len(m.macros) != 1 || len(m.edits) != 0 {
		t.Errorf("expected macro form, got macros=%v edits=%v", m.macros, m.edits)
	}
}

func TestApplyConfig_Src(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Src: "ip lan1 address 192.168.1.1/24\npp select anonymous\n pp bind tunnel1\n pp keepalive use on\n",
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	expected := []string{"pp select anonymous", "pp keepalive use on", "exit"}
	if !reflect.DeepEqual(res.Commands, expected) {
		t.Errorf("expected %v, got %v", expected, res.Commands)
	}
}

func TestApplyConfig_CheckMode(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines:     []string{"ip lan2 address dhcp"},
		SaveWhen:  SaveAlways,
		CheckMode: true,
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	if !res.Changed || !reflect.DeepEqual(res.Commands, []string{"ip lan2 address dhcp"}) {
		t.Errorf("expected computed commands, got %+v", res)
	}
	if res.Saved || len(m.edits) != 0 {
		t.Errorf("expected nothing pushed or saved, got %v", m.edits)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "save") {
		t.Errorf("expected save warning, got %v", res.Warnings)
	}
}

func TestApplyConfig_SaveWhen(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		saveWhen  SaveWhen
		wantSaved bool
	}{
		{name: "changed with change", lines: []string{"ip lan2 address dhcp"}, saveWhen: SaveChanged, wantSaved: true},
		{name: "changed without change", lines: []string{"ip lan1 address 192.168.1.1/24"}, saveWhen: SaveChanged, wantSaved: false},
		{name: "always without change", lines: []string{"ip lan1 address 192.168.1.1/24"}, saveWhen: SaveAlways, wantSaved: true},
		{name: "never with change", lines: []string{"ip lan2 address dhcp"}, saveWhen: SaveNever, wantSaved: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockTransport(runningConfig)
			eng, _ := newTestEngine(m)

			res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
				Lines:    tt.lines,
				SaveWhen: tt.saveWhen,
			})
			if err != nil {
				t.Fatalf("ApplyConfig failed: %v", err)
			}
			if res.Saved != tt.wantSaved {
				t.Errorf("expected saved=%v, got %v", tt.wantSaved, res.Saved)
			}

			saved := len(m.edits) > 0 && reflect.DeepEqual(m.edits[len(m.edits)-1], []string{SaveCommand})
			if saved != tt.wantSaved {
				t.Errorf("expected save command sent=%v, edits %v", tt.wantSaved, m.edits)
			}
		})
	}
}

func TestApplyConfig_Backup(t *testing.T) {
	m := newMockTransport(runningConfig)
	rec := newMockRecorder()
	now := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)
	eng, _ := newTestEngine(m, WithRecorder(rec), WithClock(func() time.Time { return now }))

	dir := t.TempDir()
	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Backup:        true,
		BackupOptions: backup.Options{DirPath: dir},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	if res.Backup == nil {
		t.Fatal("expected backup info")
	}
	expectedPath := filepath.Join(dir, "rtx1_config.2026-03-01@09:05:07")
	if res.Backup.Path != expectedPath {
		t.Errorf("expected %s, got %s", expectedPath, res.Backup.Path)
	}
	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(data) != runningConfig {
		t.Errorf("unexpected backup contents %q", data)
	}

	if len(rec.snapshots) != 1 || rec.snapshots[0].Source != "backup" {
		t.Fatalf("expected a backup snapshot, got %v", rec.snapshots)
	}
	if rec.snapshots[0].RunID == nil || *rec.snapshots[0].RunID != res.RunID {
		t.Errorf("expected snapshot linked to run %s", res.RunID)
	}
	if m.getConfigs == nil || len(m.getConfigs) != 1 {
		t.Errorf("expected one configuration read, got %v", m.getConfigs)
	}
}

func TestApplyConfig_DiffAgainstIntended(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Diff:            true,
		DiffAgainst:     DiffAgainstIntended,
		IntendedConfig:  "ip lan1 address 192.168.0.1/24\npp select anonymous\n pp bind tunnel1\n pp auth request mschap-v2\n",
		DiffIgnoreLines: []string{"pp auth"},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	if !res.Changed || res.Diff == nil {
		t.Fatalf("expected a diff, got %+v", res)
	}
	if !strings.Contains(res.Diff.Unified, "-ip lan1 address 192.168.0.1/24") ||
		!strings.Contains(res.Diff.Unified, "+ip lan1 address 192.168.1.1/24") {
		t.Errorf("unexpected unified diff:\n%s", res.Diff.Unified)
	}
	if strings.Contains(res.Diff.After, "pp auth") {
		t.Errorf("expected ignored lines to be dropped, got %q", res.Diff.After)
	}
}

func TestApplyConfig_DiffAgainstRunning(t *testing.T) {
	m := newMockTransport(runningConfig)
	m.afterEdit = runningConfig + "ip lan2 address dhcp\n"
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines:       []string{"ip lan2 address dhcp"},
		Diff:        true,
		DiffAgainst: DiffAgainstRunning,
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if res.Diff == nil || !strings.Contains(res.Diff.Unified, "+ip lan2 address dhcp") {
		t.Fatalf("expected the pushed line in the diff, got %+v", res.Diff)
	}
	if !reflect.DeepEqual(m.getConfigs, []string{"", ""}) {
		t.Errorf("expected a fresh read after the push, got %v", m.getConfigs)
	}
}

func TestApplyConfig_DiffAgainstRunningCheckMode(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines:       []string{"ip lan2 address dhcp"},
		Diff:        true,
		DiffAgainst: DiffAgainstRunning,
		CheckMode:   true,
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if res.Diff != nil {
		t.Errorf("expected no diff in check mode, got %+v", res.Diff)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "check mode") {
		t.Errorf("expected check mode warning, got %v", res.Warnings)
	}
}

func TestApplyConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts ConfigOptions
		want string
	}{
		{name: "lines and src", opts: ConfigOptions{Lines: []string{"a"}, Src: "a"}, want: "lines and src"},
		{name: "parents and src", opts: ConfigOptions{Parents: []string{"a"}, Src: "a"}, want: "parents and src"},
		{name: "strict without lines", opts: ConfigOptions{Src: "a", Match: netconfig.MatchStrict}, want: "match=strict requires lines"},
		{name: "exact without lines", opts: ConfigOptions{Src: "a", Match: netconfig.MatchExact}, want: "match=exact requires lines"},
		{name: "block without lines", opts: ConfigOptions{Src: "a", Replace: netconfig.ReplaceBlock}, want: "replace=block requires lines"},
		{name: "intended without config", opts: ConfigOptions{DiffAgainst: DiffAgainstIntended}, want: "requires intended_config"},
		{name: "unknown match", opts: ConfigOptions{Lines: []string{"a"}, Match: "fuzzy"}, want: "Match"},
		{name: "unknown save_when", opts: ConfigOptions{Lines: []string{"a"}, SaveWhen: "sometimes"}, want: "SaveWhen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockTransport(runningConfig)
			eng, _ := newTestEngine(m)

			_, err := eng.ApplyConfig(context.Background(), tt.opts)
			if CodeOf(err) != ErrCodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestApplyConfig_ParseError(t *testing.T) {
	m := newMockTransport("")
	eng, _ := newTestEngine(m)

	_, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines:         []string{"ip lan2 address dhcp"},
		RunningConfig: "  pp select 1\nip lan1 address 192.168.1.1/24",
	})
	if CodeOf(err) != ErrCodeParse {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	var perr *netconfig.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected *netconfig.ParseError in chain, got %T", err)
	}
}

func TestApplyConfig_PolicyDenied(t *testing.T) {
	m := newMockTransport(runningConfig)
	policy := &mockPolicy{forbidden: "ip lan2 address dhcp"}
	rec := newMockRecorder()
	eng, _ := newTestEngine(m, WithPolicy(policy), WithRecorder(rec))

	_, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines: []string{"ip lan2 address dhcp"},
	})
	if CodeOf(err) != ErrCodePolicyDenied {
		t.Fatalf("expected POLICY_DENIED, got %v", err)
	}
	var perr *PolicyDeniedError
	if !errors.As(err, &perr) || len(perr.Violations) != 1 {
		t.Errorf("expected one violation, got %v", err)
	}
	if len(m.edits) != 0 {
		t.Errorf("expected nothing pushed, got %v", m.edits)
	}
	if run := rec.last(); run == nil || run.Status != stores.RunStatusFailed || run.Error == nil {
		t.Errorf("expected a failed run, got %+v", run)
	}
}

func TestApplyConfig_RecordsRun(t *testing.T) {
	m := newMockTransport(runningConfig)
	rec := newMockRecorder()
	eng, _ := newTestEngine(m, WithRecorder(rec))

	res, err := eng.ApplyConfig(context.Background(), ConfigOptions{
		Lines: []string{"ip lan2 address dhcp"},
	})
	if err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	run := rec.last()
	if run == nil || run.ID != res.RunID {
		t.Fatalf("expected run %s, got %+v", res.RunID, run)
	}
	if run.Status != stores.RunStatusSucceeded || !run.Changed || run.Operation != OpConfig {
		t.Errorf("unexpected run %+v", run)
	}
	if !reflect.DeepEqual(run.Commands, []string{"ip lan2 address dhcp"}) {
		t.Errorf("unexpected recorded commands %v", run.Commands)
	}
	if run.CompletedAt == nil {
		t.Error("expected completion time")
	}
}

func TestRunCommands_RecordsUnsatisfied(t *testing.T) {
	m := newMockTransport("")
	rec := newMockRecorder()
	eng, _ := newTestEngine(m, WithRecorder(rec))

	_, _ = eng.RunCommands(context.Background(), CommandOptions{
		Commands: transports.Commands("show status"),
		WaitFor:  []string{`result[0] contains "up"`},
		Retries:  1,
	})

	run := rec.last()
	if run == nil || run.Status != stores.RunStatusUnsatisfied {
		t.Fatalf("expected unsatisfied run, got %+v", run)
	}
	if !reflect.DeepEqual(run.FailedConditions, []string{`result[0] contains "up"`}) {
		t.Errorf("unexpected failed conditions %v", run.FailedConditions)
	}
}

func TestGetConfig_CacheAndFallback(t *testing.T) {
	m := newMockTransport(runningConfig)
	m.filterUnsupported = true
	eng, _ := newTestEngine(m)
	ctx := context.Background()

	text, err := eng.GetConfig(ctx, "pp 1")
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if text != runningConfig {
		t.Errorf("expected full configuration on fallback")
	}
	if !reflect.DeepEqual(m.getConfigs, []string{"pp 1", ""}) {
		t.Errorf("expected filtered then unfiltered fetch, got %v", m.getConfigs)
	}

	if _, err := eng.GetConfig(ctx, "pp 1"); err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if len(m.getConfigs) != 2 {
		t.Errorf("expected cached result, got fetches %v", m.getConfigs)
	}

	eng.Close()
	if eng.Cache().Len() != 0 {
		t.Error("expected Close to empty the cache")
	}
}

func TestGetConfig_InvalidatedByPush(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)
	ctx := context.Background()

	if _, err := eng.GetConfig(ctx, ""); err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if _, err := eng.ApplyConfig(ctx, ConfigOptions{Lines: []string{"ip lan2 address dhcp"}}); err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	if eng.Cache().Len() != 0 {
		t.Error("expected the push to invalidate the cache")
	}
}

func TestCheckIntended(t *testing.T) {
	m := newMockTransport(runningConfig)
	eng, _ := newTestEngine(m)

	diff, err := eng.CheckIntended(context.Background(), runningConfig, nil)
	if err != nil {
		t.Fatalf("CheckIntended failed: %v", err)
	}
	if diff.Changed {
		t.Errorf("expected no drift, got %+v", diff)
	}

	diff, err = eng.CheckIntended(context.Background(), "ip lan1 address 192.168.1.254/24", nil)
	if err != nil {
		t.Fatalf("CheckIntended failed: %v", err)
	}
	if !diff.Changed || diff.BeforeFingerprint == diff.AfterFingerprint {
		t.Errorf("expected drift, got %+v", diff)
	}
}

func TestCompareConfigs(t *testing.T) {
	tests := []struct {
		name    string
		before  string
		after   string
		ignore  []string
		changed bool
	}{
		{name: "identical", before: runningConfig, after: runningConfig, changed: false},
		{name: "whitespace only", before: "ip lan1 address 192.168.1.1/24\n\n", after: "ip lan1 address 192.168.1.1/24", changed: false},
		{name: "comment only", before: "# header\nip lan1 address 192.168.1.1/24", after: "ip lan1 address 192.168.1.1/24", changed: false},
		{name: "different", before: "ip lan1 address 192.168.1.1/24", after: "ip lan1 address 192.168.1.2/24", changed: true},
		{name: "different but ignored", before: "ntpdate server 1.1.1.1\nip lan1 address 192.168.1.1/24", after: "ip lan1 address 192.168.1.1/24", ignore: []string{"ntpdate"}, changed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, err := CompareConfigs(tt.before, tt.after, tt.ignore)
			if err != nil {
				t.Fatalf("CompareConfigs failed: %v", err)
			}
			if diff.Changed != tt.changed {
				t.Errorf("expected changed=%v, got %v", tt.changed, diff.Changed)
			}
			if !tt.changed && (diff.Unified != "" || diff.Before != "") {
				t.Errorf("expected empty diff text, got %+v", diff)
			}
		})
	}
}

func TestBackup(t *testing.T) {
	m := newMockTransport(runningConfig)
	now := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)
	eng, _ := newTestEngine(m, WithClock(func() time.Time { return now }))

	dir := t.TempDir()
	res, err := eng.Backup(context.Background(), backup.Options{DirPath: dir, Filename: "rtx1.cfg"})
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if res.Info.Path != filepath.Join(dir, "rtx1.cfg") {
		t.Errorf("unexpected path %s", res.Info.Path)
	}
	if res.Fingerprint == "" {
		t.Error("expected a fingerprint")
	}
}

func TestBackup_TransportError(t *testing.T) {
	m := newMockTransport(runningConfig)
	m.failOn = "show config"
	eng, _ := newTestEngine(m, WithoutConsoleGuard())

	_, err := eng.Backup(context.Background(), backup.Options{DirPath: t.TempDir()})
	if CodeOf(err) != ErrCodeTransport {
		t.Fatalf("expected TRANSPORT_ERROR, got %v", err)
	}
}
