package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	// Migrating twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"runs", "snapshots"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{
		Host:      "192.168.100.1",
		Operation: "config",
		Status:    RunStatusRunning,
		StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"match": "line"},
	}

	t.Run("create", func(t *testing.T) {
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID == "" {
			t.Fatal("expected an ID to be assigned")
		}
	})

	t.Run("complete", func(t *testing.T) {
		run.Status = RunStatusSucceeded
		run.Changed = true
		run.Commands = []string{"pp select anonymous", "description pp test", "exit"}
		if err := store.CompleteRun(ctx, run); err != nil {
			t.Fatalf("failed to complete run: %v", err)
		}
		if run.CompletedAt == nil {
			t.Error("expected completion time to be set")
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.GetRun(ctx, run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != RunStatusSucceeded || !got.Changed {
			t.Errorf("unexpected run state: status=%s changed=%v", got.Status, got.Changed)
		}
		if len(got.Commands) != 3 || got.Commands[1] != "description pp test" {
			t.Errorf("unexpected commands: %v", got.Commands)
		}
		if len(got.FailedConditions) != 0 {
			t.Errorf("expected no failed conditions, got %v", got.FailedConditions)
		}
		if got.Metadata["match"] != "line" {
			t.Errorf("expected metadata to round-trip, got %v", got.Metadata)
		}
		if !got.StartedAt.Equal(run.StartedAt) {
			t.Errorf("expected started_at %v, got %v", run.StartedAt, got.StartedAt)
		}
		if got.CompletedAt == nil {
			t.Error("expected completed_at")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteRun(ctx, run.ID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := store.GetRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteRun(ctx, run.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("complete missing", func(t *testing.T) {
		err := store.CompleteRun(ctx, &Run{ID: "missing", Status: RunStatusFailed})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*Run{
		{Host: "rtx1", Operation: "command", Status: RunStatusSucceeded, StartedAt: base},
		{Host: "rtx1", Operation: "config", Status: RunStatusSucceeded, StartedAt: base.Add(time.Minute)},
		{Host: "rtx2", Operation: "command", Status: RunStatusUnsatisfied, StartedAt: base.Add(2 * time.Minute),
			FailedConditions: []string{`result[0] contains "up"`}},
	}
	for _, r := range runs {
		if err := store.CreateRun(ctx, r); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter RunFilter
		want   []string
	}{
		{name: "all newest first", filter: RunFilter{}, want: []string{runs[2].ID, runs[1].ID, runs[0].ID}},
		{name: "by host", filter: RunFilter{Host: "rtx1"}, want: []string{runs[1].ID, runs[0].ID}},
		{name: "by operation", filter: RunFilter{Operation: "command"}, want: []string{runs[2].ID, runs[0].ID}},
		{name: "limit", filter: RunFilter{Limit: 1}, want: []string{runs[2].ID}},
		{name: "offset", filter: RunFilter{Limit: 1, Offset: 1}, want: []string{runs[1].ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("failed to list runs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d runs, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], got[i].ID)
				}
			}
		})
	}

	got, err := store.ListRuns(ctx, RunFilter{Host: "rtx2"})
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(got[0].FailedConditions) != 1 {
		t.Errorf("expected failed condition to round-trip, got %v", got[0].FailedConditions)
	}
}

func TestSnapshots(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{Host: "rtx1", Operation: "backup", Status: RunStatusSucceeded}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &Snapshot{Host: "rtx1", Source: "backup", Fingerprint: "aa", Content: "ip lan1 address 192.168.100.1/24", TakenAt: base}
	newer := &Snapshot{RunID: &run.ID, Host: "rtx1", Source: "config", Fingerprint: "bb", Content: "ip lan1 address 192.168.0.1/24", TakenAt: base.Add(time.Hour)}
	other := &Snapshot{Host: "rtx2", Source: "backup", Fingerprint: "cc", Content: "pp select 1", TakenAt: base}

	for _, s := range []*Snapshot{older, newer, other} {
		if err := store.SaveSnapshot(ctx, s); err != nil {
			t.Fatalf("failed to save snapshot: %v", err)
		}
	}

	t.Run("latest", func(t *testing.T) {
		got, err := store.LatestSnapshot(ctx, "rtx1")
		if err != nil {
			t.Fatalf("failed to get latest snapshot: %v", err)
		}
		if got.ID != newer.ID || got.Content != newer.Content {
			t.Errorf("expected newest snapshot, got %+v", got)
		}
		if got.RunID == nil || *got.RunID != run.ID {
			t.Errorf("expected run id %s, got %v", run.ID, got.RunID)
		}
	})

	t.Run("latest missing host", func(t *testing.T) {
		if _, err := store.LatestSnapshot(ctx, "rtx9"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list omits content", func(t *testing.T) {
		got, err := store.ListSnapshots(ctx, "rtx1", 0)
		if err != nil {
			t.Fatalf("failed to list snapshots: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 snapshots, got %d", len(got))
		}
		if got[0].ID != newer.ID || got[1].ID != older.ID {
			t.Errorf("expected newest first")
		}
		if got[0].Content != "" {
			t.Errorf("expected content to be omitted, got %q", got[0].Content)
		}
	})

	t.Run("get with content", func(t *testing.T) {
		got, err := store.GetSnapshot(ctx, other.ID)
		if err != nil {
			t.Fatalf("failed to get snapshot: %v", err)
		}
		if got.Content != "pp select 1" {
			t.Errorf("unexpected content %q", got.Content)
		}
	})

	t.Run("deleting a run keeps its snapshot", func(t *testing.T) {
		if err := store.DeleteRun(ctx, run.ID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		got, err := store.GetSnapshot(ctx, newer.ID)
		if err != nil {
			t.Fatalf("failed to get snapshot: %v", err)
		}
		if got.RunID != nil {
			t.Errorf("expected run id to be cleared, got %v", *got.RunID)
		}
	})
}
