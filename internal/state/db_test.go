package state

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new migrated database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMigrated(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")

	db, err := Open(filepath.Join(nested, "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Nothing can be created under /proc.
	if _, err := Open("/proc/nonexistent/test.db"); err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if v != 3 {
		t.Errorf("schema version = %d, want 3", v)
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO runs (id, input, policy, started_at) VALUES ('r', 'x', 'p', '2026')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}

	if _, err := db.GetRun(ctx, "r"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected rolled back insert, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	if err := db.StartRun(ctx, "run-1", "how many years since 2012", "compound", start); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	r, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if r.Status != RunRunning || r.FinishedAt != nil {
		t.Errorf("new run = %+v, want running with no finish time", r)
	}
	if !r.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, start)
	}

	steps := []models.StepRecord{
		{ID: 1, Text: "Get the current year", Kind: models.StepTool, Tool: models.ToolSystemTime, Strategy: "tool", Result: "2026"},
		{ID: 2, Text: "Find the launch year", Kind: models.StepReasoning, Strategy: "race", Result: "2012",
			Votes: &models.VoteStats{Attempts: 5, Admitted: 2, Decided: true}, Failed: true},
		{ID: 3, Text: "Subtract", Rendered: "2026 - 2012", Kind: models.StepMath, Tool: models.ToolCalculator, Strategy: "tool", Result: "14"},
	}
	// Insert out of order; Steps must return them by id.
	for _, i := range []int{2, 0, 1} {
		if err := db.RecordStep(ctx, "run-1", steps[i]); err != nil {
			t.Fatalf("RecordStep(%d) failed: %v", steps[i].ID, err)
		}
	}

	finish := start.Add(1500 * time.Millisecond)
	if err := db.FinishRun(ctx, "run-1", models.StatusDone, "14", finish); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	r, err = db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if r.Status != string(models.StatusDone) || r.Message != "14" {
		t.Errorf("finished run = %+v", r)
	}
	if r.Duration() != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", r.Duration())
	}

	got, err := db.Steps(ctx, "run-1")
	if err != nil {
		t.Fatalf("Steps failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(got))
	}
	for i, s := range got {
		if s.ID != i+1 {
			t.Errorf("step %d has id %d", i, s.ID)
		}
	}
	if got[1].Votes == nil || got[1].Votes.Admitted != 2 || !got[1].Votes.Decided {
		t.Errorf("votes not round-tripped: %+v", got[1].Votes)
	}
	if got[2].Rendered != "2026 - 2012" || got[2].Tool != models.ToolCalculator {
		t.Errorf("step 3 = %+v", got[2])
	}
	if got[0].Votes != nil {
		t.Errorf("tool step should have no votes, got %+v", got[0].Votes)
	}
	if got[0].Failed || !got[1].Failed {
		t.Errorf("failed flags = %v, %v, want false, true", got[0].Failed, got[1].Failed)
	}
}

func TestFinishRun_Unknown(t *testing.T) {
	db := setupTestDB(t)

	err := db.FinishRun(context.Background(), "ghost", models.StatusFailed, "", time.Now())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestRecordStep_UnknownRun(t *testing.T) {
	db := setupTestDB(t)

	err := db.RecordStep(context.Background(), "ghost", models.StepRecord{ID: 1, Text: "x", Kind: models.StepReasoning, Strategy: "probe"})
	if err == nil {
		t.Error("expected foreign key violation for unknown run")
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := db.StartRun(ctx, id, "q", "single_probe", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("StartRun(%s) failed: %v", id, err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("ListRuns(2) = %+v, want c then b", runs)
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestMarkInterrupted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if err := db.StartRun(ctx, "done", "q", "single_probe", now); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(ctx, "done", models.StatusDone, "ok", now); err != nil {
		t.Fatal(err)
	}
	if err := db.StartRun(ctx, "stuck", "q", "race", now); err != nil {
		t.Fatal(err)
	}

	ids, err := db.MarkInterrupted(ctx, now)
	if err != nil {
		t.Fatalf("MarkInterrupted failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "stuck" {
		t.Errorf("MarkInterrupted() = %v, want [stuck]", ids)
	}

	r, err := db.GetRun(ctx, "stuck")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != RunInterrupted || r.FinishedAt == nil {
		t.Errorf("stuck run = %+v", r)
	}

	r, err = db.GetRun(ctx, "done")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != string(models.StatusDone) {
		t.Errorf("finished run was touched: %+v", r)
	}
}

func TestPurgeOldRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.StartRun(ctx, "old", "q", "race", time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordStep(ctx, "old", models.StepRecord{ID: 1, Text: "x", Kind: models.StepReasoning, Strategy: "probe"}); err != nil {
		t.Fatal(err)
	}
	if err := db.StartRun(ctx, "new", "q", "race", time.Now()); err != nil {
		t.Fatal(err)
	}

	n, err := db.PurgeOldRuns(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldRuns failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d runs, want 1", n)
	}

	steps, err := db.Steps(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 0 {
		t.Errorf("expected steps to cascade, got %d", len(steps))
	}
}

func TestFormatAndParseTime(t *testing.T) {
	orig := time.Date(2026, 1, 2, 3, 4, 5, 600, time.FixedZone("X", 3600))
	parsed, err := parseTime(formatTime(orig))
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("parsed = %v, want %v", parsed, orig)
	}

	if formatTime(orig.Add(time.Second)) <= formatTime(orig.Add(500*time.Millisecond)) {
		t.Error("formatted times must sort chronologically")
	}
}

func TestParseNullableTime(t *testing.T) {
	if parseNullableTime(sql.NullString{}) != nil {
		t.Error("expected nil for NULL")
	}
	if parseNullableTime(sql.NullString{String: "garbage", Valid: true}) != nil {
		t.Error("expected nil for unparseable time")
	}
	if parseNullableTime(sql.NullString{String: "2026-10-18T09:30:00.000000000Z", Valid: true}) == nil {
		t.Error("expected a time for a valid value")
	}
}
