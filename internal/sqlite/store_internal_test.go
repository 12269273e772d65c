package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/testhelpers"
	"github.com/myrjola/circuitgen/internal/workout"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture.

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("new database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return db
}

func newTestGenerator(t *testing.T, now time.Time) *workout.Generator {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	g, err := workout.NewGenerator(c, workout.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestDatabase_Workouts(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db := newTestDatabase(t)

	if _, err := db.GetWorkout(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetWorkout(missing) err = %v, want ErrNotFound", err)
	}

	var saved []workout.GeneratedWorkout
	for i, focus := range []workout.Focus{workout.FocusPush, workout.FocusLegs, workout.FocusFlexibility} {
		g := newTestGenerator(t, monday.Add(time.Duration(i)*time.Hour))
		w, err := g.Generate(workout.Config{TotalMinutes: 25, Difficulty: catalog.DifficultyIntermediate, Focus: focus})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if err = db.SaveWorkout(ctx, w); err != nil {
			t.Fatalf("save workout: %v", err)
		}
		saved = append(saved, w)
	}

	got, err := db.GetWorkout(ctx, saved[0].ID)
	if err != nil {
		t.Fatalf("get workout: %v", err)
	}
	if diff := cmp.Diff(saved[0], got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("stored workout mismatch (-want +got):\n%s", diff)
	}

	// Saving again replaces the document.
	updated := saved[0]
	updated.StretchPairing = &workout.StretchPairing{TargetedMuscles: []string{"chest"}, AIEnhanced: true, AIReasoning: "x"}
	if err = db.SaveWorkout(ctx, updated); err != nil {
		t.Fatalf("resave workout: %v", err)
	}
	if got, err = db.GetWorkout(ctx, updated.ID); err != nil {
		t.Fatalf("get workout: %v", err)
	}
	if got.StretchPairing == nil || !got.StretchPairing.AIEnhanced {
		t.Errorf("stretch pairing = %+v, want the updated one", got.StretchPairing)
	}

	list, err := db.ListWorkouts(ctx, 2)
	if err != nil {
		t.Fatalf("list workouts: %v", err)
	}
	var ids []string
	for _, w := range list {
		ids = append(ids, w.ID)
	}
	if diff := cmp.Diff([]string{saved[2].ID, saved[1].ID}, ids); diff != "" {
		t.Errorf("listed ids mismatch (-want +got):\n%s", diff)
	}
}

func TestDatabase_Weeks(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db := newTestDatabase(t)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))

	wc := workout.WeekConfig{
		StartDate: monday,
		Strategy:  workout.StrategyUpperLower,
		Base:      workout.Config{TotalMinutes: 30, Difficulty: catalog.DifficultyBeginner},
		UseAI:     false,
	}
	planner := workout.NewPlanner(newTestGenerator(t, monday), nil, logger)
	plans, err := planner.PlanWeek(ctx, wc)
	if err != nil {
		t.Fatalf("plan week: %v", err)
	}
	week := workout.Week{ID: "week-1", CreatedAt: monday.Add(90 * time.Minute), Config: wc, Plans: plans}

	if _, err = db.GetWeek(ctx, week.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetWeek before save err = %v, want ErrNotFound", err)
	}
	if err = db.SaveWeek(ctx, week); err != nil {
		t.Fatalf("save week: %v", err)
	}
	if err = db.SaveWeek(ctx, week); err == nil {
		t.Error("saving the same week twice succeeded, want a constraint error")
	}

	got, err := db.GetWeek(ctx, week.ID)
	if err != nil {
		t.Fatalf("get week: %v", err)
	}
	if diff := cmp.Diff(week, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("stored week mismatch (-want +got):\n%s", diff)
	}

	completed, err := workout.MarkCompleted(got.Plans, 2, monday.Add(50*time.Hour))
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err = db.UpdatePlan(ctx, week.ID, 2, completed[2]); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if got, err = db.GetWeek(ctx, week.ID); err != nil {
		t.Fatalf("get week: %v", err)
	}
	if !got.Plans[2].Completed || got.Plans[2].CompletedAt == nil {
		t.Errorf("plan 3 = %+v, want completed", got.Plans[2])
	}
	if got.Plans[1].Completed {
		t.Error("sibling plan was completed too")
	}

	if err = db.UpdatePlan(ctx, "missing", 0, completed[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePlan(missing) err = %v, want ErrNotFound", err)
	}
}

// TestDatabase_migrateKeepsRows verifies that rebuilding a changed table preserves its rows.
func TestDatabase_migrateKeepsRows(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := connect(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = db.migrate(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "INSERT INTO test (name) VALUES ('kept')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = db.migrate(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT, focus TEXT NOT NULL DEFAULT 'balanced')"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var name, focus string
	if err = db.ReadOnly.QueryRowContext(ctx, "SELECT name, focus FROM test").Scan(&name, &focus); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name != "kept" || focus != "balanced" {
		t.Errorf("row = (%q, %q), want (kept, balanced)", name, focus)
	}
}
