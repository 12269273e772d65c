package share_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/share"
	"github.com/myrjola/circuitgen/internal/workout"
)

var createdAt = time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture.

func exercise(id string, category catalog.Category, primary ...string) catalog.Exercise {
	return catalog.Exercise{
		ID:               id,
		Name:             id,
		Instructions:     "Do the " + id + ".",
		Category:         category,
		PrimaryMuscles:   primary,
		SecondaryMuscles: nil,
		Difficulty:       catalog.DifficultyBeginner,
		Equipment:        nil,
		RepScheme:        catalog.RepScheme{Type: catalog.SchemeReps, Count: 10, Seconds: 0},
		IsWarmUp:         false,
		IsCoolDown:       false,
	}
}

func mustCatalog(t *testing.T, exercises ...catalog.Exercise) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(exercises)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}

// Test_RoundTrip verifies that decoding an encoded workout restores its structure.
func Test_RoundTrip(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	g, err := workout.NewGenerator(c, workout.WithClock(func() time.Time { return createdAt }))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	codec := share.NewCodec(c)

	configs := []workout.Config{
		{
			TotalMinutes:       30,
			AvailableEquipment: nil,
			Difficulty:         catalog.DifficultyBeginner,
			Focus:              workout.FocusBalanced,
			VolumeModifier:     1,
		},
		{
			TotalMinutes:       45,
			AvailableEquipment: []catalog.Equipment{"dumbbells", "pull_up_bar"},
			Difficulty:         catalog.DifficultyAdvanced,
			Focus:              workout.FocusPull,
			TargetMuscles:      []string{"lats"},
			AvoidMuscles:       []string{"lower_back"},
			VolumeModifier:     1.5,
			EmphasizeCardio:    true,
		},
		{
			TotalMinutes:   20,
			Difficulty:     catalog.DifficultyIntermediate,
			Focus:          workout.FocusFlexibility,
			VolumeModifier: 1,
		},
	}

	for _, cfg := range configs {
		t.Run(string(cfg.Focus), func(t *testing.T) {
			want, err := g.Generate(cfg)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			code, err := codec.Encode(want)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, ok := codec.Decode(code)
			if !ok {
				t.Fatalf("decode %q failed", code)
			}
			opts := cmpopts.IgnoreFields(workout.GeneratedWorkout{}, "ID", "AvoidMusclesRelaxed")
			if diff := cmp.Diff(want, got, opts, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if got.ID == "" {
				t.Error("decoded workout has no id")
			}
		})
	}
}

// Test_CodeAlphabet verifies that codes contain only URL-safe characters and no padding.
func Test_CodeAlphabet(t *testing.T) {
	c := mustCatalog(t, exercise("squat", catalog.CategoryLegs, "quads"))
	squat, _ := c.At(0)
	w := workout.NewGeneratedWorkout("w1", createdAt, workout.Config{
		TotalMinutes: 10,
		Difficulty:   catalog.DifficultyBeginner,
	},
		workout.NewPhase(workout.PhaseWarmUp, nil),
		workout.NewPhase(workout.PhaseMain, []workout.CircuitBlock{{
			Name:                        "Circuit 1",
			Exercises:                   []workout.WorkoutExercise{{Exercise: squat, Reps: 12}},
			Rounds:                      2,
			RestBetweenExercisesSeconds: 15,
			RestBetweenRoundsSeconds:    60,
		}}),
		workout.NewPhase(workout.PhaseCoolDown, nil),
	)

	code, err := share.NewCodec(c).Encode(w)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, r := range code {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
		if !ok {
			t.Fatalf("code %q contains %q", code, r)
		}
	}
}

// Test_DecodeDropsRemovedExercises verifies that exercises missing from the catalog are skipped and totals
// recomputed.
func Test_DecodeDropsRemovedExercises(t *testing.T) {
	squat := exercise("squat", catalog.CategoryLegs, "quads")
	pushUp := exercise("push-up", catalog.CategoryPush, "chest")
	row := exercise("row", catalog.CategoryPull, "lats")
	full := mustCatalog(t, squat, pushUp, row)

	w := workout.NewGeneratedWorkout("w1", createdAt, workout.Config{
		TotalMinutes: 10,
		Difficulty:   catalog.DifficultyBeginner,
	},
		workout.NewPhase(workout.PhaseWarmUp, nil),
		workout.NewPhase(workout.PhaseMain, []workout.CircuitBlock{
			{
				Name: "Circuit 1",
				Exercises: []workout.WorkoutExercise{
					{Exercise: squat, Reps: 10},
					{Exercise: pushUp, Reps: 10},
				},
				Rounds: 1,
			},
			{
				Name:      "Circuit 2",
				Exercises: []workout.WorkoutExercise{{Exercise: row, Reps: 10}},
				Rounds:    1,
			},
		}),
		workout.NewPhase(workout.PhaseCoolDown, nil),
	)
	code, err := share.NewCodec(full).Encode(w)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, ok := share.NewCodec(mustCatalog(t, squat, pushUp)).Decode(code)
	if !ok {
		t.Fatal("decode failed")
	}
	if diff := cmp.Diff([]string{"squat", "push-up"}, got.ExerciseIDs()); diff != "" {
		t.Errorf("exercise ids mismatch (-want +got):\n%s", diff)
	}
	if got.TotalExercises != 2 {
		t.Errorf("total exercises = %d, want 2", got.TotalExercises)
	}
	if len(got.Main.Blocks) != 1 {
		t.Errorf("got %d main blocks, want the emptied block dropped", len(got.Main.Blocks))
	}
	// 20 reps at 3 seconds each is one minute.
	if got.TotalEstimatedMinutes != 1 {
		t.Errorf("total minutes = %d, want 1", got.TotalEstimatedMinutes)
	}
	if _, ok = got.MuscleGroupCoverage["lats"]; ok {
		t.Error("coverage still contains the removed exercise's muscle")
	}
}

// Test_DecodeLegacy verifies that verbose version 1 codes are still accepted, including padded standard base64.
func Test_DecodeLegacy(t *testing.T) {
	c := mustCatalog(t,
		exercise("squat", catalog.CategoryLegs, "quads"),
		exercise("plank", catalog.CategoryCore, "core"),
	)
	legacy := `{"v":1,"createdAt":"2025-03-03T07:30:00Z",` +
		`"config":{"total_minutes":15,"difficulty":"beginner","focus":"legs"},` +
		`"phases":[{"name":"Warm-Up","blocks":[]},{"name":"Main Workout","blocks":[{"name":"Circuit 1","rounds":2,` +
		`"restBetweenExercises":15,"restBetweenRounds":60,"exercises":[` +
		`{"exerciseId":"squat","reps":12},{"exerciseId":"lunge","reps":8,"perSide":true},` +
		`{"exerciseId":"plank","durationSeconds":30}]}]}]}`
	code := base64.StdEncoding.EncodeToString([]byte(legacy))

	got, ok := share.NewCodec(c).Decode(code)
	if !ok {
		t.Fatal("decode failed")
	}
	if diff := cmp.Diff([]string{"squat", "plank"}, got.ExerciseIDs()); diff != "" {
		t.Errorf("exercise ids mismatch (-want +got):\n%s", diff)
	}
	if got.Config.Focus != workout.FocusLegs || got.Config.TotalMinutes != 15 {
		t.Errorf("config = %+v", got.Config)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("created at = %v, want %v", got.CreatedAt, createdAt)
	}
	if got.CoolDown.Name != workout.PhaseCoolDown || len(got.CoolDown.Blocks) != 0 {
		t.Errorf("missing cool-down phase = %+v, want empty", got.CoolDown)
	}
	// (36 + 30 + 15) * 2 + 60 seconds.
	if got.Main.EstimatedMinutes != 4 {
		t.Errorf("main minutes = %d, want 4", got.Main.EstimatedMinutes)
	}
}

// Test_DecodeRestoresMissingVolume verifies that exercises decoded without reps or a duration get their catalog
// prescription scaled by the volume modifier.
func Test_DecodeRestoresMissingVolume(t *testing.T) {
	plank := exercise("plank", catalog.CategoryCore, "core")
	plank.RepScheme = catalog.RepScheme{Type: catalog.SchemeTimed, Count: 0, Seconds: 30}
	lunge := exercise("lunge", catalog.CategoryLegs, "glutes")
	lunge.RepScheme = catalog.RepScheme{Type: catalog.SchemeEachSide, Count: 8, Seconds: 0}
	c := share.NewCodec(mustCatalog(t, exercise("squat", catalog.CategoryLegs, "quads"), plank, lunge))

	type volume struct {
		ID       string
		Reps     int
		Duration int
		PerSide  bool
	}
	tests := []struct {
		name    string
		payload string
		want    []volume
	}{
		{
			name: "current version",
			payload: `{"v":2,"c":{"m":15,"d":"beginner","o":1.5},"p":[{"n":"Warm-Up","b":[]},{"n":"Main Workout","b":[` +
				`{"n":"Circuit 1","r":2,"x":[{"i":0},{"i":1},{"i":2,"r":-3},{"i":0,"r":4}]}]}]}`,
			want: []volume{
				{ID: "squat", Reps: 15, Duration: 0, PerSide: false},
				{ID: "plank", Reps: 0, Duration: 45, PerSide: false},
				{ID: "lunge", Reps: 12, Duration: 0, PerSide: true},
				{ID: "squat", Reps: 4, Duration: 0, PerSide: false},
			},
		},
		{
			name: "legacy version",
			payload: `{"v":1,"createdAt":"2025-03-03T07:30:00Z","config":{"total_minutes":15,"difficulty":"beginner"},` +
				`"phases":[{"name":"Warm-Up","blocks":[]},{"name":"Main Workout","blocks":[{"name":"Circuit 1","rounds":2,` +
				`"exercises":[{"exerciseId":"squat"},{"exerciseId":"plank","durationSeconds":0}]}]}]}`,
			want: []volume{
				{ID: "squat", Reps: 10, Duration: 0, PerSide: false},
				{ID: "plank", Reps: 0, Duration: 30, PerSide: false},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Decode(base64.RawURLEncoding.EncodeToString([]byte(tt.payload)))
			if !ok {
				t.Fatal("decode failed")
			}
			var volumes []volume
			for _, we := range got.Main.Exercises() {
				if we.Reps <= 0 && we.DurationSeconds <= 0 {
					t.Errorf("%s has neither reps nor a duration", we.Exercise.ID)
				}
				volumes = append(volumes, volume{
					ID:       we.Exercise.ID,
					Reps:     we.Reps,
					Duration: we.DurationSeconds,
					PerSide:  we.PerSide,
				})
			}
			if diff := cmp.Diff(tt.want, volumes); diff != "" {
				t.Errorf("volumes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Test_DecodeRejectsGarbage verifies that malformed codes report failure instead of panicking.
func Test_DecodeRejectsGarbage(t *testing.T) {
	codec := share.NewCodec(mustCatalog(t, exercise("squat", catalog.CategoryLegs, "quads")))
	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "not base64", code: "!!!***"},
		{name: "not json", code: encode("hello")},
		{name: "unknown version", code: encode(`{"v":9,"p":[]}`)},
		{name: "missing version", code: encode(`{"p":[]}`)},
		{name: "wrong types", code: encode(`{"v":2,"p":"nope"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := codec.Decode(tt.code); ok {
				t.Errorf("Decode(%q) succeeded, want failure", tt.code)
			}
		})
	}
}
