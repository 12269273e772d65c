package main

import (
	"net/http"
	"testing"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/e2etest"
	"github.com/myrjola/circuitgen/internal/testhelpers"
	"github.com/myrjola/circuitgen/internal/workout"
)

func lookupTestEnv(key string) (string, bool) {
	switch key {
	case "CIRCUITGEN_ADDR":
		return "localhost:0", true
	case "CIRCUITGEN_SQLITE_URL":
		return ":memory:", true
	case "CIRCUITGEN_OPENAI_API_KEY":
		return "", true
	default:
		return "", false
	}
}

func Test_run(t *testing.T) {
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), lookupTestEnv, run)
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	ctx := t.Context()
	client := server.Client()

	resp, err := client.Get(ctx, "/api/exercises")
	if err != nil {
		t.Fatalf("get exercises: %v", err)
	}
	var exercises struct {
		Exercises []catalog.Exercise `json:"exercises"`
	}
	if err = e2etest.DecodeJSON(resp, http.StatusOK, &exercises); err != nil {
		t.Fatalf("decode exercises: %v", err)
	}
	if len(exercises.Exercises) == 0 {
		t.Fatal("expected a non-empty catalog")
	}

	resp, err = client.PostJSON(ctx, "/api/workouts", workout.Config{ //nolint:exhaustruct // defaults.
		TotalMinutes: 20,
		Difficulty:   catalog.DifficultyBeginner,
	})
	if err != nil {
		t.Fatalf("post workout: %v", err)
	}
	var created workoutResponse
	if err = e2etest.DecodeJSON(resp, http.StatusCreated, &created); err != nil {
		t.Fatalf("decode workout: %v", err)
	}

	resp, err = client.Get(ctx, "/api/share/"+created.ShareCode)
	if err != nil {
		t.Fatalf("get share: %v", err)
	}
	var shared workoutResponse
	if err = e2etest.DecodeJSON(resp, http.StatusOK, &shared); err != nil {
		t.Fatalf("decode shared workout: %v", err)
	}
	if shared.Workout.TotalExercises != created.Workout.TotalExercises {
		t.Errorf("shared workout has %d exercises, want %d", shared.Workout.TotalExercises,
			created.Workout.TotalExercises)
	}
}
