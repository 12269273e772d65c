package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/sqlite"
	"github.com/myrjola/circuitgen/internal/workout"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type workoutResponse struct {
	Workout   workout.GeneratedWorkout `json:"workout"`
	ShareCode string                   `json:"share_code"`
}

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *application) exercisesGET(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, struct {
		Exercises []catalog.Exercise `json:"exercises"`
	}{Exercises: app.catalog.All()})
}

func (app *application) workoutsGET(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			app.badRequest(w, r, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxListLimit)
	}
	workouts, err := app.db.ListWorkouts(r.Context(), limit)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("list workouts: %w", err))
		return
	}
	if workouts == nil {
		workouts = []workout.GeneratedWorkout{}
	}
	app.writeJSON(w, r, http.StatusOK, struct {
		Workouts []workout.GeneratedWorkout `json:"workouts"`
	}{Workouts: workouts})
}

// workoutsPOST generates, stores and returns a workout. The query parameter ai=true runs the stretch advice step when
// the AI coach is configured.
func (app *application) workoutsPOST(w http.ResponseWriter, r *http.Request) {
	var cfg workout.Config
	if err := readJSON(w, r, &cfg); err != nil {
		app.badRequest(w, r, err)
		return
	}
	generated, err := app.generator.Generate(cfg)
	if errors.Is(err, workout.ErrInvalidConfig) {
		app.badRequest(w, r, err)
		return
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("generate workout: %w", err))
		return
	}
	if r.URL.Query().Get("ai") == "true" {
		generated = app.enhancer.Enhance(r.Context(), generated)
	}
	if err = app.db.SaveWorkout(r.Context(), generated); err != nil {
		app.serverError(w, r, fmt.Errorf("save workout: %w", err))
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "generated workout",
		slog.String("workout_id", generated.ID), slog.String("focus", string(generated.Config.Focus)),
		slog.Int("minutes", generated.TotalEstimatedMinutes))
	app.respondWorkout(w, r, http.StatusCreated, generated)
}

func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	stored, err := app.db.GetWorkout(r.Context(), r.PathValue("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("get workout: %w", err))
		return
	}
	app.respondWorkout(w, r, http.StatusOK, stored)
}

// shareGET rebuilds a workout from a share code. The decoded workout is not stored.
func (app *application) shareGET(w http.ResponseWriter, r *http.Request) {
	decoded, ok := app.codec.Decode(r.PathValue("code"))
	if !ok {
		app.badRequest(w, r, errors.New("invalid share code"))
		return
	}
	app.respondWorkout(w, r, http.StatusOK, decoded)
}

func (app *application) respondWorkout(w http.ResponseWriter, r *http.Request, status int, gw workout.GeneratedWorkout) {
	code, err := app.codec.Encode(gw)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("encode share code: %w", err))
		return
	}
	app.writeJSON(w, r, status, workoutResponse{Workout: gw, ShareCode: code})
}
