package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/circuitgen/internal/ai"
	"github.com/myrjola/circuitgen/internal/sqlite"
	"github.com/myrjola/circuitgen/internal/workout"
)

type strategyResponse struct {
	Name workout.Strategy                       `json:"name"`
	Days [workout.DaysPerWeek]workout.DayConfig `json:"days"`
}

type planResponse struct {
	workout.Plan
	ShareCode string `json:"share_code"`
}

type weekResponse struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Config    workout.WeekConfig `json:"config"`
	Plans     []planResponse     `json:"plans"`
}

func (app *application) strategiesGET(w http.ResponseWriter, r *http.Request) {
	names := workout.Strategies()
	out := make([]strategyResponse, 0, len(names))
	for _, name := range names {
		days, err := workout.StrategyDays(name)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		out = append(out, strategyResponse{Name: name, Days: days})
	}
	app.writeJSON(w, r, http.StatusOK, struct {
		Strategies []strategyResponse `json:"strategies"`
	}{Strategies: out})
}

// weeksPOST plans and stores a week. A missing start date means today.
func (app *application) weeksPOST(w http.ResponseWriter, r *http.Request) {
	var wc workout.WeekConfig
	if err := readJSON(w, r, &wc); err != nil {
		app.badRequest(w, r, err)
		return
	}
	if wc.StartDate.IsZero() {
		wc.StartDate = app.now()
	}
	plans, err := app.planner.PlanWeek(r.Context(), wc)
	if errors.Is(err, workout.ErrInvalidConfig) || errors.Is(err, workout.ErrUnknownStrategy) {
		app.badRequest(w, r, err)
		return
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("plan week: %w", err))
		return
	}
	week := workout.Week{
		ID:        uuid.NewString(),
		CreatedAt: app.now(),
		Config:    wc,
		Plans:     plans,
	}
	if err = app.db.SaveWeek(r.Context(), week); err != nil {
		app.serverError(w, r, fmt.Errorf("save week: %w", err))
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelInfo, "planned week",
		slog.String("week_id", week.ID), slog.String("strategy", string(wc.Strategy)))
	app.respondWeek(w, r, http.StatusCreated, week)
}

func (app *application) weekGET(w http.ResponseWriter, r *http.Request) {
	week, ok := app.loadWeek(w, r)
	if !ok {
		return
	}
	app.respondWeek(w, r, http.StatusOK, week)
}

// dayRegeneratePOST replaces the workout of one day with fresh exercises.
func (app *application) dayRegeneratePOST(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}
	week, ok := app.loadWeek(w, r)
	if !ok {
		return
	}
	plan, err := app.planner.RegenerateDay(r.Context(), week.Plans, day, week.Config)
	if errors.Is(err, workout.ErrDayOutOfRange) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("regenerate day: %w", err))
		return
	}
	if err = app.db.UpdatePlan(r.Context(), week.ID, day, plan); err != nil {
		app.serverError(w, r, fmt.Errorf("update plan: %w", err))
		return
	}
	app.respondPlan(w, r, plan)
}

func (app *application) dayCompletePOST(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}
	week, ok := app.loadWeek(w, r)
	if !ok {
		return
	}
	plans, err := workout.MarkCompleted(week.Plans, day, app.now())
	if errors.Is(err, workout.ErrDayOutOfRange) {
		app.notFound(w, r)
		return
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("mark completed: %w", err))
		return
	}
	if err = app.db.UpdatePlan(r.Context(), week.ID, day, plans[day]); err != nil {
		app.serverError(w, r, fmt.Errorf("update plan: %w", err))
		return
	}
	app.respondPlan(w, r, plans[day])
}

// weekOverviewGET asks the AI coach for a short summary of the week. Without a working coach the response is 503 with
// a message the client can show.
func (app *application) weekOverviewGET(w http.ResponseWriter, r *http.Request) {
	week, ok := app.loadWeek(w, r)
	if !ok {
		return
	}
	if app.coach == nil {
		app.errorResponse(w, r, http.StatusServiceUnavailable, ai.UserMessage(ai.ErrorTypeNoKey))
		return
	}
	overview, err := app.coach.WeekOverview(r.Context(), week.Plans)
	if err != nil {
		app.errorResponse(w, r, http.StatusServiceUnavailable, ai.UserMessage(ai.Classify(err)))
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]string{"overview": overview})
}

func (app *application) loadWeek(w http.ResponseWriter, r *http.Request) (workout.Week, bool) {
	week, err := app.db.GetWeek(r.Context(), r.PathValue("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		app.notFound(w, r)
		return workout.Week{}, false
	}
	if err != nil {
		app.serverError(w, r, fmt.Errorf("get week: %w", err))
		return workout.Week{}, false
	}
	return week, true
}

func (app *application) withShareCode(p workout.Plan) (planResponse, error) {
	code, err := app.codec.Encode(p.Workout)
	if err != nil {
		return planResponse{}, fmt.Errorf("encode day %s: %w", p.DayOfWeek, err)
	}
	return planResponse{Plan: p, ShareCode: code}, nil
}

func (app *application) respondPlan(w http.ResponseWriter, r *http.Request, p workout.Plan) {
	resp, err := app.withShareCode(p)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, resp)
}

func (app *application) respondWeek(w http.ResponseWriter, r *http.Request, status int, week workout.Week) {
	plans := make([]planResponse, 0, len(week.Plans))
	for _, p := range week.Plans {
		resp, err := app.withShareCode(p)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		plans = append(plans, resp)
	}
	app.writeJSON(w, r, status, weekResponse{
		ID:        week.ID,
		Config:    week.Config,
		Plans:     plans,
		CreatedAt: week.CreatedAt,
	})
}
