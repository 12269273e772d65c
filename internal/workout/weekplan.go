package workout

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Week planning constants.
const (
	DaysPerWeek = 7
	// FlexibilityDayMaxMinutes caps the duration of flexibility and recovery days.
	FlexibilityDayMaxMinutes = 30
	// recoveryLookbackDays is how many preceding days feed the avoided muscles.
	recoveryLookbackDays = 2
)

// Strategy names a 7-day rotation template.
type Strategy string

const (
	StrategyPushPullLegs   Strategy = "push_pull_legs"
	StrategyUpperLower     Strategy = "upper_lower"
	StrategyFullBody       Strategy = "full_body"
	StrategyCardioStrength Strategy = "cardio_strength"
)

// DayConfig is one day of a rotation strategy.
type DayConfig struct {
	Focus           Focus    `json:"focus"`
	TargetMuscles   []string `json:"target_muscles,omitempty"`
	EmphasizeCardio bool     `json:"emphasize_cardio,omitempty"`
}

var recoveryDay = DayConfig{Focus: FocusFlexibility, TargetMuscles: nil, EmphasizeCardio: false} //nolint:gochecknoglobals // static.

var strategies = map[Strategy][DaysPerWeek]DayConfig{ //nolint:gochecknoglobals // static lookup table.
	StrategyPushPullLegs: {
		{Focus: FocusPush, TargetMuscles: []string{"chest", "shoulders", "triceps"}, EmphasizeCardio: false},
		{Focus: FocusPull, TargetMuscles: []string{"upper_back", "lats", "biceps"}, EmphasizeCardio: false},
		{Focus: FocusLegs, TargetMuscles: []string{"quads", "glutes", "hamstrings"}, EmphasizeCardio: false},
		{Focus: FocusPush, TargetMuscles: []string{"shoulders", "chest"}, EmphasizeCardio: false},
		{Focus: FocusPull, TargetMuscles: []string{"lats", "lower_back"}, EmphasizeCardio: false},
		{Focus: FocusLegs, TargetMuscles: []string{"glutes", "calves"}, EmphasizeCardio: true},
		recoveryDay,
	},
	StrategyUpperLower: {
		{Focus: FocusPush, TargetMuscles: []string{"chest", "upper_back", "shoulders"}, EmphasizeCardio: false},
		{Focus: FocusLegs, TargetMuscles: []string{"quads", "hamstrings"}, EmphasizeCardio: false},
		{Focus: FocusCore, TargetMuscles: []string{"core", "obliques"}, EmphasizeCardio: true},
		{Focus: FocusPull, TargetMuscles: []string{"lats", "biceps", "shoulders"}, EmphasizeCardio: false},
		{Focus: FocusLegs, TargetMuscles: []string{"glutes", "calves"}, EmphasizeCardio: false},
		{Focus: FocusBalanced, TargetMuscles: nil, EmphasizeCardio: true},
		recoveryDay,
	},
	StrategyFullBody: {
		{Focus: FocusBalanced, TargetMuscles: nil, EmphasizeCardio: false},
		{Focus: FocusCardio, TargetMuscles: nil, EmphasizeCardio: true},
		{Focus: FocusBalanced, TargetMuscles: []string{"glutes", "upper_back"}, EmphasizeCardio: false},
		{Focus: FocusCore, TargetMuscles: []string{"core"}, EmphasizeCardio: false},
		{Focus: FocusBalanced, TargetMuscles: []string{"chest", "quads"}, EmphasizeCardio: false},
		{Focus: FocusCardio, TargetMuscles: nil, EmphasizeCardio: true},
		recoveryDay,
	},
	StrategyCardioStrength: {
		{Focus: FocusCardio, TargetMuscles: nil, EmphasizeCardio: true},
		{Focus: FocusPush, TargetMuscles: []string{"chest", "triceps"}, EmphasizeCardio: false},
		{Focus: FocusCardio, TargetMuscles: []string{"calves"}, EmphasizeCardio: true},
		{Focus: FocusLegs, TargetMuscles: []string{"quads", "glutes"}, EmphasizeCardio: false},
		{Focus: FocusCardio, TargetMuscles: []string{"core"}, EmphasizeCardio: true},
		{Focus: FocusPull, TargetMuscles: []string{"upper_back", "lats"}, EmphasizeCardio: false},
		recoveryDay,
	},
}

// Strategies lists the built-in strategy names in a stable order.
func Strategies() []Strategy {
	out := make([]Strategy, 0, len(strategies))
	for s := range strategies {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// StrategyDays returns the day templates of s.
func StrategyDays(s Strategy) ([DaysPerWeek]DayConfig, error) {
	days, ok := strategies[s]
	if !ok {
		return [DaysPerWeek]DayConfig{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return days, nil
}

// WeekConfig is a week plan request. Base provides the equipment, difficulty, duration and volume shared by every
// day; focus, targets and avoided muscles are derived per day.
type WeekConfig struct {
	StartDate time.Time `json:"start_date"`
	Strategy  Strategy  `json:"strategy"`
	Base      Config    `json:"base"`
	UseAI     bool      `json:"use_ai,omitempty"`
}

// Plan is one scheduled day of a week.
type Plan struct {
	ID                string           `json:"id"`
	Date              time.Time        `json:"date"`
	DayOfWeek         string           `json:"day_of_week"`
	Day               DayConfig        `json:"day"`
	Workout           GeneratedWorkout `json:"workout"`
	Completed         bool             `json:"completed"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	RegenerationCount int              `json:"regeneration_count"`
}

// Week is a stored set of seven plans.
type Week struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Config    WeekConfig `json:"config"`
	Plans     []Plan     `json:"plans"`
}

// Planner generates weekly rotations.
type Planner struct {
	generator *Generator
	enhancer  *Enhancer
	logger    *slog.Logger
}

// NewPlanner creates a Planner. enhancer may be nil, in which case UseAI has no effect.
func NewPlanner(generator *Generator, enhancer *Enhancer, logger *slog.Logger) *Planner {
	return &Planner{
		generator: generator,
		enhancer:  enhancer,
		logger:    logger,
	}
}

// PlanWeek generates the seven days of wc in order. Each day avoids the muscles covered by the two days before it.
func (p *Planner) PlanWeek(ctx context.Context, wc WeekConfig) ([]Plan, error) {
	days, err := StrategyDays(wc.Strategy)
	if err != nil {
		return nil, err
	}
	start := startOfDay(wc.StartDate)

	plans := make([]Plan, 0, DaysPerWeek)
	for i, day := range days {
		cfg := dayConfig(wc.Base, day, avoidMuscles(plans, i))
		w, err := p.generate(ctx, cfg, wc.UseAI)
		if err != nil {
			return nil, fmt.Errorf("generate day %d: %w", i+1, err)
		}
		date := start.AddDate(0, 0, i)
		plans = append(plans, Plan{
			ID:                uuid.NewString(),
			Date:              date,
			DayOfWeek:         date.Weekday().String(),
			Day:               day,
			Workout:           w,
			Completed:         false,
			CompletedAt:       nil,
			RegenerationCount: 0,
		})
		p.logger.LogAttrs(ctx, slog.LevelDebug, "planned day",
			slog.Int("day", i+1), slog.String("focus", string(day.Focus)),
			slog.Int("minutes", w.TotalEstimatedMinutes), slog.Bool("avoid_relaxed", w.AvoidMusclesRelaxed))
	}
	return plans, nil
}

// RegenerateDay replaces the workout of plans[day] with a fresh one that shares none of its previous exercises.
// The date, focus and id are preserved and the regeneration counter is incremented.
func (p *Planner) RegenerateDay(ctx context.Context, plans []Plan, day int, wc WeekConfig) (Plan, error) {
	if day < 0 || day >= len(plans) {
		return Plan{}, fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	previous := plans[day]
	cfg := dayConfig(wc.Base, previous.Day, avoidMuscles(plans, day))
	cfg.ExcludeExerciseIDs = append(slices.Clone(cfg.ExcludeExerciseIDs), previous.Workout.ExerciseIDs()...)

	w, err := p.generate(ctx, cfg, wc.UseAI)
	if err != nil {
		return Plan{}, fmt.Errorf("regenerate day %d: %w", day+1, err)
	}
	regenerated := previous
	regenerated.Workout = w
	regenerated.Completed = false
	regenerated.CompletedAt = nil
	regenerated.RegenerationCount++
	return regenerated, nil
}

// MarkCompleted returns a copy of plans with plans[day] completed at the given time.
func MarkCompleted(plans []Plan, day int, at time.Time) ([]Plan, error) {
	if day < 0 || day >= len(plans) {
		return nil, fmt.Errorf("%w: %d", ErrDayOutOfRange, day)
	}
	out := slices.Clone(plans)
	out[day].Completed = true
	out[day].CompletedAt = new(at)
	return out, nil
}

func (p *Planner) generate(ctx context.Context, cfg Config, useAI bool) (GeneratedWorkout, error) {
	w, err := p.generator.Generate(cfg)
	if err != nil {
		return GeneratedWorkout{}, err
	}
	if useAI {
		// Enhance swallows advisor failures so one bad day never blocks the rest of the week.
		w = p.enhancer.Enhance(ctx, w)
	}
	return w, nil
}

// dayConfig derives the config of one day from the shared base.
func dayConfig(base Config, day DayConfig, avoid []string) Config {
	cfg := base
	cfg.Focus = day.Focus
	cfg.TargetMuscles = day.TargetMuscles
	cfg.EmphasizeCardio = base.EmphasizeCardio || day.EmphasizeCardio
	cfg.AvoidMuscles = avoid
	if day.Focus == FocusFlexibility {
		cfg.TotalMinutes = min(cfg.TotalMinutes, FlexibilityDayMaxMinutes)
	}
	return cfg
}

// avoidMuscles is the union of the muscles covered by the two days preceding day. Days before the third have
// nothing to avoid.
func avoidMuscles(plans []Plan, day int) []string {
	if day < recoveryLookbackDays {
		return nil
	}
	covered := make(map[string]struct{})
	for i := day - recoveryLookbackDays; i < day && i < len(plans); i++ {
		for m, v := range plans[i].Workout.MuscleGroupCoverage {
			if v > 0 {
				covered[m] = struct{}{}
			}
		}
	}
	return sortedKeys(covered)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
