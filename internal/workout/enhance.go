package workout

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// AI enhancement constants.
const (
	// MaxAIStretchSeconds caps any hold duration suggested by the advisor.
	MaxAIStretchSeconds = 90
	// DefaultAdviceTimeout bounds a single advisor call.
	DefaultAdviceTimeout = 10 * time.Second
)

// StretchSummary describes one warm-up or cool-down exercise to the advisor.
type StretchSummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Phase           string   `json:"phase"`
	Timed           bool     `json:"timed"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	Reps            int      `json:"reps,omitempty"`
	PrimaryMuscles  []string `json:"primary_muscles"`
}

// StretchAdviceRequest is what the advisor knows about a workout.
type StretchAdviceRequest struct {
	TargetedMuscles []string           `json:"targeted_muscles"`
	MuscleLoad      map[string]float64 `json:"muscle_load"`
	MainExercises   []string           `json:"main_exercises"`
	Stretches       []StretchSummary   `json:"stretches"`
}

// StretchAdjustment is a suggested new hold duration.
type StretchAdjustment struct {
	StretchID          string `json:"stretchId"`
	NewDurationSeconds int    `json:"newDurationSeconds"`
	Reason             string `json:"reason"`
}

// StretchAdvice is the advisor's answer.
type StretchAdvice struct {
	Adjustments []StretchAdjustment `json:"adjustments"`
	Reasoning   string              `json:"reasoning"`
}

// StretchAdvisor suggests stretch durations for a workout.
type StretchAdvisor interface {
	AdviseStretches(ctx context.Context, req StretchAdviceRequest) (StretchAdvice, error)
}

// Enhancer adjusts warm-up and cool-down hold durations on the advice of a StretchAdvisor.
type Enhancer struct {
	advisor StretchAdvisor
	logger  *slog.Logger
	timeout time.Duration
}

// NewEnhancer creates an Enhancer. A non-positive timeout falls back to DefaultAdviceTimeout.
func NewEnhancer(advisor StretchAdvisor, logger *slog.Logger, timeout time.Duration) *Enhancer {
	if timeout <= 0 {
		timeout = DefaultAdviceTimeout
	}
	return &Enhancer{
		advisor: advisor,
		logger:  logger,
		timeout: timeout,
	}
}

// Enhance returns a copy of w with adjusted stretch durations. Any advisor failure returns w unchanged.
//
// Only timed exercises are adjusted and durations are capped at MaxAIStretchSeconds. Workouts without stretch pairing
// are returned as is.
func (e *Enhancer) Enhance(ctx context.Context, w GeneratedWorkout) GeneratedWorkout {
	if e == nil || e.advisor == nil || w.StretchPairing == nil {
		return w
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	advice, err := e.advisor.AdviseStretches(ctx, newStretchAdviceRequest(w))
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "stretch advice failed, keeping original workout",
			slog.String("workout_id", w.ID), slog.Any("error", err))
		return w
	}

	durations := make(map[string]int, len(advice.Adjustments))
	for _, adj := range advice.Adjustments {
		if adj.NewDurationSeconds > 0 {
			durations[adj.StretchID] = min(adj.NewDurationSeconds, MaxAIStretchSeconds)
		}
	}

	warmUp, warmUpApplied := adjustDurations(w.WarmUp, durations)
	coolDown, coolDownApplied := adjustDurations(w.CoolDown, durations)
	applied := warmUpApplied + coolDownApplied
	if applied == 0 && strings.TrimSpace(advice.Reasoning) == "" {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "stretch advice had nothing to apply",
			slog.String("workout_id", w.ID), slog.Int("suggested", len(advice.Adjustments)))
		return w
	}

	enhanced := w
	enhanced.WarmUp = warmUp
	enhanced.CoolDown = coolDown
	enhanced.recalculate()
	enhanced.StretchPairing = &StretchPairing{
		TargetedMuscles: w.StretchPairing.TargetedMuscles,
		AIEnhanced:      true,
		AIReasoning:     advice.Reasoning,
	}
	e.logger.LogAttrs(ctx, slog.LevelDebug, "applied stretch advice",
		slog.String("workout_id", w.ID), slog.Int("adjustments", applied))
	return enhanced
}

// adjustDurations builds a new phase with the timed exercises found in durations updated and reports how many
// were adjusted.
func adjustDurations(p Phase, durations map[string]int) (Phase, int) {
	applied := 0
	blocks := make([]CircuitBlock, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		exercises := make([]WorkoutExercise, 0, len(b.Exercises))
		for _, we := range b.Exercises {
			if d, ok := durations[we.Exercise.ID]; ok && we.Exercise.RepScheme.Timed() && we.DurationSeconds > 0 {
				we.DurationSeconds = d
				applied++
			}
			exercises = append(exercises, we)
		}
		b.Exercises = exercises
		blocks = append(blocks, b)
	}
	return NewPhase(p.Name, blocks), applied
}

func newStretchAdviceRequest(w GeneratedWorkout) StretchAdviceRequest {
	req := StretchAdviceRequest{
		TargetedMuscles: w.StretchPairing.TargetedMuscles,
		MuscleLoad:      muscleLoad(w.Main.Blocks),
		MainExercises:   nil,
		Stretches:       nil,
	}
	for _, we := range w.Main.Exercises() {
		req.MainExercises = append(req.MainExercises, we.Exercise.Name)
	}
	for _, p := range []Phase{w.WarmUp, w.CoolDown} {
		for _, we := range p.Exercises() {
			req.Stretches = append(req.Stretches, StretchSummary{
				ID:              we.Exercise.ID,
				Name:            we.Exercise.Name,
				Phase:           p.Name,
				Timed:           we.Exercise.RepScheme.Timed(),
				DurationSeconds: we.DurationSeconds,
				Reps:            we.Reps,
				PrimaryMuscles:  we.Exercise.PrimaryMuscles,
			})
		}
	}
	return req
}
