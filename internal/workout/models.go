// Package workout composes circuit-based training sessions and weekly rotation plans from the exercise catalog.
package workout

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/myrjola/circuitgen/internal/catalog"
)

// Focus steers how categories are weighted when selecting exercises.
type Focus string

const (
	FocusBalanced    Focus = "balanced"
	FocusPush        Focus = "push"
	FocusPull        Focus = "pull"
	FocusLegs        Focus = "legs"
	FocusCore        Focus = "core"
	FocusCardio      Focus = "cardio"
	FocusFlexibility Focus = "flexibility"
)

// Valid reports whether f is a known focus.
func (f Focus) Valid() bool {
	_, ok := categoryWeights[f]
	return ok
}

// Phase names in the order they are performed.
const (
	PhaseWarmUp   = "Warm-Up"
	PhaseMain     = "Main Workout"
	PhaseCoolDown = "Cool-Down"
)

// Config bounds.
const (
	MinTotalMinutes   = 10
	MaxTotalMinutes   = 120
	MaxVolumeModifier = 3.0
)

// Config is a generation request.
type Config struct {
	TotalMinutes       int                 `json:"total_minutes"`
	AvailableEquipment []catalog.Equipment `json:"available_equipment"`
	Difficulty         catalog.Difficulty  `json:"difficulty"`
	// Focus defaults to FocusBalanced when empty.
	Focus         Focus    `json:"focus,omitempty"`
	TargetMuscles []string `json:"target_muscles,omitempty"`
	AvoidMuscles  []string `json:"avoid_muscles,omitempty"`
	// VolumeModifier scales reps and hold durations. Zero means 1.0.
	VolumeModifier     float64  `json:"volume_modifier,omitempty"`
	ExcludeExerciseIDs []string `json:"exclude_exercise_ids,omitempty"`
	// EquipmentOnly restricts the main workout to exercises that need gear.
	EquipmentOnly        bool     `json:"equipment_only,omitempty"`
	PreferredExerciseIDs []string `json:"preferred_exercise_ids,omitempty"`
	EmphasizeCardio      bool     `json:"emphasize_cardio,omitempty"`
}

// Validate reports a wrapped ErrInvalidConfig when the request cannot be generated.
func (c Config) Validate() error {
	if c.TotalMinutes < MinTotalMinutes || c.TotalMinutes > MaxTotalMinutes {
		return fmt.Errorf("%w: total minutes %d outside [%d, %d]",
			ErrInvalidConfig, c.TotalMinutes, MinTotalMinutes, MaxTotalMinutes)
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfig, c.Difficulty)
	}
	if c.Focus != "" && !c.Focus.Valid() {
		return fmt.Errorf("%w: unknown focus %q", ErrInvalidConfig, c.Focus)
	}
	if c.VolumeModifier < 0 || c.VolumeModifier > MaxVolumeModifier || math.IsNaN(c.VolumeModifier) {
		return fmt.Errorf("%w: volume modifier %v outside [0, %v]", ErrInvalidConfig, c.VolumeModifier, MaxVolumeModifier)
	}
	return nil
}

// withDefaults returns a copy with the implicit defaults filled in.
func (c Config) withDefaults() Config {
	if c.Focus == "" {
		c.Focus = FocusBalanced
	}
	if c.VolumeModifier == 0 {
		c.VolumeModifier = 1
	}
	return c
}

// WorkoutExercise is one occurrence of a catalog exercise with its resolved volume.
type WorkoutExercise struct {
	Exercise        catalog.Exercise `json:"exercise"`
	Reps            int              `json:"reps,omitempty"`
	DurationSeconds int              `json:"duration_seconds,omitempty"`
	PerSide         bool             `json:"per_side,omitempty"`
}

// SecondsPerRep is the time estimate of a single repetition.
const SecondsPerRep = 3

// newWorkoutExercise resolves the volume of ex.
func newWorkoutExercise(ex catalog.Exercise, v catalog.Volume) WorkoutExercise {
	return WorkoutExercise{
		Exercise:        ex,
		Reps:            v.Reps,
		DurationSeconds: v.DurationSeconds,
		PerSide:         v.PerSide,
	}
}

// EstimatedSeconds is the time one set takes. Timed exercises use their duration and rep based exercises take
// SecondsPerRep per rep, doubled when performed on each side.
func (we WorkoutExercise) EstimatedSeconds() int {
	if we.DurationSeconds > 0 {
		return we.DurationSeconds
	}
	seconds := we.Reps * SecondsPerRep
	if we.PerSide {
		seconds *= 2
	}
	return seconds
}

// CircuitBlock is a group of exercises performed back to back for a number of rounds.
type CircuitBlock struct {
	Name                        string            `json:"name"`
	Exercises                   []WorkoutExercise `json:"exercises"`
	Rounds                      int               `json:"rounds"`
	RestBetweenExercisesSeconds int               `json:"rest_between_exercises_seconds"`
	RestBetweenRoundsSeconds    int               `json:"rest_between_rounds_seconds"`
}

// EstimatedSeconds sums the work and rest time of all rounds.
func (b CircuitBlock) EstimatedSeconds() int {
	if len(b.Exercises) == 0 || b.Rounds <= 0 {
		return 0
	}
	work := 0
	for _, we := range b.Exercises {
		work += we.EstimatedSeconds()
	}
	rest := b.RestBetweenExercisesSeconds * (len(b.Exercises) - 1)
	return (work+rest)*b.Rounds + b.RestBetweenRoundsSeconds*(b.Rounds-1)
}

// singleRoundBlock builds a warm-up or cool-down block.
func singleRoundBlock(name string, exercises []WorkoutExercise) CircuitBlock {
	return CircuitBlock{
		Name:                        name,
		Exercises:                   exercises,
		Rounds:                      1,
		RestBetweenExercisesSeconds: 0,
		RestBetweenRoundsSeconds:    0,
	}
}

// Phase is a named, ordered list of blocks.
type Phase struct {
	Name             string         `json:"name"`
	Blocks           []CircuitBlock `json:"blocks"`
	EstimatedMinutes int            `json:"estimated_minutes"`
}

// NewPhase derives the estimated minutes from the blocks. Consecutive blocks are separated by
// InterCircuitRestSeconds.
func NewPhase(name string, blocks []CircuitBlock) Phase {
	if blocks == nil {
		blocks = []CircuitBlock{}
	}
	return Phase{
		Name:             name,
		Blocks:           blocks,
		EstimatedMinutes: secondsToMinutes(phaseSeconds(blocks)),
	}
}

func phaseSeconds(blocks []CircuitBlock) int {
	seconds := 0
	for i, b := range blocks {
		if i > 0 {
			seconds += InterCircuitRestSeconds
		}
		seconds += b.EstimatedSeconds()
	}
	return seconds
}

func secondsToMinutes(seconds int) int {
	return int(math.Round(float64(seconds) / 60)) //nolint:mnd // seconds in a minute
}

// Exercises flattens all block exercises in order.
func (p Phase) Exercises() []WorkoutExercise {
	var out []WorkoutExercise
	for _, b := range p.Blocks {
		out = append(out, b.Exercises...)
	}
	return out
}

// StretchPairing describes how the warm-up and cool-down were matched to the main workout.
type StretchPairing struct {
	TargetedMuscles []string `json:"targeted_muscles"`
	AIEnhanced      bool     `json:"ai_enhanced"`
	AIReasoning     string   `json:"ai_reasoning,omitempty"`
}

// GeneratedWorkout is a complete session.
type GeneratedWorkout struct {
	ID                    string             `json:"id"`
	CreatedAt             time.Time          `json:"created_at"`
	Config                Config             `json:"config"`
	WarmUp                Phase              `json:"warm_up"`
	Main                  Phase              `json:"main"`
	CoolDown              Phase              `json:"cool_down"`
	TotalEstimatedMinutes int                `json:"total_estimated_minutes"`
	TotalExercises        int                `json:"total_exercises"`
	MuscleGroupCoverage   map[string]float64 `json:"muscle_group_coverage"`
	// AvoidMusclesRelaxed is set when the avoided muscles were ignored to keep the pool large enough.
	AvoidMusclesRelaxed bool            `json:"avoid_muscles_relaxed,omitempty"`
	StretchPairing      *StretchPairing `json:"stretch_pairing,omitempty"`
}

// NewGeneratedWorkout assembles a workout and derives its totals and muscle coverage from the phases.
func NewGeneratedWorkout(id string, createdAt time.Time, cfg Config, warmUp, main, coolDown Phase) GeneratedWorkout {
	w := GeneratedWorkout{
		ID:                    id,
		CreatedAt:             createdAt,
		Config:                cfg,
		WarmUp:                warmUp,
		Main:                  main,
		CoolDown:              coolDown,
		TotalEstimatedMinutes: 0,
		TotalExercises:        0,
		MuscleGroupCoverage:   nil,
		AvoidMusclesRelaxed:   false,
		StretchPairing:        nil,
	}
	w.recalculate()
	return w
}

// recalculate refreshes every derived field.
func (w *GeneratedWorkout) recalculate() {
	w.WarmUp = NewPhase(w.WarmUp.Name, w.WarmUp.Blocks)
	w.Main = NewPhase(w.Main.Name, w.Main.Blocks)
	w.CoolDown = NewPhase(w.CoolDown.Name, w.CoolDown.Blocks)
	w.TotalEstimatedMinutes = w.WarmUp.EstimatedMinutes + w.Main.EstimatedMinutes + w.CoolDown.EstimatedMinutes
	w.TotalExercises = 0
	for _, p := range w.Phases() {
		w.TotalExercises += len(p.Exercises())
	}
	w.MuscleGroupCoverage = Coverage(w.Phases()...)
}

// Phases returns warm-up, main and cool-down in order.
func (w GeneratedWorkout) Phases() []Phase {
	return []Phase{w.WarmUp, w.Main, w.CoolDown}
}

// ExerciseIDs lists the ids of every exercise in the workout.
func (w GeneratedWorkout) ExerciseIDs() []string {
	var ids []string
	for _, p := range w.Phases() {
		for _, we := range p.Exercises() {
			if !slices.Contains(ids, we.Exercise.ID) {
				ids = append(ids, we.Exercise.ID)
			}
		}
	}
	return ids
}

// Coverage weights each primary muscle by the block rounds and each secondary muscle by half of that.
func Coverage(phases ...Phase) map[string]float64 {
	coverage := make(map[string]float64)
	for _, p := range phases {
		for _, b := range p.Blocks {
			addLoad(coverage, b)
		}
	}
	return coverage
}

// addLoad accumulates the muscle load of one block into load.
func addLoad(load map[string]float64, b CircuitBlock) {
	rounds := float64(b.Rounds)
	for _, we := range b.Exercises {
		for _, m := range we.Exercise.PrimaryMuscles {
			load[m] += rounds
		}
		for _, m := range we.Exercise.SecondaryMuscles {
			load[m] += rounds * secondaryMuscleFactor
		}
	}
}

const secondaryMuscleFactor = 0.5
