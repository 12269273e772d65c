// Package catalog holds the read-only exercise catalog that every workout is composed from.
package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Category represents the movement family of an exercise.
type Category string

const (
	CategoryPush        Category = "push"
	CategoryPull        Category = "pull"
	CategoryLegs        Category = "legs"
	CategoryCore        Category = "core"
	CategoryCardio      Category = "cardio"
	CategoryFlexibility Category = "flexibility"
)

// Categories lists every category in canonical order.
func Categories() []Category {
	return []Category{
		CategoryPush, CategoryPull, CategoryLegs, CategoryCore, CategoryCardio, CategoryFlexibility,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// Difficulty is the totally ordered difficulty tier of an exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Level returns the ordinal of the tier: beginner=1, intermediate=2, advanced=3 and 0 for unknown values.
func (d Difficulty) Level() int {
	switch d {
	case DifficultyBeginner:
		return 1
	case DifficultyIntermediate:
		return 2 //nolint:mnd // ordinal
	case DifficultyAdvanced:
		return 3 //nolint:mnd // ordinal
	default:
		return 0
	}
}

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	return d.Level() > 0
}

// Equipment is a piece of gear an exercise may require.
type Equipment string

const (
	// EquipmentNone is accepted in requests as an explicit "bodyweight only" marker.
	EquipmentNone           Equipment = "none"
	EquipmentDumbbells      Equipment = "dumbbells"
	EquipmentKettlebell     Equipment = "kettlebell"
	EquipmentResistanceBand Equipment = "resistance_band"
	EquipmentPullUpBar      Equipment = "pull_up_bar"
	EquipmentBench          Equipment = "bench"
	EquipmentJumpRope       Equipment = "jump_rope"
)

// SchemeType tags the variant of a RepScheme.
type SchemeType string

const (
	SchemeReps     SchemeType = "reps"
	SchemeTimed    SchemeType = "timed"
	SchemeEachSide SchemeType = "each_side"
)

// DefaultMinHoldSeconds is the floor applied when a timed scheme is scaled down.
const DefaultMinHoldSeconds = 20

// RepScheme is the catalog's prescription for one occurrence of an exercise.
//
// Count is used by reps and each_side schemes, Seconds by timed schemes.
type RepScheme struct {
	Type    SchemeType `json:"type"`
	Count   int        `json:"count,omitempty"`
	Seconds int        `json:"seconds,omitempty"`
}

// Volume is a resolved prescription: either Reps or DurationSeconds is set.
type Volume struct {
	Reps            int
	DurationSeconds int
	PerSide         bool
}

// Resolve scales the scheme by modifier. Timed schemes never drop below minSeconds and rep schemes never drop
// below a single rep.
func (rs RepScheme) Resolve(modifier float64, minSeconds int) Volume {
	if modifier <= 0 {
		modifier = 1
	}
	switch rs.Type {
	case SchemeTimed:
		seconds := int(math.Round(float64(rs.Seconds) * modifier))
		return Volume{Reps: 0, DurationSeconds: max(seconds, minSeconds), PerSide: false}
	case SchemeEachSide:
		reps := int(math.Round(float64(rs.Count) * modifier))
		return Volume{Reps: max(reps, 1), DurationSeconds: 0, PerSide: true}
	case SchemeReps:
		fallthrough
	default:
		reps := int(math.Round(float64(rs.Count) * modifier))
		return Volume{Reps: max(reps, 1), DurationSeconds: 0, PerSide: false}
	}
}

// Timed reports whether the scheme prescribes a duration.
func (rs RepScheme) Timed() bool {
	return rs.Type == SchemeTimed
}

// Exercise is an immutable catalog record.
type Exercise struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Instructions     string      `json:"instructions"`
	Category         Category    `json:"category"`
	PrimaryMuscles   []string    `json:"primary_muscles"`
	SecondaryMuscles []string    `json:"secondary_muscles"`
	Difficulty       Difficulty  `json:"difficulty"`
	Equipment        []Equipment `json:"equipment"`
	RepScheme        RepScheme   `json:"rep_scheme"`
	IsWarmUp         bool        `json:"warm_up"`
	IsCoolDown       bool        `json:"cool_down"`
}

// RequiresEquipment reports whether the exercise needs any gear.
func (e Exercise) RequiresEquipment() bool {
	return len(e.Equipment) > 0
}

// HasPrimary reports whether muscle is one of the exercise's primary muscles.
func (e Exercise) HasPrimary(muscle string) bool {
	return slices.Contains(e.PrimaryMuscles, muscle)
}

// validate checks that the record is usable by the generator.
func (e Exercise) validate() error {
	if e.ID == "" || e.Name == "" {
		return fmt.Errorf("exercise %q: id and name are required", e.ID)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("exercise %q: invalid category %q", e.ID, e.Category)
	}
	if !e.Difficulty.Valid() {
		return fmt.Errorf("exercise %q: invalid difficulty %q", e.ID, e.Difficulty)
	}
	if len(e.PrimaryMuscles) == 0 {
		return fmt.Errorf("exercise %q: no primary muscles", e.ID)
	}
	switch e.RepScheme.Type {
	case SchemeReps, SchemeEachSide:
		if e.RepScheme.Count <= 0 {
			return fmt.Errorf("exercise %q: rep scheme needs a positive count", e.ID)
		}
	case SchemeTimed:
		if e.RepScheme.Seconds <= 0 {
			return fmt.Errorf("exercise %q: timed scheme needs positive seconds", e.ID)
		}
	default:
		return fmt.Errorf("exercise %q: unknown rep scheme %q", e.ID, e.RepScheme.Type)
	}
	return nil
}

// MarshalJSON keeps empty muscle and equipment lists as [] rather than null.
func (e Exercise) MarshalJSON() ([]byte, error) {
	type alias Exercise
	a := alias(e)
	if a.PrimaryMuscles == nil {
		a.PrimaryMuscles = []string{}
	}
	if a.SecondaryMuscles == nil {
		a.SecondaryMuscles = []string{}
	}
	if a.Equipment == nil {
		a.Equipment = []Equipment{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal exercise: %w", err)
	}
	return b, nil
}
