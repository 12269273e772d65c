package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/workout"
)

var (
	errTotals      = errors.New("total minutes differ from the phase sum")
	errDuplicate   = errors.New("exercise repeated in the main workout")
	errIneligible  = errors.New("exercise violates equipment or difficulty")
	errAvoided     = errors.New("avoided muscle trained as primary")
	errShareCode   = errors.New("share code does not reproduce the workout")
	errRecovery    = errors.New("muscle trained three days in a row")
	errWeekPlanLen = errors.New("week does not have seven days")
)

// checkWorkout verifies the invariants every generated workout must hold for its config.
func checkWorkout(cfg workout.Config, w workout.GeneratedWorkout) error {
	var errs []error

	sum := w.WarmUp.EstimatedMinutes + w.Main.EstimatedMinutes + w.CoolDown.EstimatedMinutes
	if w.TotalEstimatedMinutes != sum {
		errs = append(errs, fmt.Errorf("%w: %d != %d", errTotals, w.TotalEstimatedMinutes, sum))
	}

	seen := make(map[string]struct{})
	for _, we := range w.Main.Exercises() {
		if _, ok := seen[we.Exercise.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: %s", errDuplicate, we.Exercise.ID))
		}
		seen[we.Exercise.ID] = struct{}{}
	}

	for _, p := range w.Phases() {
		for _, we := range p.Exercises() {
			if !eligible(cfg, we.Exercise) {
				errs = append(errs, fmt.Errorf("%w: %s in %s", errIneligible, we.Exercise.ID, p.Name))
			}
		}
	}

	if !w.AvoidMusclesRelaxed {
		for _, we := range w.Main.Exercises() {
			for _, m := range cfg.AvoidMuscles {
				if we.Exercise.HasPrimary(m) {
					errs = append(errs, fmt.Errorf("%w: %s works %s", errAvoided, we.Exercise.ID, m))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func eligible(cfg workout.Config, ex catalog.Exercise) bool {
	for _, eq := range ex.Equipment {
		if !slices.Contains(cfg.AvailableEquipment, eq) {
			return false
		}
	}
	return ex.Difficulty.Level() <= cfg.Difficulty.Level()
}

// checkRoundTrip verifies that decoded reproduces the exercises, volumes and block structure of original.
func checkRoundTrip(original, decoded workout.GeneratedWorkout) error {
	originalPhases, decodedPhases := original.Phases(), decoded.Phases()
	for i := range originalPhases {
		want, got := originalPhases[i].Blocks, decodedPhases[i].Blocks
		if len(want) != len(got) {
			return fmt.Errorf("%w: %s has %d blocks, want %d", errShareCode, originalPhases[i].Name, len(got), len(want))
		}
		for j := range want {
			if want[j].Rounds != got[j].Rounds || len(want[j].Exercises) != len(got[j].Exercises) {
				return fmt.Errorf("%w: %s block %d", errShareCode, originalPhases[i].Name, j+1)
			}
			for k, we := range want[j].Exercises {
				g := got[j].Exercises[k]
				if we.Exercise.ID != g.Exercise.ID || we.Reps != g.Reps || we.DurationSeconds != g.DurationSeconds {
					return fmt.Errorf("%w: %s block %d exercise %d", errShareCode, originalPhases[i].Name, j+1, k+1)
				}
			}
		}
	}
	return nil
}

// checkWeek verifies that no main workout trains a primary muscle that both preceding days also trained as primary.
// Days where the avoided muscles had to be relaxed are skipped.
func checkWeek(plans []workout.Plan) error {
	if len(plans) != workout.DaysPerWeek {
		return fmt.Errorf("%w: %d", errWeekPlanLen, len(plans))
	}
	var errs []error
	for i := 2; i < len(plans); i++ {
		if plans[i].Workout.AvoidMusclesRelaxed {
			continue
		}
		before, yesterday := primaryMuscles(plans[i-2].Workout), primaryMuscles(plans[i-1].Workout)
		for _, we := range plans[i].Workout.Main.Exercises() {
			for _, m := range we.Exercise.PrimaryMuscles {
				_, a := before[m]
				_, b := yesterday[m]
				if a && b {
					errs = append(errs, fmt.Errorf("%w: %s on day %d via %s", errRecovery, m, i+1, we.Exercise.ID))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func primaryMuscles(w workout.GeneratedWorkout) map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range w.Phases() {
		for _, we := range p.Exercises() {
			for _, m := range we.Exercise.PrimaryMuscles {
				out[m] = struct{}{}
			}
		}
	}
	return out
}
