package workout

import (
	"cmp"
	"math"
	"slices"

	"github.com/myrjola/circuitgen/internal/catalog"
)

// Stretch pairing constants.
const (
	warmUpStretches        = 3
	maxWarmUpExercises     = 5
	coolDownStretches      = 5
	targetedMuscleCount    = 5
	minPairedExercises     = 2
	warmUpJitter           = 0.5
	coolDownJitter         = 0.3
	maxCoolDownBoost       = 0.4
	warmUpRepFactor        = 0.6
	warmUpMaxHoldSeconds   = 30
	fallbackMinHoldSeconds = 40
	fallbackMaxCoolDown    = 4
)

// pairing is the outcome of matching stretches to the muscles the main workout loads.
type pairing struct {
	warmUp   []WorkoutExercise
	coolDown []WorkoutExercise
	targeted []string
}

// muscleLoad weights every primary muscle of the main workout by the rounds and every secondary muscle by half.
func muscleLoad(main []CircuitBlock) map[string]float64 {
	load := make(map[string]float64)
	for _, b := range main {
		addLoad(load, b)
	}
	return load
}

// topMuscles returns up to n muscles with the highest load. Ties are ordered by name.
func topMuscles(load map[string]float64, n int) []string {
	muscles := sortedKeys(load)
	slices.SortStableFunc(muscles, func(a, b string) int {
		return cmp.Compare(load[b], load[a])
	})
	return muscles[:min(n, len(muscles))]
}

// stretchPairer picks warm-up and cool-down exercises from a pool that excludes the main workout. The random
// fallback may reuse main workout exercises from all when nothing else is left for a phase.
type stretchPairer struct {
	rand     RandFunc
	modifier float64
	pool     []catalog.Exercise
	all      []catalog.Exercise
}

func newStretchPairer(cfg Config, rand RandFunc, pool []catalog.Exercise, main []CircuitBlock) stretchPairer {
	inMain := make(map[string]struct{})
	for _, b := range main {
		for _, we := range b.Exercises {
			inMain[we.Exercise.ID] = struct{}{}
		}
	}
	var remaining []catalog.Exercise
	for _, ex := range pool {
		if _, ok := inMain[ex.ID]; !ok {
			remaining = append(remaining, ex)
		}
	}
	return stretchPairer{
		rand:     rand,
		modifier: cfg.VolumeModifier,
		pool:     remaining,
		all:      pool,
	}
}

func (sp stretchPairer) candidates(keep func(catalog.Exercise) bool, skip []WorkoutExercise) []catalog.Exercise {
	return filterExercises(sp.pool, keep, skip)
}

// anyCandidates is candidates that falls back to the whole eligible pool, main workout included, when the
// filtered pool has nothing to offer.
func (sp stretchPairer) anyCandidates(keep func(catalog.Exercise) bool, skip []WorkoutExercise) []catalog.Exercise {
	if out := sp.candidates(keep, skip); len(out) > 0 {
		return out
	}
	return filterExercises(sp.all, keep, nil)
}

func filterExercises(pool []catalog.Exercise, keep func(catalog.Exercise) bool, skip []WorkoutExercise) []catalog.Exercise {
	var out []catalog.Exercise
	for _, ex := range pool {
		if keep(ex) && !containsExercise(skip, ex.ID) {
			out = append(out, ex)
		}
	}
	return out
}

// stretchScore is how much of the load the stretch addresses.
func stretchScore(ex catalog.Exercise, load map[string]float64) float64 {
	score := 0.0
	for _, m := range ex.PrimaryMuscles {
		score += load[m]
	}
	for _, m := range ex.SecondaryMuscles {
		score += load[m] * secondaryMuscleFactor
	}
	return score
}

type rankedStretch struct {
	ex    catalog.Exercise
	score float64
}

// rank orders candidates by score plus up to jitter of random noise and keeps the first n.
func (sp stretchPairer) rank(candidates []catalog.Exercise, load map[string]float64, jitter float64, n int) []rankedStretch {
	type jittered struct {
		rankedStretch
		key float64
	}
	ranked := make([]jittered, 0, len(candidates))
	for _, ex := range candidates {
		score := stretchScore(ex, load)
		ranked = append(ranked, jittered{
			rankedStretch: rankedStretch{ex: ex, score: score},
			key:           score + sp.rand()*jitter,
		})
	}
	slices.SortStableFunc(ranked, func(a, b jittered) int {
		return cmp.Compare(b.key, a.key)
	})
	out := make([]rankedStretch, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		out = append(out, r.rankedStretch)
	}
	return out
}

// pair matches stretches to the main workout. It reports false when either phase would get fewer than
// two exercises.
func (sp stretchPairer) pair(main []CircuitBlock) (pairing, bool) {
	load := muscleLoad(main)

	var warmUp []WorkoutExercise
	flex := sp.candidates(func(ex catalog.Exercise) bool {
		return ex.Category == catalog.CategoryFlexibility && ex.IsWarmUp
	}, nil)
	for _, r := range sp.rank(flex, load, warmUpJitter, warmUpStretches) {
		warmUp = append(warmUp, sp.boosted(r.ex, 0, catalog.DefaultMinHoldSeconds))
	}
	dynamic := shuffle(sp.rand, sp.candidates(isDynamicWarmUp, warmUp))
	for _, ex := range dynamic[:min(maxWarmUpExercises-len(warmUp), len(dynamic))] {
		warmUp = append(warmUp, sp.reduced(ex))
	}

	var coolDown []WorkoutExercise
	maxLoad := 0.0
	for _, l := range load {
		maxLoad = math.Max(maxLoad, l)
	}
	cool := sp.candidates(func(ex catalog.Exercise) bool { return ex.IsCoolDown }, warmUp)
	for _, r := range sp.rank(cool, load, coolDownJitter, coolDownStretches) {
		boost := 0.0
		if maxLoad > 0 {
			boost = math.Min(r.score/maxLoad, 1) * maxCoolDownBoost
		}
		coolDown = append(coolDown, sp.boosted(r.ex, boost, catalog.DefaultMinHoldSeconds))
	}

	if len(warmUp) < minPairedExercises || len(coolDown) < minPairedExercises {
		return pairing{warmUp: nil, coolDown: nil, targeted: nil}, false
	}
	return pairing{
		warmUp:   warmUp,
		coolDown: coolDown,
		targeted: topMuscles(load, targetedMuscleCount),
	}, true
}

// random builds warm-up and cool-down exercises without regard to the main workout.
func (sp stretchPairer) random() ([]WorkoutExercise, []WorkoutExercise) {
	var warmUp []WorkoutExercise

	flex := sp.candidates(func(ex catalog.Exercise) bool {
		return ex.Category == catalog.CategoryFlexibility && ex.IsWarmUp
	}, nil)
	if len(flex) == 0 {
		flex = sp.candidates(func(ex catalog.Exercise) bool { return ex.Category == catalog.CategoryFlexibility }, nil)
	}
	flex = shuffle(sp.rand, flex)
	for _, ex := range flex[:min(1+randIndex(sp.rand, 2), len(flex))] { //nolint:mnd // one or two stretches.
		warmUp = append(warmUp, sp.boosted(ex, 0, catalog.DefaultMinHoldSeconds))
	}
	dynamic := shuffle(sp.rand, sp.anyCandidates(isDynamicWarmUp, warmUp))
	for _, ex := range dynamic[:min(2+randIndex(sp.rand, 2), len(dynamic))] { //nolint:mnd // two or three movers.
		warmUp = append(warmUp, sp.reduced(ex))
	}

	var coolDown []WorkoutExercise
	cool := shuffle(sp.rand, sp.anyCandidates(func(ex catalog.Exercise) bool {
		return ex.IsCoolDown || ex.Category == catalog.CategoryFlexibility
	}, warmUp))
	for _, ex := range cool[:min(fallbackMaxCoolDown, len(cool))] {
		coolDown = append(coolDown, sp.boosted(ex, 0, fallbackMinHoldSeconds))
	}
	return warmUp, coolDown
}

// isDynamicWarmUp matches warm-up movers that raise the heart rate rather than stretch.
func isDynamicWarmUp(ex catalog.Exercise) bool {
	return ex.IsWarmUp && (ex.Category == catalog.CategoryCardio || ex.Category == catalog.CategoryCore)
}

// boosted resolves the volume lengthened by boost, e.g. 0.4 for 40% longer holds.
func (sp stretchPairer) boosted(ex catalog.Exercise, boost float64, minSeconds int) WorkoutExercise {
	return newWorkoutExercise(ex, ex.RepScheme.Resolve(sp.modifier*(1+boost), minSeconds))
}

// reduced resolves a lighter warm-up volume: fewer reps and shorter holds.
func (sp stretchPairer) reduced(ex catalog.Exercise) WorkoutExercise {
	v := ex.RepScheme.Resolve(sp.modifier, catalog.DefaultMinHoldSeconds)
	if v.DurationSeconds > 0 {
		v.DurationSeconds = min(v.DurationSeconds, warmUpMaxHoldSeconds)
	} else {
		v.Reps = max(1, int(math.Round(float64(v.Reps)*warmUpRepFactor)))
	}
	return newWorkoutExercise(ex, v)
}

func containsExercise(exercises []WorkoutExercise, id string) bool {
	return slices.ContainsFunc(exercises, func(we WorkoutExercise) bool { return we.Exercise.ID == id })
}
