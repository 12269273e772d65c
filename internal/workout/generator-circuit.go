package workout

import (
	"fmt"

	"github.com/myrjola/circuitgen/internal/catalog"
)

// Circuit building constants.
const (
	// MaxCircuits caps the number of circuits in the main workout.
	MaxCircuits = 4
	// OvershootToleranceSeconds is how far the main workout may exceed its target before a circuit is trimmed or
	// dropped.
	OvershootToleranceSeconds = 180
	// InterCircuitRestSeconds separates consecutive circuits.
	InterCircuitRestSeconds = 30
	// MinCircuitExercises is the smallest circuit worth emitting.
	MinCircuitExercises = 2
	// MinCircuitRounds is the lowest round count a circuit is trimmed to.
	MinCircuitRounds = 2
	backfillWeight   = 0.2
)

// Flexibility focus constants.
const (
	mobilityBlockName          = "Dynamic Mobility"
	deepStretchBlockName       = "Deep Stretch"
	maxMobilityExercises       = 5
	maxDeepStretchExercises    = 6
	mobilityVolumeFactor       = 0.75
	deepStretchTwoRoundMinutes = 30
	deepStretchRestSeconds     = 30
)

// difficultyProfile shapes the circuits for a difficulty tier.
type difficultyProfile struct {
	maxExercises             int
	rounds                   int
	restBetweenRoundsSeconds int
}

var difficultyProfiles = map[catalog.Difficulty]difficultyProfile{ //nolint:gochecknoglobals // static lookup table.
	catalog.DifficultyBeginner:     {maxExercises: 4, rounds: 2, restBetweenRoundsSeconds: 60},
	catalog.DifficultyIntermediate: {maxExercises: 5, rounds: 3, restBetweenRoundsSeconds: 45},
	catalog.DifficultyAdvanced:     {maxExercises: 6, rounds: 4, restBetweenRoundsSeconds: 30},
}

// circuitBuilder assembles the main workout phase from an eligible pool.
type circuitBuilder struct {
	cfg      Config
	pool     []catalog.Exercise
	selector selector
	profile  difficultyProfile
	used     map[string]struct{}
}

func newCircuitBuilder(cfg Config, pool []catalog.Exercise, sel selector) *circuitBuilder {
	return &circuitBuilder{
		cfg:      cfg,
		pool:     pool,
		selector: sel,
		profile:  difficultyProfiles[cfg.Difficulty],
		used:     make(map[string]struct{}),
	}
}

// buildMain adds circuits until the target is reached, MaxCircuits are built or no further circuit fits.
func (b *circuitBuilder) buildMain(targetSeconds int) []CircuitBlock {
	var (
		blocks      []CircuitBlock
		accumulated int
		order       = visitOrder(b.cfg)
	)
	for i := 0; i < MaxCircuits && accumulated < targetSeconds; i++ {
		exercises := b.fillCircuit(rotate(order, i))
		if len(exercises) < MinCircuitExercises {
			break
		}
		block := CircuitBlock{
			Name:                        fmt.Sprintf("Circuit %d", i+1),
			Exercises:                   exercises,
			Rounds:                      b.profile.rounds,
			RestBetweenExercisesSeconds: 0,
			RestBetweenRoundsSeconds:    b.profile.restBetweenRoundsSeconds,
		}
		cost, ok := fitCircuit(&block, accumulated, len(blocks) > 0, targetSeconds)
		if !ok {
			break
		}
		for _, we := range exercises {
			b.used[we.Exercise.ID] = struct{}{}
		}
		blocks = append(blocks, block)
		accumulated += cost
	}
	return blocks
}

// fitCircuit checks the block against the overshoot tolerance, dropping one round if that makes it fit. It returns
// the time the block adds to the phase.
func fitCircuit(block *CircuitBlock, accumulated int, needsRest bool, targetSeconds int) (int, bool) {
	cost := func() int {
		c := block.EstimatedSeconds()
		if needsRest {
			c += InterCircuitRestSeconds
		}
		return c
	}
	limit := targetSeconds + OvershootToleranceSeconds
	if accumulated+cost() <= limit {
		return cost(), true
	}
	if block.Rounds-1 < MinCircuitRounds {
		return 0, false
	}
	block.Rounds--
	if accumulated+cost() <= limit {
		return cost(), true
	}
	return 0, false
}

// fillCircuit picks one exercise per category in order and backfills from any unused exercise when the categories
// run dry.
func (b *circuitBuilder) fillCircuit(order []categoryPlan) []WorkoutExercise {
	picked := make(map[string]struct{})
	var exercises []WorkoutExercise
	add := func(ex catalog.Exercise) {
		picked[ex.ID] = struct{}{}
		v := ex.RepScheme.Resolve(b.cfg.VolumeModifier, catalog.DefaultMinHoldSeconds)
		exercises = append(exercises, newWorkoutExercise(ex, v))
	}

	for _, cp := range order {
		if len(exercises) >= b.profile.maxExercises {
			return exercises
		}
		candidates := b.available(picked, func(ex catalog.Exercise) bool { return ex.Category == cp.category })
		if ex, ok := b.selector.pick(candidates, cp.weight); ok {
			add(ex)
		}
	}

	for len(exercises) < b.profile.maxExercises {
		candidates := b.available(picked, func(catalog.Exercise) bool { return true })
		ex, ok := b.selector.pick(candidates, backfillWeight)
		if !ok {
			break
		}
		add(ex)
	}
	return exercises
}

// available lists pool exercises that are neither used by earlier circuits nor picked for the current one.
func (b *circuitBuilder) available(picked map[string]struct{}, keep func(catalog.Exercise) bool) []catalog.Exercise {
	var out []catalog.Exercise
	for _, ex := range b.pool {
		if _, ok := b.used[ex.ID]; ok {
			continue
		}
		if _, ok := picked[ex.ID]; ok {
			continue
		}
		if keep(ex) {
			out = append(out, ex)
		}
	}
	return out
}

// buildFlexibility replaces circuits with a mobility block followed by a deep stretch block.
func (b *circuitBuilder) buildFlexibility() []CircuitBlock {
	var blocks []CircuitBlock

	mobility := b.pickBlock(maxMobilityExercises, b.cfg.VolumeModifier*mobilityVolumeFactor, func(ex catalog.Exercise) bool {
		return ex.Category == catalog.CategoryFlexibility && ex.IsWarmUp
	})
	if len(mobility) > 0 {
		blocks = append(blocks, singleRoundBlock(mobilityBlockName, mobility))
	}

	stretches := b.pickBlock(maxDeepStretchExercises, b.cfg.VolumeModifier, func(ex catalog.Exercise) bool {
		return ex.Category == catalog.CategoryFlexibility || ex.IsCoolDown
	})
	if len(stretches) > 0 {
		rounds := 1
		if b.cfg.TotalMinutes >= deepStretchTwoRoundMinutes {
			rounds = 2
		}
		blocks = append(blocks, CircuitBlock{
			Name:                        deepStretchBlockName,
			Exercises:                   stretches,
			Rounds:                      rounds,
			RestBetweenExercisesSeconds: 0,
			RestBetweenRoundsSeconds:    deepStretchRestSeconds,
		})
	}
	return blocks
}

// pickBlock selects up to limit unused exercises matching keep and marks them used.
func (b *circuitBuilder) pickBlock(limit int, modifier float64, keep func(catalog.Exercise) bool) []WorkoutExercise {
	picked := make(map[string]struct{})
	var exercises []WorkoutExercise
	for len(exercises) < limit {
		ex, ok := b.selector.pick(b.available(picked, keep), 1)
		if !ok {
			break
		}
		picked[ex.ID] = struct{}{}
		b.used[ex.ID] = struct{}{}
		v := ex.RepScheme.Resolve(modifier, catalog.DefaultMinHoldSeconds)
		exercises = append(exercises, newWorkoutExercise(ex, v))
	}
	return exercises
}
