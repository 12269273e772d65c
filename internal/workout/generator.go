package workout

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/circuitgen/internal/catalog"
)

var (
	ErrInvalidConfig   = errors.New("invalid workout config")
	ErrUnknownStrategy = errors.New("unknown rotation strategy")
	ErrDayOutOfRange   = errors.New("day out of range")
)

// minuteSplit is how a session's minutes are divided between the phases.
type minuteSplit struct {
	warmUp   int
	coolDown int
	buffer   int
}

// splitMinutes looks up the warm-up, cool-down and buffer minutes for the total and returns the remainder for the
// main workout.
func splitMinutes(total int) (minuteSplit, int) {
	var s minuteSplit
	switch {
	case total <= 15: //nolint:mnd // bucket bound.
		s = minuteSplit{warmUp: 3, coolDown: 3, buffer: 1}
	case total <= 30: //nolint:mnd // bucket bound.
		s = minuteSplit{warmUp: 5, coolDown: 4, buffer: 2}
	case total <= 45: //nolint:mnd // bucket bound.
		s = minuteSplit{warmUp: 6, coolDown: 5, buffer: 2}
	default:
		s = minuteSplit{warmUp: 7, coolDown: 5, buffer: 3}
	}
	return s, max(total-s.warmUp-s.coolDown-s.buffer, 0)
}

// Generator composes workouts from a catalog. It holds no mutable state and is safe for concurrent use as long as
// the configured RandFunc is.
type Generator struct {
	exercises []catalog.Exercise
	rand      RandFunc
	now       func() time.Time
	newID     func() string
}

// Option customises a Generator.
type Option func(*Generator)

// WithRand replaces the random source, e.g. with a deterministic sequence in tests.
func WithRand(r RandFunc) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// WithClock replaces the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator over the catalog. It fails loudly when the catalog is missing.
func NewGenerator(c *catalog.Catalog, opts ...Option) (*Generator, error) {
	if c == nil || c.Len() == 0 {
		return nil, catalog.ErrEmptyCatalog
	}
	g := &Generator{
		exercises: c.All(),
		rand:      rand.Float64,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate builds a workout for cfg. Tight constraints never fail generation: they produce a smaller workout
// instead. Only an invalid cfg returns an error.
func (g *Generator) Generate(cfg Config) (GeneratedWorkout, error) {
	if err := cfg.Validate(); err != nil {
		return GeneratedWorkout{}, err
	}
	cfg = cfg.withDefaults()

	pool, relaxed := eligiblePool(g.exercises, cfg, false)
	relaxedPool, _ := eligiblePool(g.exercises, cfg, true)

	_, mainMinutes := splitMinutes(cfg.TotalMinutes)
	sel := newSelector(cfg, g.rand)

	var mainBlocks []CircuitBlock
	if cfg.Focus == FocusFlexibility {
		mainBlocks = newCircuitBuilder(cfg, relaxedPool, sel).buildFlexibility()
	} else {
		mainBlocks = newCircuitBuilder(cfg, pool, sel).buildMain(mainMinutes * 60) //nolint:mnd // seconds.
	}

	pairer := newStretchPairer(cfg, g.rand, relaxedPool, mainBlocks)
	var (
		warmUp, coolDown []WorkoutExercise
		stretchPairing   *StretchPairing
	)
	if p, ok := pairer.pair(mainBlocks); ok {
		warmUp, coolDown = p.warmUp, p.coolDown
		stretchPairing = &StretchPairing{TargetedMuscles: p.targeted, AIEnhanced: false, AIReasoning: ""}
	} else {
		warmUp, coolDown = pairer.random()
	}

	w := NewGeneratedWorkout(
		g.newID(),
		g.now(),
		cfg,
		NewPhase(PhaseWarmUp, blocksOf(PhaseWarmUp, warmUp)),
		NewPhase(PhaseMain, mainBlocks),
		NewPhase(PhaseCoolDown, blocksOf(PhaseCoolDown, coolDown)),
	)
	w.AvoidMusclesRelaxed = relaxed
	w.StretchPairing = stretchPairing
	return w, nil
}

// blocksOf wraps exercises in a single block, or none when there are no exercises.
func blocksOf(name string, exercises []WorkoutExercise) []CircuitBlock {
	if len(exercises) == 0 {
		return []CircuitBlock{}
	}
	return []CircuitBlock{singleRoundBlock(name, exercises)}
}
