package workout

import (
	"cmp"
	"slices"

	"github.com/myrjola/circuitgen/internal/catalog"
)

// RandFunc returns a pseudo-random number in [0, 1).
type RandFunc func() float64

// Selection scoring constants.
const (
	baseScore              = 1.0
	categoryWeightFactor   = 10.0
	equipmentBonus         = 4.0
	exactDifficultyBonus   = 8.0
	easierDifficultyBonus  = 3.0
	difficultyMismatch     = -2.0
	preferredExerciseBonus = 25.0
	primaryTargetBonus     = 12.0
	secondaryTargetBonus   = 6.0
	topCandidates          = 3
	cardioEmphasisBoost    = 0.3
)

// categoryWeights maps each focus to the weight of every category. Categories with zero weight are not visited when
// building circuits.
var categoryWeights = map[Focus]map[catalog.Category]float64{ //nolint:gochecknoglobals // static lookup table.
	FocusBalanced: {
		catalog.CategoryPush: 0.2, catalog.CategoryPull: 0.2, catalog.CategoryLegs: 0.2,
		catalog.CategoryCore: 0.2, catalog.CategoryCardio: 0.2, catalog.CategoryFlexibility: 0,
	},
	FocusPush: {
		catalog.CategoryPush: 1.0, catalog.CategoryPull: 0.2, catalog.CategoryLegs: 0.3,
		catalog.CategoryCore: 0.3, catalog.CategoryCardio: 0.2, catalog.CategoryFlexibility: 0,
	},
	FocusPull: {
		catalog.CategoryPush: 0.2, catalog.CategoryPull: 1.0, catalog.CategoryLegs: 0.3,
		catalog.CategoryCore: 0.3, catalog.CategoryCardio: 0.2, catalog.CategoryFlexibility: 0,
	},
	FocusLegs: {
		catalog.CategoryPush: 0.2, catalog.CategoryPull: 0.2, catalog.CategoryLegs: 1.0,
		catalog.CategoryCore: 0.4, catalog.CategoryCardio: 0.3, catalog.CategoryFlexibility: 0,
	},
	FocusCore: {
		catalog.CategoryPush: 0.3, catalog.CategoryPull: 0.3, catalog.CategoryLegs: 0.3,
		catalog.CategoryCore: 1.0, catalog.CategoryCardio: 0.3, catalog.CategoryFlexibility: 0,
	},
	FocusCardio: {
		catalog.CategoryPush: 0.2, catalog.CategoryPull: 0.2, catalog.CategoryLegs: 0.5,
		catalog.CategoryCore: 0.4, catalog.CategoryCardio: 1.0, catalog.CategoryFlexibility: 0,
	},
	FocusFlexibility: {
		catalog.CategoryPush: 0, catalog.CategoryPull: 0, catalog.CategoryLegs: 0,
		catalog.CategoryCore: 0.2, catalog.CategoryCardio: 0, catalog.CategoryFlexibility: 1.0,
	},
}

// categoryPlan is a category with its weight for the configured focus.
type categoryPlan struct {
	category catalog.Category
	weight   float64
}

// visitOrder lists the categories with positive weight, heaviest first. Ties keep the canonical category order.
func visitOrder(cfg Config) []categoryPlan {
	weights := categoryWeights[cfg.Focus]
	var order []categoryPlan
	for _, c := range catalog.Categories() {
		w := weights[c]
		if cfg.EmphasizeCardio && c == catalog.CategoryCardio {
			w = min(w+cardioEmphasisBoost, 1)
		}
		if w > 0 {
			order = append(order, categoryPlan{category: c, weight: w})
		}
	}
	slices.SortStableFunc(order, func(a, b categoryPlan) int {
		return cmp.Compare(b.weight, a.weight)
	})
	return order
}

// rotate starts the order at offset so that consecutive circuits lead with different categories.
func rotate[T any](s []T, offset int) []T {
	if len(s) == 0 {
		return s
	}
	offset %= len(s)
	out := make([]T, 0, len(s))
	out = append(out, s[offset:]...)
	return append(out, s[:offset]...)
}

// selector ranks candidates and picks one of the best at random.
type selector struct {
	rand      RandFunc
	level     int
	preferred map[string]struct{}
	targets   map[string]struct{}
}

func newSelector(cfg Config, rand RandFunc) selector {
	return selector{
		rand:      rand,
		level:     cfg.Difficulty.Level(),
		preferred: toSet(cfg.PreferredExerciseIDs),
		targets:   toSet(cfg.TargetMuscles),
	}
}

// score rates how well ex fits a slot of the given category weight.
func (s selector) score(ex catalog.Exercise, weight float64) float64 {
	score := baseScore + weight*categoryWeightFactor
	if ex.RequiresEquipment() {
		score += equipmentBonus
	}
	switch s.level - ex.Difficulty.Level() {
	case 0:
		score += exactDifficultyBonus
	case 1:
		score += easierDifficultyBonus
	default:
		score += difficultyMismatch
	}
	if _, ok := s.preferred[ex.ID]; ok {
		score += preferredExerciseBonus
	}
	for _, m := range ex.PrimaryMuscles {
		if _, ok := s.targets[m]; ok {
			score += primaryTargetBonus
		}
	}
	for _, m := range ex.SecondaryMuscles {
		if _, ok := s.targets[m]; ok {
			score += secondaryTargetBonus
		}
	}
	return score
}

// pick returns one of the top scored candidates chosen uniformly at random.
func (s selector) pick(candidates []catalog.Exercise, weight float64) (catalog.Exercise, bool) {
	if len(candidates) == 0 {
		return catalog.Exercise{}, false
	}
	type scored struct {
		ex    catalog.Exercise
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, ex := range candidates {
		ranked = append(ranked, scored{ex: ex, score: s.score(ex, weight)})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	top := min(topCandidates, len(ranked))
	return ranked[randIndex(s.rand, top)].ex, true
}

// randIndex maps rand onto [0, n).
func randIndex(rand RandFunc, n int) int {
	i := int(rand() * float64(n))
	return min(max(i, 0), n-1)
}

// shuffle returns a randomly permuted copy of s.
func shuffle[T any](rand RandFunc, s []T) []T {
	out := slices.Clone(s)
	for i := len(out) - 1; i > 0; i-- {
		j := randIndex(rand, i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
