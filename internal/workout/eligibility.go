package workout

import (
	"slices"

	"github.com/myrjola/circuitgen/internal/catalog"
)

// MinPoolBeforeRelax is the pool size below which avoided muscles are ignored so that recovery constraints never
// starve generation.
const MinPoolBeforeRelax = 8

// eligibility holds the hard constraints of a config in lookup-friendly form.
type eligibility struct {
	equipment     map[catalog.Equipment]struct{}
	excluded      map[string]struct{}
	avoid         map[string]struct{}
	maxLevel      int
	equipmentOnly bool
}

func newEligibility(cfg Config) eligibility {
	e := eligibility{
		equipment:     make(map[catalog.Equipment]struct{}, len(cfg.AvailableEquipment)),
		excluded:      toSet(cfg.ExcludeExerciseIDs),
		avoid:         toSet(cfg.AvoidMuscles),
		maxLevel:      cfg.Difficulty.Level(),
		equipmentOnly: cfg.EquipmentOnly,
	}
	for _, eq := range cfg.AvailableEquipment {
		if eq != catalog.EquipmentNone {
			e.equipment[eq] = struct{}{}
		}
	}
	return e
}

// allows reports whether ex satisfies the constraints.
//
// Only primary muscles are checked against the avoided muscles. An exercise that merely involves an avoided muscle
// as a secondary mover stays eligible.
func (e eligibility) allows(ex catalog.Exercise, ignoreEquipmentOnly, ignoreAvoid bool) bool {
	for _, eq := range ex.Equipment {
		if _, ok := e.equipment[eq]; !ok {
			return false
		}
	}
	if ex.Difficulty.Level() > e.maxLevel {
		return false
	}
	if _, ok := e.excluded[ex.ID]; ok {
		return false
	}
	if e.equipmentOnly && !ignoreEquipmentOnly && !ex.RequiresEquipment() {
		return false
	}
	if !ignoreAvoid {
		for _, m := range ex.PrimaryMuscles {
			if _, ok := e.avoid[m]; ok {
				return false
			}
		}
	}
	return true
}

// filter returns the eligible exercises in catalog order.
func (e eligibility) filter(exercises []catalog.Exercise, ignoreEquipmentOnly, ignoreAvoid bool) []catalog.Exercise {
	var pool []catalog.Exercise
	for _, ex := range exercises {
		if e.allows(ex, ignoreEquipmentOnly, ignoreAvoid) {
			pool = append(pool, ex)
		}
	}
	return pool
}

// eligiblePool applies every constraint of cfg. When the avoided muscles shrink the pool below
// MinPoolBeforeRelax the filter is re-run without them and relaxed is true.
func eligiblePool(exercises []catalog.Exercise, cfg Config, ignoreEquipmentOnly bool) ([]catalog.Exercise, bool) {
	e := newEligibility(cfg)
	pool := e.filter(exercises, ignoreEquipmentOnly, false)
	if len(e.avoid) > 0 && len(pool) < MinPoolBeforeRelax {
		return e.filter(exercises, ignoreEquipmentOnly, true), true
	}
	return pool, false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
