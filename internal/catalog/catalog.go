package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
)

//go:embed exercises.json
var embeddedExercises []byte

var (
	ErrEmptyCatalog    = errors.New("exercise catalog is empty")
	ErrUnknownExercise = errors.New("unknown exercise")
)

// Catalog is the ordered, read-only set of exercises. The order is significant: share codes reference exercises by
// their index.
type Catalog struct {
	exercises []Exercise
	index     map[string]int
}

// New builds a catalog from exercises, preserving their order.
func New(exercises []Exercise) (*Catalog, error) {
	if len(exercises) == 0 {
		return nil, ErrEmptyCatalog
	}
	index := make(map[string]int, len(exercises))
	for i, ex := range exercises {
		if err := ex.validate(); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
		if _, ok := index[ex.ID]; ok {
			return nil, fmt.Errorf("duplicate exercise id %q", ex.ID)
		}
		index[ex.ID] = i
	}
	return &Catalog{
		exercises: exercises,
		index:     index,
	}, nil
}

// Load parses the catalog bundled with the binary.
func Load() (*Catalog, error) {
	return Parse(embeddedExercises)
}

// Parse builds a catalog from a JSON document of the form {"exercises": [...]}.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Exercises []Exercise `json:"exercises"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return New(doc.Exercises)
}

// All returns a copy of the exercises in catalog order.
func (c *Catalog) All() []Exercise {
	out := make([]Exercise, len(c.exercises))
	copy(out, c.exercises)
	return out
}

// Len returns the number of exercises.
func (c *Catalog) Len() int {
	return len(c.exercises)
}

// Get looks up an exercise by id.
func (c *Catalog) Get(id string) (Exercise, error) {
	i, ok := c.index[id]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %s", ErrUnknownExercise, id)
	}
	return c.exercises[i], nil
}

// IndexOf returns the catalog position of id.
func (c *Catalog) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// At returns the exercise at catalog position i.
func (c *Catalog) At(i int) (Exercise, bool) {
	if i < 0 || i >= len(c.exercises) {
		return Exercise{}, false
	}
	return c.exercises[i], true
}

// Without returns a copy of the catalog with the given ids removed. Positions of the remaining exercises shift.
func (c *Catalog) Without(ids ...string) (*Catalog, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]Exercise, 0, len(c.exercises))
	for _, ex := range c.exercises {
		if _, ok := drop[ex.ID]; !ok {
			kept = append(kept, ex)
		}
	}
	return New(kept)
}
