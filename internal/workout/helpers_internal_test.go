package workout

import (
	"testing"
	"time"

	"github.com/myrjola/circuitgen/internal/catalog"
)

var fixedNow = time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture.

// constRand always returns v.
func constRand(v float64) RandFunc {
	return func() float64 { return v }
}

// testExercise builds a valid bodyweight beginner exercise that can be customised with opts.
func testExercise(id string, category catalog.Category, primary []string, opts ...func(*catalog.Exercise)) catalog.Exercise {
	ex := catalog.Exercise{
		ID:               id,
		Name:             id,
		Instructions:     "Do the " + id + ".",
		Category:         category,
		PrimaryMuscles:   primary,
		SecondaryMuscles: nil,
		Difficulty:       catalog.DifficultyBeginner,
		Equipment:        nil,
		RepScheme:        catalog.RepScheme{Type: catalog.SchemeReps, Count: 10, Seconds: 0},
		IsWarmUp:         false,
		IsCoolDown:       false,
	}
	for _, opt := range opts {
		opt(&ex)
	}
	return ex
}

func withSecondary(muscles ...string) func(*catalog.Exercise) {
	return func(ex *catalog.Exercise) { ex.SecondaryMuscles = muscles }
}

func withDifficulty(d catalog.Difficulty) func(*catalog.Exercise) {
	return func(ex *catalog.Exercise) { ex.Difficulty = d }
}

func withEquipment(eq ...catalog.Equipment) func(*catalog.Exercise) {
	return func(ex *catalog.Exercise) { ex.Equipment = eq }
}

func timed(seconds int) func(*catalog.Exercise) {
	return func(ex *catalog.Exercise) {
		ex.RepScheme = catalog.RepScheme{Type: catalog.SchemeTimed, Count: 0, Seconds: seconds}
	}
}

func warmUp(ex *catalog.Exercise) { ex.IsWarmUp = true }

func coolDown(ex *catalog.Exercise) { ex.IsCoolDown = true }

// loadCatalog returns the bundled catalog.
func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func newTestGenerator(t *testing.T, c *catalog.Catalog, opts ...Option) *Generator {
	t.Helper()
	g, err := NewGenerator(c, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func mustCatalog(t *testing.T, exercises ...catalog.Exercise) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(exercises)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return c
}
