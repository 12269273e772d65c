package workout

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/circuitgen/internal/catalog"
)

// categoryPool creates n exercises of 30 seconds for each main workout category.
func categoryPool(n int) []catalog.Exercise {
	muscles := map[catalog.Category]string{
		catalog.CategoryPush:   "chest",
		catalog.CategoryPull:   "upper_back",
		catalog.CategoryLegs:   "quads",
		catalog.CategoryCore:   "core",
		catalog.CategoryCardio: "calves",
	}
	var pool []catalog.Exercise
	for _, c := range catalog.Categories() {
		if c == catalog.CategoryFlexibility {
			continue
		}
		for i := range n {
			pool = append(pool, testExercise(fmt.Sprintf("%s-%d", c, i), c, []string{muscles[c]}))
		}
	}
	return pool
}

func TestBuildMainRotatesCategories(t *testing.T) {
	cfg := Config{
		TotalMinutes:   30,
		Difficulty:     catalog.DifficultyBeginner,
		Focus:          FocusBalanced,
		VolumeModifier: 1,
	}
	b := newCircuitBuilder(cfg, categoryPool(4), newSelector(cfg, constRand(0)))
	// Every circuit takes 4 * 30s * 2 rounds + 60s rest = 300s.
	blocks := b.buildMain(1200)

	if len(blocks) != MaxCircuits {
		t.Fatalf("got %d circuits, want %d", len(blocks), MaxCircuits)
	}

	var leading []catalog.Category
	seen := make(map[string]bool)
	for i, block := range blocks {
		if want := fmt.Sprintf("Circuit %d", i+1); block.Name != want {
			t.Errorf("block name = %q, want %q", block.Name, want)
		}
		if block.Rounds != 2 || block.RestBetweenRoundsSeconds != 60 || block.RestBetweenExercisesSeconds != 0 {
			t.Errorf("unexpected beginner circuit shape: %+v", block)
		}
		if len(block.Exercises) != 4 {
			t.Errorf("circuit %d has %d exercises, want 4", i+1, len(block.Exercises))
		}
		for _, we := range block.Exercises {
			if seen[we.Exercise.ID] {
				t.Errorf("exercise %s used twice", we.Exercise.ID)
			}
			seen[we.Exercise.ID] = true
		}
		leading = append(leading, block.Exercises[0].Exercise.Category)
	}
	want := []catalog.Category{catalog.CategoryPush, catalog.CategoryPull, catalog.CategoryLegs, catalog.CategoryCore}
	if diff := cmp.Diff(want, leading); diff != "" {
		t.Errorf("leading categories mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMainStopsAtTarget(t *testing.T) {
	cfg := Config{
		TotalMinutes:   15,
		Difficulty:     catalog.DifficultyBeginner,
		Focus:          FocusBalanced,
		VolumeModifier: 1,
	}
	b := newCircuitBuilder(cfg, categoryPool(4), newSelector(cfg, constRand(0)))
	// 300s for the first circuit and 330s for the second reaches the target of 600s.
	blocks := b.buildMain(600)
	if len(blocks) != 2 {
		t.Errorf("got %d circuits, want 2", len(blocks))
	}
}

func TestBuildMainBackfills(t *testing.T) {
	var pool []catalog.Exercise
	for i := range 6 {
		pool = append(pool, testExercise(fmt.Sprintf("legs-%d", i), catalog.CategoryLegs, []string{"quads"}))
	}
	cfg := Config{
		TotalMinutes:   20,
		Difficulty:     catalog.DifficultyBeginner,
		Focus:          FocusBalanced,
		VolumeModifier: 1,
	}
	b := newCircuitBuilder(cfg, pool, newSelector(cfg, constRand(0)))
	blocks := b.buildMain(600)

	// The first circuit takes one legs exercise by category and three by backfill, leaving two for the second.
	if len(blocks) != 2 {
		t.Fatalf("got %d circuits, want 2", len(blocks))
	}
	if got := len(blocks[0].Exercises); got != 4 {
		t.Errorf("first circuit has %d exercises, want 4", got)
	}
	if got := len(blocks[1].Exercises); got != 2 {
		t.Errorf("second circuit has %d exercises, want 2", got)
	}
}

func TestBuildMainRejectsDegenerateCircuits(t *testing.T) {
	cfg := Config{
		TotalMinutes:   20,
		Difficulty:     catalog.DifficultyBeginner,
		Focus:          FocusBalanced,
		VolumeModifier: 1,
	}
	pool := []catalog.Exercise{testExercise("squat", catalog.CategoryLegs, []string{"quads"})}
	b := newCircuitBuilder(cfg, pool, newSelector(cfg, constRand(0)))
	if blocks := b.buildMain(600); len(blocks) != 0 {
		t.Errorf("got %d circuits, want none", len(blocks))
	}
}

func TestFitCircuit(t *testing.T) {
	hold := testExercise("hold", catalog.CategoryCore, []string{"core"}, timed(100))
	newBlock := func(rounds int) CircuitBlock {
		return CircuitBlock{
			Name:                        "Circuit 1",
			Exercises:                   []WorkoutExercise{{Exercise: hold, DurationSeconds: 100}},
			Rounds:                      rounds,
			RestBetweenExercisesSeconds: 0,
			RestBetweenRoundsSeconds:    45,
		}
	}

	tests := []struct {
		name        string
		rounds      int
		accumulated int
		needsRest   bool
		target      int
		wantOK      bool
		wantCost    int
		wantRounds  int
	}{
		{name: "fits", rounds: 3, target: 400, wantOK: true, wantCost: 390, wantRounds: 3},
		{name: "within tolerance", rounds: 3, target: 210, wantOK: true, wantCost: 390, wantRounds: 3},
		{name: "drops a round", rounds: 3, target: 200, wantOK: true, wantCost: 245, wantRounds: 2},
		{
			name: "inter circuit rest counts", rounds: 3, accumulated: 300, needsRest: true, target: 400,
			wantOK: true, wantCost: 275, wantRounds: 2,
		},
		{name: "cannot go below two rounds", rounds: 2, target: 50, wantOK: false, wantRounds: 2},
		{name: "still too long after trimming", rounds: 4, target: 100, wantOK: false, wantRounds: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block := newBlock(tt.rounds)
			cost, ok := fitCircuit(&block, tt.accumulated, tt.needsRest, tt.target)
			if ok != tt.wantOK {
				t.Fatalf("fitCircuit() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && cost != tt.wantCost {
				t.Errorf("fitCircuit() cost = %d, want %d", cost, tt.wantCost)
			}
			if block.Rounds != tt.wantRounds {
				t.Errorf("rounds = %d, want %d", block.Rounds, tt.wantRounds)
			}
		})
	}
}

func TestBuildFlexibility(t *testing.T) {
	var pool []catalog.Exercise
	for i := range 6 {
		pool = append(pool, testExercise(fmt.Sprintf("mobility-%d", i), catalog.CategoryFlexibility,
			[]string{"hip_flexors"}, timed(30), warmUp))
		pool = append(pool, testExercise(fmt.Sprintf("stretch-%d", i), catalog.CategoryFlexibility,
			[]string{"hamstrings"}, timed(40), coolDown))
	}

	tests := []struct {
		minutes    int
		wantRounds int
	}{
		{minutes: 20, wantRounds: 1},
		{minutes: 30, wantRounds: 2},
	}
	for _, tt := range tests {
		cfg := Config{
			TotalMinutes:   tt.minutes,
			Difficulty:     catalog.DifficultyBeginner,
			Focus:          FocusFlexibility,
			VolumeModifier: 1,
		}
		blocks := newCircuitBuilder(cfg, pool, newSelector(cfg, constRand(0))).buildFlexibility()
		if len(blocks) != 2 {
			t.Fatalf("got %d blocks, want 2", len(blocks))
		}
		mobility, deep := blocks[0], blocks[1]
		if mobility.Name != mobilityBlockName || len(mobility.Exercises) != maxMobilityExercises {
			t.Errorf("unexpected mobility block %q with %d exercises", mobility.Name, len(mobility.Exercises))
		}
		for _, we := range mobility.Exercises {
			// 30s reduced to 75% is 23s.
			if we.DurationSeconds != 23 {
				t.Errorf("mobility hold = %d, want reduced volume of 23", we.DurationSeconds)
			}
		}
		if deep.Name != deepStretchBlockName || len(deep.Exercises) != maxDeepStretchExercises {
			t.Errorf("unexpected deep stretch block %q with %d exercises", deep.Name, len(deep.Exercises))
		}
		if deep.Rounds != tt.wantRounds || deep.RestBetweenRoundsSeconds != deepStretchRestSeconds {
			t.Errorf("%d minutes: deep stretch rounds = %d, rest = %d", tt.minutes, deep.Rounds, deep.RestBetweenRoundsSeconds)
		}
	}
}
