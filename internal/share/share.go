// Package share encodes workouts into compact, URL-safe share codes and decodes them back against the catalog.
//
// The current format (version 2) references exercises by their catalog position and uses single letter keys.
// Version 1 codes reference exercises by id with verbose keys and can still be decoded.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/workout"
)

const (
	VersionLegacy  = 1
	VersionCurrent = 2
)

var errUnknownVersion = errors.New("unknown share code version")

// Codec converts workouts to and from share codes. Encoder and decoder must use catalogs with the same ordering.
type Codec struct {
	catalog *catalog.Catalog
}

// NewCodec creates a Codec over c.
func NewCodec(c *catalog.Catalog) *Codec {
	return &Codec{catalog: c}
}

type payloadV2 struct {
	Version   int        `json:"v"`
	CreatedAt int64      `json:"t,omitempty"`
	Config    configV2   `json:"c"`
	Phases    []phaseV2  `json:"p"`
	Paired    bool       `json:"y,omitempty"`
	Targeted  []string   `json:"m,omitempty"`
	AI        *aiNotesV2 `json:"a,omitempty"`
}

type configV2 struct {
	TotalMinutes       int                 `json:"m"`
	Equipment          []catalog.Equipment `json:"q,omitempty"`
	Difficulty         catalog.Difficulty  `json:"d"`
	Focus              workout.Focus       `json:"f,omitempty"`
	TargetMuscles      []string            `json:"g,omitempty"`
	AvoidMuscles       []string            `json:"x,omitempty"`
	VolumeModifier     float64             `json:"o,omitempty"`
	EquipmentOnly      bool                `json:"e,omitempty"`
	EmphasizeCardio    bool                `json:"k,omitempty"`
	ExcludeExerciseIDs []string            `json:"n,omitempty"`
}

type aiNotesV2 struct {
	Reasoning string `json:"r,omitempty"`
}

type phaseV2 struct {
	Name   string    `json:"n"`
	Blocks []blockV2 `json:"b"`
}

type blockV2 struct {
	Name              string       `json:"n"`
	Rounds            int          `json:"r"`
	RestBetweenEx     int          `json:"e,omitempty"`
	RestBetweenRounds int          `json:"s,omitempty"`
	Exercises         []exerciseV2 `json:"x"`
}

type exerciseV2 struct {
	Index    int `json:"i"`
	Reps     int `json:"r,omitempty"`
	Duration int `json:"d,omitempty"`
	PerSide  int `json:"s,omitempty"`
}

// payloadV1 is the legacy verbose format.
type payloadV1 struct {
	Version   int            `json:"v"`
	CreatedAt time.Time      `json:"createdAt"`
	Config    workout.Config `json:"config"`
	Phases    []phaseV1      `json:"phases"`
}

type phaseV1 struct {
	Name   string    `json:"name"`
	Blocks []blockV1 `json:"blocks"`
}

type blockV1 struct {
	Name                 string       `json:"name"`
	Rounds               int          `json:"rounds"`
	RestBetweenExercises int          `json:"restBetweenExercises"`
	RestBetweenRounds    int          `json:"restBetweenRounds"`
	Exercises            []exerciseV1 `json:"exercises"`
}

type exerciseV1 struct {
	ExerciseID      string `json:"exerciseId"`
	Reps            int    `json:"reps,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	PerSide         bool   `json:"perSide,omitempty"`
}

// Encode serialises w into a version 2 share code. Exercises unknown to the catalog cannot be referenced and are
// left out.
func (c *Codec) Encode(w workout.GeneratedWorkout) (string, error) {
	p := payloadV2{
		Version:   VersionCurrent,
		CreatedAt: w.CreatedAt.UnixMilli(),
		Config: configV2{
			TotalMinutes:       w.Config.TotalMinutes,
			Equipment:          w.Config.AvailableEquipment,
			Difficulty:         w.Config.Difficulty,
			Focus:              w.Config.Focus,
			TargetMuscles:      w.Config.TargetMuscles,
			AvoidMuscles:       w.Config.AvoidMuscles,
			VolumeModifier:     w.Config.VolumeModifier,
			EquipmentOnly:      w.Config.EquipmentOnly,
			EmphasizeCardio:    w.Config.EmphasizeCardio,
			ExcludeExerciseIDs: w.Config.ExcludeExerciseIDs,
		},
		Phases:   make([]phaseV2, 0, len(w.Phases())),
		Paired:   false,
		Targeted: nil,
		AI:       nil,
	}
	if sp := w.StretchPairing; sp != nil {
		p.Paired = true
		p.Targeted = sp.TargetedMuscles
		if sp.AIEnhanced {
			p.AI = &aiNotesV2{Reasoning: sp.AIReasoning}
		}
	}

	for _, phase := range w.Phases() {
		pp := phaseV2{Name: phase.Name, Blocks: make([]blockV2, 0, len(phase.Blocks))}
		for _, b := range phase.Blocks {
			bb := blockV2{
				Name:              b.Name,
				Rounds:            b.Rounds,
				RestBetweenEx:     b.RestBetweenExercisesSeconds,
				RestBetweenRounds: b.RestBetweenRoundsSeconds,
				Exercises:         make([]exerciseV2, 0, len(b.Exercises)),
			}
			for _, we := range b.Exercises {
				i, ok := c.catalog.IndexOf(we.Exercise.ID)
				if !ok {
					continue
				}
				ee := exerciseV2{Index: i, Reps: we.Reps, Duration: we.DurationSeconds, PerSide: 0}
				if we.PerSide {
					ee.PerSide = 1
				}
				bb.Exercises = append(bb.Exercises, ee)
			}
			pp.Blocks = append(pp.Blocks, bb)
		}
		p.Phases = append(p.Phases, pp)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal share payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a share code of any supported version. Exercises that are no longer in the catalog are dropped.
// Malformed codes report false.
func (c *Codec) Decode(code string) (workout.GeneratedWorkout, bool) {
	w, err := c.decode(code)
	if err != nil {
		return workout.GeneratedWorkout{}, false
	}
	return w, true
}

func (c *Codec) decode(code string) (workout.GeneratedWorkout, error) {
	code = strings.TrimRight(strings.TrimSpace(code), "=")
	code = strings.NewReplacer("+", "-", "/", "_").Replace(code)
	data, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return workout.GeneratedWorkout{}, fmt.Errorf("decode base64: %w", err)
	}

	var header struct {
		Version int `json:"v"`
	}
	if err = json.Unmarshal(data, &header); err != nil {
		return workout.GeneratedWorkout{}, fmt.Errorf("unmarshal header: %w", err)
	}

	switch header.Version {
	case VersionCurrent:
		var p payloadV2
		if err = json.Unmarshal(data, &p); err != nil {
			return workout.GeneratedWorkout{}, fmt.Errorf("unmarshal v2: %w", err)
		}
		return c.fromV2(p), nil
	case VersionLegacy:
		var p payloadV1
		if err = json.Unmarshal(data, &p); err != nil {
			return workout.GeneratedWorkout{}, fmt.Errorf("unmarshal v1: %w", err)
		}
		return c.fromV1(p), nil
	default:
		return workout.GeneratedWorkout{}, fmt.Errorf("%w: %d", errUnknownVersion, header.Version)
	}
}

func (c *Codec) fromV2(p payloadV2) workout.GeneratedWorkout {
	cfg := workout.Config{
		TotalMinutes:         p.Config.TotalMinutes,
		AvailableEquipment:   p.Config.Equipment,
		Difficulty:           p.Config.Difficulty,
		Focus:                p.Config.Focus,
		TargetMuscles:        p.Config.TargetMuscles,
		AvoidMuscles:         p.Config.AvoidMuscles,
		VolumeModifier:       p.Config.VolumeModifier,
		ExcludeExerciseIDs:   p.Config.ExcludeExerciseIDs,
		EquipmentOnly:        p.Config.EquipmentOnly,
		PreferredExerciseIDs: nil,
		EmphasizeCardio:      p.Config.EmphasizeCardio,
	}

	phases := make([]workout.Phase, 0, len(p.Phases))
	for _, pp := range p.Phases {
		var blocks []workout.CircuitBlock
		for _, bb := range pp.Blocks {
			var exercises []workout.WorkoutExercise
			for _, ee := range bb.Exercises {
				ex, ok := c.catalog.At(ee.Index)
				if !ok {
					continue
				}
				exercises = append(exercises,
					decodedExercise(ex, ee.Reps, ee.Duration, ee.PerSide == 1, cfg.VolumeModifier))
			}
			blocks = appendBlock(blocks, bb.Name, exercises, bb.Rounds, bb.RestBetweenEx, bb.RestBetweenRounds)
		}
		phases = append(phases, workout.NewPhase(pp.Name, blocks))
	}

	w := assemble(time.UnixMilli(p.CreatedAt).UTC(), cfg, phases)
	if p.Paired {
		sp := &workout.StretchPairing{TargetedMuscles: p.Targeted, AIEnhanced: false, AIReasoning: ""}
		if p.AI != nil {
			sp.AIEnhanced = true
			sp.AIReasoning = p.AI.Reasoning
		}
		w.StretchPairing = sp
	}
	return w
}

func (c *Codec) fromV1(p payloadV1) workout.GeneratedWorkout {
	phases := make([]workout.Phase, 0, len(p.Phases))
	for _, pp := range p.Phases {
		var blocks []workout.CircuitBlock
		for _, bb := range pp.Blocks {
			var exercises []workout.WorkoutExercise
			for _, ee := range bb.Exercises {
				ex, err := c.catalog.Get(ee.ExerciseID)
				if err != nil {
					continue
				}
				exercises = append(exercises,
					decodedExercise(ex, ee.Reps, ee.DurationSeconds, ee.PerSide, p.Config.VolumeModifier))
			}
			blocks = appendBlock(blocks, bb.Name, exercises, bb.Rounds, bb.RestBetweenExercises, bb.RestBetweenRounds)
		}
		phases = append(phases, workout.NewPhase(pp.Name, blocks))
	}
	return assemble(p.CreatedAt, p.Config, phases)
}

// decodedExercise restores one exercise occurrence. A code carrying neither reps nor a duration falls back to the
// catalog rep scheme scaled by the workout's volume modifier.
func decodedExercise(ex catalog.Exercise, reps, duration int, perSide bool, modifier float64) workout.WorkoutExercise {
	if reps <= 0 && duration <= 0 {
		v := ex.RepScheme.Resolve(modifier, catalog.DefaultMinHoldSeconds)
		reps, duration, perSide = v.Reps, v.DurationSeconds, v.PerSide
	}
	return workout.WorkoutExercise{
		Exercise:        ex,
		Reps:            max(reps, 0),
		DurationSeconds: max(duration, 0),
		PerSide:         perSide,
	}
}

// appendBlock adds a block unless all of its exercises were dropped.
func appendBlock(
	blocks []workout.CircuitBlock, name string, exercises []workout.WorkoutExercise, rounds, restEx, restRounds int,
) []workout.CircuitBlock {
	if len(exercises) == 0 {
		return blocks
	}
	return append(blocks, workout.CircuitBlock{
		Name:                        name,
		Exercises:                   exercises,
		Rounds:                      max(rounds, 1),
		RestBetweenExercisesSeconds: max(restEx, 0),
		RestBetweenRoundsSeconds:    max(restRounds, 0),
	})
}

// assemble recomputes the derived totals and coverage. Missing phases are left empty.
func assemble(createdAt time.Time, cfg workout.Config, phases []workout.Phase) workout.GeneratedWorkout {
	names := []string{workout.PhaseWarmUp, workout.PhaseMain, workout.PhaseCoolDown}
	for len(phases) < len(names) {
		phases = append(phases, workout.NewPhase(names[len(phases)], nil))
	}
	return workout.NewGeneratedWorkout(uuid.NewString(), createdAt, cfg, phases[0], phases[1], phases[2])
}
