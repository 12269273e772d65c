// Command stresstest generates many workouts and week plans from random configs in parallel and checks the
// generator invariants. With a host argument the workouts are requested from a running server instead of being
// generated in process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/e2etest"
	"github.com/myrjola/circuitgen/internal/logging"
	"github.com/myrjola/circuitgen/internal/share"
	"github.com/myrjola/circuitgen/internal/testhelpers"
	"github.com/myrjola/circuitgen/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkouts      = 500
	defaultWeeks         = 50
	defaultConcurrency   = 20
	percentageMultiplier = 100
	requestTimeout       = 30 * time.Second
)

// source produces a workout and the workout rebuilt from its share code.
type source interface {
	generate(ctx context.Context, cfg workout.Config) (workout.GeneratedWorkout, workout.GeneratedWorkout, error)
}

type localSource struct {
	generator *workout.Generator
	codec     *share.Codec
}

func (s localSource) generate(
	_ context.Context, cfg workout.Config) (workout.GeneratedWorkout, workout.GeneratedWorkout, error) {
	w, err := s.generator.Generate(cfg)
	if err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, fmt.Errorf("generate: %w", err)
	}
	code, err := s.codec.Encode(w)
	if err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, fmt.Errorf("encode: %w", err)
	}
	decoded, ok := s.codec.Decode(code)
	if !ok {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, errors.New("decode own share code")
	}
	return w, decoded, nil
}

type remoteSource struct {
	client *e2etest.Client
}

type workoutResponse struct {
	Workout   workout.GeneratedWorkout `json:"workout"`
	ShareCode string                   `json:"share_code"`
}

func (s remoteSource) generate(
	ctx context.Context, cfg workout.Config) (workout.GeneratedWorkout, workout.GeneratedWorkout, error) {
	resp, err := s.client.PostJSON(ctx, "/api/workouts", cfg)
	if err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, err
	}
	var created workoutResponse
	if err = e2etest.DecodeJSON(resp, http.StatusCreated, &created); err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, fmt.Errorf("create workout: %w", err)
	}
	if resp, err = s.client.Get(ctx, "/api/share/"+created.ShareCode); err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, err
	}
	var shared workoutResponse
	if err = e2etest.DecodeJSON(resp, http.StatusOK, &shared); err != nil {
		return workout.GeneratedWorkout{}, workout.GeneratedWorkout{}, fmt.Errorf("decode share code: %w", err)
	}
	return created.Workout, shared.Workout, nil
}

// randomConfig draws a valid config. Muscles and exercise ids come from the catalog so that the constraints bite.
func randomConfig(exercises []catalog.Exercise) workout.Config {
	equipment := []catalog.Equipment{
		catalog.EquipmentDumbbells, catalog.EquipmentKettlebell, catalog.EquipmentResistanceBand,
		catalog.EquipmentPullUpBar, catalog.EquipmentBench, catalog.EquipmentJumpRope,
	}
	focuses := []workout.Focus{
		workout.FocusBalanced, workout.FocusPush, workout.FocusPull, workout.FocusLegs,
		workout.FocusCore, workout.FocusCardio, workout.FocusFlexibility,
	}
	difficulties := []catalog.Difficulty{
		catalog.DifficultyBeginner, catalog.DifficultyIntermediate, catalog.DifficultyAdvanced,
	}

	cfg := workout.Config{
		TotalMinutes:         workout.MinTotalMinutes + rand.IntN(workout.MaxTotalMinutes-workout.MinTotalMinutes+1),
		AvailableEquipment:   []catalog.Equipment{catalog.EquipmentNone},
		Difficulty:           difficulties[rand.IntN(len(difficulties))],
		Focus:                focuses[rand.IntN(len(focuses))],
		TargetMuscles:        nil,
		AvoidMuscles:         nil,
		VolumeModifier:       0.5 + rand.Float64()*1.5, //nolint:mnd // between half and double volume.
		ExcludeExerciseIDs:   nil,
		EquipmentOnly:        rand.IntN(10) == 0, //nolint:mnd // rarely.
		PreferredExerciseIDs: nil,
		EmphasizeCardio:      rand.IntN(4) == 0, //nolint:mnd // sometimes.
	}
	for _, eq := range equipment {
		if rand.IntN(2) == 0 {
			cfg.AvailableEquipment = append(cfg.AvailableEquipment, eq)
		}
	}
	for range rand.IntN(3) { //nolint:mnd // up to two of each.
		cfg.TargetMuscles = append(cfg.TargetMuscles, randomMuscle(exercises))
		cfg.AvoidMuscles = append(cfg.AvoidMuscles, randomMuscle(exercises))
		cfg.ExcludeExerciseIDs = append(cfg.ExcludeExerciseIDs, exercises[rand.IntN(len(exercises))].ID)
		cfg.PreferredExerciseIDs = append(cfg.PreferredExerciseIDs, exercises[rand.IntN(len(exercises))].ID)
	}
	return cfg
}

func randomMuscle(exercises []catalog.Exercise) string {
	for {
		ex := exercises[rand.IntN(len(exercises))]
		if len(ex.PrimaryMuscles) > 0 {
			return ex.PrimaryMuscles[rand.IntN(len(ex.PrimaryMuscles))]
		}
	}
}

type results struct {
	succeeded atomic.Int64
	failed    atomic.Int64
}

func (r *results) record(ctx context.Context, logger *slog.Logger, kind string, err error) {
	if err == nil {
		r.succeeded.Add(1)
		return
	}
	r.failed.Add(1)
	logger.LogAttrs(ctx, slog.LevelError, "invariant violated", slog.String("kind", kind), slog.Any("error", err))
}

// runWorkouts generates n workouts with at most concurrency in flight.
func runWorkouts(
	ctx context.Context, logger *slog.Logger, src source, exercises []catalog.Exercise, n, concurrency int, r *results,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for range n {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
			defer cancel()
			cfg := randomConfig(exercises)
			w, decoded, err := src.generate(reqCtx, cfg)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("generate workout: %w", err)
				}
				r.record(ctx, logger, "generate", err)
				return nil
			}
			r.record(ctx, logger, "workout", errors.Join(checkWorkout(cfg, w), checkRoundTrip(w, decoded)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("wait for workouts: %w", err)
	}
	return nil
}

// runWeeks plans n weeks in process with at most concurrency in flight.
func runWeeks(
	ctx context.Context, logger *slog.Logger, planner *workout.Planner, exercises []catalog.Exercise,
	n, concurrency int, r *results,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	strategies := workout.Strategies()
	for range n {
		g.Go(func() error {
			base := randomConfig(exercises)
			base.TargetMuscles, base.AvoidMuscles = nil, nil
			wc := workout.WeekConfig{
				StartDate: time.Now(),
				Strategy:  strategies[rand.IntN(len(strategies))],
				Base:      base,
				UseAI:     false,
			}
			plans, err := planner.PlanWeek(ctx, wc)
			if err != nil {
				r.record(ctx, logger, "plan", err)
				return nil
			}
			r.record(ctx, logger, "week", checkWeek(plans))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("wait for weeks: %w", err)
	}
	return nil
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("stresstest", flag.ContinueOnError)
	var (
		n           = fs.Int("n", defaultWorkouts, "number of workouts to generate")
		weeks       = fs.Int("weeks", defaultWeeks, "number of week plans to generate")
		concurrency = fs.Int("concurrency", defaultConcurrency, "maximum concurrent generations")
		threshold   = fs.Float64("threshold", percentageMultiplier, "minimum success rate in percent")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	c, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	generator, err := workout.NewGenerator(c)
	if err != nil {
		return fmt.Errorf("new generator: %w", err)
	}

	var src source = localSource{generator: generator, codec: share.NewCodec(c)}
	if host := fs.Arg(0); host != "" {
		url := "https://" + host
		if strings.Contains(host, "localhost") {
			url = "http://" + host
		}
		ctx = logging.WithAttrs(ctx, slog.String("url", url))
		client := e2etest.NewClient(url)
		if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
			return fmt.Errorf("server not ready: %w", err)
		}
		src = remoteSource{client: client}
	}

	var (
		r     results
		start = time.Now()
	)
	logger.LogAttrs(ctx, slog.LevelInfo, "generating workouts",
		slog.Int("workouts", *n), slog.Int("concurrency", *concurrency))
	if err = runWorkouts(ctx, logger, src, c.All(), *n, *concurrency, &r); err != nil {
		return err
	}
	planner := workout.NewPlanner(generator, nil, logger)
	if err = runWeeks(ctx, logger, planner, c.All(), *weeks, *concurrency, &r); err != nil {
		return err
	}

	total := r.succeeded.Load() + r.failed.Load()
	successRate := float64(r.succeeded.Load()) / float64(max(total, 1)) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "stress test completed",
		slog.Int64("successful", r.succeeded.Load()),
		slog.Int64("failed", r.failed.Load()),
		slog.Float64("success_rate", successRate),
		slog.Duration("duration", time.Since(start)))
	if successRate < *threshold {
		return fmt.Errorf("success rate %.1f%% below threshold %.1f%%", successRate, *threshold)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()
	if err := run(ctx, logger, os.Args[1:]); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "stress test failed", slog.Any("error", err))
		os.Exit(1)
	}
}
