package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/e2etest"
	"github.com/myrjola/circuitgen/internal/logging"
	"github.com/myrjola/circuitgen/internal/testhelpers"
	"github.com/myrjola/circuitgen/internal/workout"
)

type workoutResponse struct {
	Workout   workout.GeneratedWorkout `json:"workout"`
	ShareCode string                   `json:"share_code"`
}

// smokeTest generates a workout, opens its share code and plans a week.
func smokeTest(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	resp, err := client.PostJSON(ctx, "/api/workouts", workout.Config{ //nolint:exhaustruct // defaults.
		TotalMinutes:       30,
		AvailableEquipment: []catalog.Equipment{catalog.EquipmentNone},
		Difficulty:         catalog.DifficultyBeginner,
		Focus:              workout.FocusBalanced,
	})
	if err != nil {
		return fmt.Errorf("post workout: %w", err)
	}
	var created workoutResponse
	if err = e2etest.DecodeJSON(resp, http.StatusCreated, &created); err != nil {
		return fmt.Errorf("create workout: %w", err)
	}

	if resp, err = client.Get(ctx, "/api/share/"+created.ShareCode); err != nil {
		return fmt.Errorf("get share code: %w", err)
	}
	if err = e2etest.DecodeJSON(resp, http.StatusOK, nil); err != nil {
		return fmt.Errorf("open share code: %w", err)
	}

	resp, err = client.PostJSON(ctx, "/api/weeks", workout.WeekConfig{ //nolint:exhaustruct // start today.
		Strategy: workout.StrategyFullBody,
		Base:     created.Workout.Config,
	})
	if err != nil {
		return fmt.Errorf("post week: %w", err)
	}
	if err = e2etest.DecodeJSON(resp, http.StatusCreated, nil); err != nil {
		return fmt.Errorf("plan week: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client := e2etest.NewClient(url)
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = smokeTest(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
