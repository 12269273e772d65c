package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/errors"
	"github.com/myrjola/circuitgen/internal/workout"
)

const dateLayout = "2006-01-02"

// planRequest is the week plan request file. Every key can be overridden with an environment variable such as
// CIRCUITGEN_PLAN_TOTAL_MINUTES.
type planRequest struct {
	StartDate      string   `mapstructure:"start_date"`
	Strategy       string   `mapstructure:"strategy"`
	TotalMinutes   int      `mapstructure:"total_minutes"`
	Equipment      []string `mapstructure:"equipment"`
	Difficulty     string   `mapstructure:"difficulty"`
	VolumeModifier float64  `mapstructure:"volume_modifier"`
	UseAI          bool     `mapstructure:"use_ai"`
}

// loadRequest reads a YAML, JSON or TOML request file. The format follows the file extension.
func loadRequest(path string, lookupEnv func(string) (string, bool)) (planRequest, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("start_date", "")
	v.SetDefault("strategy", string(workout.StrategyFullBody))
	v.SetDefault("total_minutes", 30) //nolint:mnd // half an hour.
	v.SetDefault("equipment", []string{string(catalog.EquipmentNone)})
	v.SetDefault("difficulty", string(catalog.DifficultyBeginner))
	v.SetDefault("volume_modifier", 1.0)
	v.SetDefault("use_ai", false)

	if err := v.ReadInConfig(); err != nil {
		return planRequest{}, errors.Wrap(err, "read request file", slog.String("path", path))
	}
	// Overrides come from lookupEnv so that values from a .env file apply too.
	for _, key := range v.AllKeys() {
		if val, ok := lookupEnv("CIRCUITGEN_PLAN_" + strings.ToUpper(key)); ok {
			v.Set(key, val)
		}
	}

	var req planRequest
	if err := v.Unmarshal(&req); err != nil {
		return planRequest{}, errors.Wrap(err, "decode request file", slog.String("path", path))
	}
	return req, nil
}

// weekConfig converts the request. An empty start date means today.
func (r planRequest) weekConfig(now time.Time) (workout.WeekConfig, error) {
	start := now
	if r.StartDate != "" {
		var err error
		if start, err = time.ParseInLocation(dateLayout, r.StartDate, now.Location()); err != nil {
			return workout.WeekConfig{}, errors.Wrap(err, "parse start date")
		}
	}
	equipment := make([]catalog.Equipment, 0, len(r.Equipment))
	for _, eq := range r.Equipment {
		equipment = append(equipment, catalog.Equipment(strings.TrimSpace(eq)))
	}
	return workout.WeekConfig{
		StartDate: start,
		Strategy:  workout.Strategy(r.Strategy),
		Base: workout.Config{
			TotalMinutes:         r.TotalMinutes,
			AvailableEquipment:   equipment,
			Difficulty:           catalog.Difficulty(r.Difficulty),
			Focus:                "",
			TargetMuscles:        nil,
			AvoidMuscles:         nil,
			VolumeModifier:       r.VolumeModifier,
			ExcludeExerciseIDs:   nil,
			EquipmentOnly:        false,
			PreferredExerciseIDs: nil,
			EmphasizeCardio:      false,
		},
		UseAI: r.UseAI,
	}, nil
}
