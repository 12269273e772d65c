package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/myrjola/circuitgen/internal/workout"
)

const stretchAdviceSystemPrompt = `You are a certified strength and mobility coach. You receive a JSON summary of a ` +
	`circuit workout: the most loaded muscles, the load per muscle, the main exercises and the warm-up and cool-down ` +
	`exercises with their current hold durations. Suggest new hold durations in seconds for timed stretches that ` +
	`should be held longer or shorter given the load. Never suggest more than 90 seconds.

Reply with JSON only, using exactly this shape:
{"adjustments":[{"stretchId":"<id>","newDurationSeconds":<int>,"reason":"<short reason>"}],"reasoning":"<one or two sentences>"}`

const weekOverviewSystemPrompt = `You are an encouraging personal trainer. Given a seven day training plan, write a ` +
	`short overview of the week in at most four sentences: what each part of the week focuses on, how recovery is ` +
	`spread and one practical tip. Use plain text without markdown.`

var _ workout.StretchAdvisor = (*Coach)(nil)

// Coach implements workout.StretchAdvisor and writes week overviews on top of a Completer.
type Coach struct {
	completer Completer
	logger    *slog.Logger
}

// NewCoach creates a Coach. A nil completer makes every call fail with ErrNoAPIKey.
func NewCoach(completer Completer, logger *slog.Logger) *Coach {
	return &Coach{
		completer: completer,
		logger:    logger,
	}
}

// AdviseStretches asks the collaborator for new stretch durations. Answers wrapped in code fences are accepted and
// anything that is not the expected JSON returns ErrMalformedResponse.
func (c *Coach) AdviseStretches(ctx context.Context, req workout.StretchAdviceRequest) (workout.StretchAdvice, error) {
	summary, err := json.Marshal(req)
	if err != nil {
		return workout.StretchAdvice{}, fmt.Errorf("marshal stretch summary: %w", err)
	}

	answer, err := c.complete(ctx, "stretch_advice", CompletionRequest{
		SystemPrompt: stretchAdviceSystemPrompt,
		UserPrompt:   string(summary),
		History:      nil,
	})
	if err != nil {
		return workout.StretchAdvice{}, err
	}

	var advice workout.StretchAdvice
	if err = json.Unmarshal([]byte(StripCodeFences(answer)), &advice); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "malformed stretch advice",
			slog.String("category", string(ErrorTypeUnknown)), slog.Any("error", err))
		return workout.StretchAdvice{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return advice, nil
}

// WeekOverview asks the collaborator for a short natural-language summary of plans.
func (c *Coach) WeekOverview(ctx context.Context, plans []workout.Plan) (string, error) {
	answer, err := c.complete(ctx, "week_overview", CompletionRequest{
		SystemPrompt: weekOverviewSystemPrompt,
		UserPrompt:   describeWeek(plans),
		History:      nil,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(StripCodeFences(answer)), nil
}

func (c *Coach) complete(ctx context.Context, operation string, req CompletionRequest) (string, error) {
	if c == nil || c.completer == nil {
		return "", ErrNoAPIKey
	}
	answer, err := c.completer.Complete(ctx, req)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "AI request failed",
			slog.String("operation", operation),
			slog.String("category", string(Classify(err))),
			slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	return answer, nil
}

// describeWeek renders one line per day.
func describeWeek(plans []workout.Plan) string {
	var sb strings.Builder
	for i, p := range plans {
		w := p.Workout
		muscles := slices.Sorted(maps.Keys(w.MuscleGroupCoverage))
		fmt.Fprintf(&sb, "Day %d, %s: %s focus, %d minutes, %d exercises",
			i+1, p.DayOfWeek, p.Day.Focus, w.TotalEstimatedMinutes, w.TotalExercises)
		if len(muscles) > 0 {
			fmt.Fprintf(&sb, ", muscles: %s", strings.Join(muscles, ", "))
		}
		if p.Completed {
			sb.WriteString(", completed")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
