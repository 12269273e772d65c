// Command planner generates a seven-day workout rotation from a request file and prints it with the share code of
// every day.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/myrjola/circuitgen/internal/ai"
	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/envstruct"
	"github.com/myrjola/circuitgen/internal/errors"
	"github.com/myrjola/circuitgen/internal/logging"
	"github.com/myrjola/circuitgen/internal/share"
	"github.com/myrjola/circuitgen/internal/sqlite"
	"github.com/myrjola/circuitgen/internal/workout"
)

type config struct {
	// SqliteURL is where -save stores the week.
	SqliteURL    string        `env:"CIRCUITGEN_SQLITE_URL" envDefault:"./circuitgen.sqlite3"`
	OpenAIAPIKey string        `env:"CIRCUITGEN_OPENAI_API_KEY" envDefault:""`
	OpenAIModel  string        `env:"CIRCUITGEN_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout    time.Duration `env:"CIRCUITGEN_AI_TIMEOUT" envDefault:"10s"`
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	lookupEnv func(string) (string, bool),
	args []string,
	stdout io.Writer,
) error {
	fs := flag.NewFlagSet("planner", flag.ContinueOnError)
	fs.SetOutput(stdout)
	save := fs.Bool("save", false, "store the week in the database")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	if fs.NArg() != 1 {
		return errors.New("usage: planner [-save] <request-file>")
	}

	var cfg config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	req, err := loadRequest(fs.Arg(0), lookupEnv)
	if err != nil {
		return err
	}
	now := time.Now()
	wc, err := req.weekConfig(now)
	if err != nil {
		return err
	}

	c, err := catalog.Load()
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	generator, err := workout.NewGenerator(c)
	if err != nil {
		return errors.Wrap(err, "new generator")
	}

	var coach *ai.Coach
	if wc.UseAI {
		completer, aiErr := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
		if aiErr != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "AI unavailable, planning without it",
				slog.String("reason", ai.UserMessage(ai.Classify(aiErr))))
		} else {
			coach = ai.NewCoach(completer, logger)
		}
	}
	var enhancer *workout.Enhancer
	if coach != nil {
		enhancer = workout.NewEnhancer(coach, logger, cfg.AITimeout)
	}

	planner := workout.NewPlanner(generator, enhancer, logger)
	plans, err := planner.PlanWeek(ctx, wc)
	if err != nil {
		return errors.Wrap(err, "plan week", slog.String("strategy", string(wc.Strategy)))
	}
	week := workout.Week{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Config:    wc,
		Plans:     plans,
	}

	if err = printWeek(stdout, share.NewCodec(c), week); err != nil {
		return err
	}

	if coach != nil {
		overview, overviewErr := coach.WeekOverview(ctx, plans)
		if overviewErr != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "week overview unavailable",
				slog.String("category", string(ai.Classify(overviewErr))))
		} else {
			_, _ = fmt.Fprintf(stdout, "\n%s\n", overview)
		}
	}

	if *save {
		if err = saveWeek(ctx, logger, cfg.SqliteURL, week); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "\nsaved week %s\n", week.ID)
	}
	return nil
}

func saveWeek(ctx context.Context, logger *slog.Logger, url string, week workout.Week) error {
	db, err := sqlite.NewDatabase(ctx, url, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", url))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	if err = db.SaveWeek(ctx, week); err != nil {
		return errors.Wrap(err, "save week", slog.String("week_id", week.ID))
	}
	return nil
}

// printWeek writes one row per day.
func printWeek(w io.Writer, codec *share.Codec, week workout.Week) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // two spaces of padding.
	_, _ = fmt.Fprintf(tw, "DAY\tDATE\tFOCUS\tMINUTES\tEXERCISES\tSHARE CODE\n")
	for _, p := range week.Plans {
		code, err := codec.Encode(p.Workout)
		if err != nil {
			return errors.Wrap(err, "encode share code", slog.String("day", p.DayOfWeek))
		}
		focus := string(p.Day.Focus)
		if len(p.Day.TargetMuscles) > 0 {
			focus += " (" + strings.Join(p.Day.TargetMuscles, ", ") + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", p.DayOfWeek, p.Date.Format(dateLayout), focus,
			p.Workout.TotalEstimatedMinutes, p.Workout.TotalExercises, code)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
	lookupEnv, err := envstruct.WithDotenv(".env", os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure reading .env", errors.SlogError(err))
		os.Exit(1)
	}
	if err = run(ctx, logger, lookupEnv, os.Args[1:], os.Stdout); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure planning week", errors.SlogError(err))
		os.Exit(1) //nolint:gocritic // cancel is only needed for a clean exit.
	}
}
