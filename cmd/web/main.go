package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/myrjola/circuitgen/internal/ai"
	"github.com/myrjola/circuitgen/internal/catalog"
	"github.com/myrjola/circuitgen/internal/envstruct"
	"github.com/myrjola/circuitgen/internal/errors"
	"github.com/myrjola/circuitgen/internal/flightrecorder"
	"github.com/myrjola/circuitgen/internal/logging"
	"github.com/myrjola/circuitgen/internal/share"
	"github.com/myrjola/circuitgen/internal/sqlite"
	"github.com/myrjola/circuitgen/internal/workout"
)

type application struct {
	logger    *slog.Logger
	catalog   *catalog.Catalog
	generator *workout.Generator
	planner   *workout.Planner
	enhancer  *workout.Enhancer
	// coach is nil when no AI API key is configured.
	coach          *ai.Coach
	codec          *share.Codec
	db             *sqlite.Database
	recorder       *flightrecorder.Recorder
	allowedOrigins []string
	requestTimeout time.Duration
	now            func() time.Time
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"CIRCUITGEN_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"CIRCUITGEN_SQLITE_URL" envDefault:"./circuitgen.sqlite3"`
	// OpenAIAPIKey enables the AI coach. Leave empty to run without AI.
	OpenAIAPIKey string        `env:"CIRCUITGEN_OPENAI_API_KEY" envDefault:""`
	OpenAIModel  string        `env:"CIRCUITGEN_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout    time.Duration `env:"CIRCUITGEN_AI_TIMEOUT" envDefault:"10s"`
	// AllowedOrigins is a comma-separated list of origins allowed to call the API from a browser.
	AllowedOrigins []string `env:"CIRCUITGEN_ALLOWED_ORIGINS" envDefault:"*"`
	// TracesDir enables the flight recorder, which writes a runtime trace there when a request times out.
	TracesDir string `env:"CIRCUITGEN_TRACES_DIR" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	c, err := catalog.Load()
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	generator, err := workout.NewGenerator(c)
	if err != nil {
		return errors.Wrap(err, "new generator")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")
	optimizerCtx, stopOptimizer := context.WithCancel(ctx)
	var optimizer sync.WaitGroup
	optimizer.Go(func() { db.RunOptimizer(optimizerCtx, sqlite.OptimizeInterval) })
	defer func() {
		stopOptimizer()
		optimizer.Wait()
	}()

	var (
		coach    *ai.Coach
		enhancer *workout.Enhancer
	)
	switch completer, aiErr := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger); {
	case errors.Is(aiErr, ai.ErrNoAPIKey):
		logger.LogAttrs(ctx, slog.LevelInfo, "AI coach disabled")
	case aiErr != nil:
		return errors.Wrap(aiErr, "new OpenAI client")
	default:
		coach = ai.NewCoach(completer, logger)
		enhancer = workout.NewEnhancer(coach, logger, cfg.AITimeout)
		logger.LogAttrs(ctx, slog.LevelInfo, "AI coach enabled", slog.String("model", cfg.OpenAIModel))
	}

	var recorder *flightrecorder.Recorder
	if cfg.TracesDir != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			MinAge:          0,
			MaxBytes:        0,
			Cooldown:        0,
			TracesDirectory: cfg.TracesDir,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	app := application{
		logger:         logger,
		catalog:        c,
		generator:      generator,
		planner:        workout.NewPlanner(generator, enhancer, logger),
		enhancer:       enhancer,
		coach:          coach,
		codec:          share.NewCodec(c),
		db:             db,
		recorder:       recorder,
		allowedOrigins: cfg.AllowedOrigins,
		requestTimeout: cfg.AITimeout + requestTimeoutMargin,
		now:            time.Now,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	lookupEnv, err := envstruct.WithDotenv(".env", os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure reading .env", errors.SlogError(err))
		os.Exit(1)
	}
	if err = run(ctx, logger, lookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
