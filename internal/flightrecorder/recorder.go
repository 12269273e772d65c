// Package flightrecorder keeps a rolling runtime trace in memory and writes it to disk when a request times out.
package flightrecorder

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime/trace"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultMinAge   = 5 * time.Minute
	DefaultMaxBytes = 64 * 1024 * 1024
	// DefaultCooldown is the minimum time between two captures.
	DefaultCooldown = 30 * time.Minute
)

var (
	ErrNoLogger          = errors.New("logger is required")
	ErrNoTracesDirectory = errors.New("traces directory is required")
)

// Recorder captures runtime traces of slow requests.
type Recorder struct {
	logger          *slog.Logger
	flightRecorder  *trace.FlightRecorder
	tracesDirectory string
	minAge          time.Duration
	maxBytes        uint64
	cooldown        time.Duration
	// lastCapture is the Unix nano timestamp of the last capture.
	lastCapture atomic.Int64
}

// Config configures a Recorder. Zero durations and sizes select the defaults.
type Config struct {
	Logger          *slog.Logger
	MinAge          time.Duration
	MaxBytes        uint64
	Cooldown        time.Duration
	TracesDirectory string
}

// New creates a Recorder and makes sure the traces directory exists.
func New(cfg Config) (*Recorder, error) {
	if cfg.Logger == nil {
		return nil, ErrNoLogger
	}
	if cfg.TracesDirectory == "" {
		return nil, ErrNoTracesDirectory
	}

	if stat, err := os.Stat(cfg.TracesDirectory); err != nil {
		if err = os.MkdirAll(cfg.TracesDirectory, 0o750); err != nil { //nolint:mnd // owner and group only.
			return nil, fmt.Errorf("create traces directory: %w", err)
		}
	} else if !stat.IsDir() {
		return nil, fmt.Errorf("traces path is not a directory: %s", cfg.TracesDirectory)
	}

	r := &Recorder{
		logger:          cfg.Logger,
		flightRecorder:  nil,
		tracesDirectory: cfg.TracesDirectory,
		minAge:          cmp.Or(cfg.MinAge, DefaultMinAge),
		maxBytes:        cmp.Or(cfg.MaxBytes, DefaultMaxBytes),
		cooldown:        cmp.Or(cfg.Cooldown, DefaultCooldown),
		lastCapture:     atomic.Int64{},
	}
	r.flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   r.minAge,
		MaxBytes: r.maxBytes,
	})
	return r, nil
}

// Start begins flight recording.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.flightRecorder.Start(); err != nil {
		return fmt.Errorf("start flight recorder: %w", err)
	}
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.Duration("min_age", r.minAge),
		slog.Uint64("max_bytes", r.maxBytes),
		slog.Duration("cooldown", r.cooldown))
	return nil
}

// Stop ends flight recording.
func (r *Recorder) Stop(ctx context.Context) {
	r.flightRecorder.Stop()
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// traceFileName derives a file name such as timeout-20250303-101500-api-workouts.trace from the capture time and
// the reason.
func traceFileName(at time.Time, reason string) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(reason, "-"), "-")
	const maxSlug = 60
	if len(slug) > maxSlug {
		slug = slug[:maxSlug]
	}
	name := "timeout-" + at.UTC().Format("20060102-150405")
	if slug != "" {
		name += "-" + slug
	}
	return name + ".trace"
}

// CaptureTimeoutTrace writes the recorded trace to the traces directory. Captures within the cooldown of the previous
// one are skipped.
func (r *Recorder) CaptureTimeoutTrace(ctx context.Context, reason string) {
	now := time.Now()
	last := r.lastCapture.Load()
	if last > 0 && now.Sub(time.Unix(0, last)) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture due to cooldown",
			slog.Time("last_capture", time.Unix(0, last)))
		return
	}
	if !r.lastCapture.CompareAndSwap(last, now.UnixNano()) {
		// Another request is capturing.
		return
	}

	fPath := filepath.Join(r.tracesDirectory, traceFileName(now, reason))
	file, err := os.Create(fPath)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to create trace file",
			slog.String("file", fPath), slog.Any("error", err))
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to close trace file",
				slog.String("file", fPath), slog.Any("error", closeErr))
		}
	}()

	written, err := r.flightRecorder.WriteTo(file)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "failed to write trace",
			slog.String("file", fPath), slog.Any("error", err))
		return
	}
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured timeout trace",
		slog.String("file", fPath), slog.Int64("bytes", written), slog.String("reason", reason))
}
