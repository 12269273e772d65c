package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OptimizeInterval is how often RunOptimizer refreshes the query planner statistics.
const OptimizeInterval = time.Hour

// RunOptimizer runs PRAGMA optimize every interval until ctx is done. It is meant to run in its own goroutine for
// long-lived processes. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) RunOptimizer(ctx context.Context, interval time.Duration) {
	// The first run analyses every table, later runs only the ones that need it.
	pragma := "PRAGMA optimize = 0x10002;"
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, pragma); err != nil {
			if ctx.Err() != nil {
				return
			}
			err = fmt.Errorf("optimize database: %w", err)
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database",
				slog.Duration("duration", time.Since(start)))
		}
		pragma = "PRAGMA optimize;"
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
