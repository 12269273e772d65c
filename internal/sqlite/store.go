package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/circuitgen/internal/workout"
)

// ErrNotFound is returned when a workout, week or plan does not exist.
var ErrNotFound = errors.New("not found")

// timeFormat sorts lexicographically in chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// SaveWorkout inserts w or replaces the stored workout with the same id.
func (db *Database) SaveWorkout(ctx context.Context, w workout.GeneratedWorkout) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal workout: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, `INSERT INTO workouts (id, created_at, focus, document)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET created_at = excluded.created_at,
                               focus      = excluded.focus,
                               document   = excluded.document`,
		w.ID, formatTime(w.CreatedAt), string(w.Config.Focus), string(doc)); err != nil {
		return fmt.Errorf("upsert workout: %w", err)
	}
	return nil
}

// GetWorkout returns the workout with id or ErrNotFound.
func (db *Database) GetWorkout(ctx context.Context, id string) (workout.GeneratedWorkout, error) {
	var doc string
	err := db.ReadOnly.QueryRowContext(ctx, `SELECT document FROM workouts WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.GeneratedWorkout{}, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return workout.GeneratedWorkout{}, fmt.Errorf("query workout: %w", err)
	}
	var w workout.GeneratedWorkout
	if err = json.Unmarshal([]byte(doc), &w); err != nil {
		return workout.GeneratedWorkout{}, fmt.Errorf("unmarshal workout: %w", err)
	}
	return w, nil
}

// ListWorkouts returns up to limit workouts, newest first.
func (db *Database) ListWorkouts(ctx context.Context, limit int) ([]workout.GeneratedWorkout, error) {
	rows, err := db.ReadOnly.QueryContext(ctx, `SELECT document FROM workouts ORDER BY created_at DESC, id LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer rows.Close()

	var workouts []workout.GeneratedWorkout
	for rows.Next() {
		var (
			doc string
			w   workout.GeneratedWorkout
		)
		if err = rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		if err = json.Unmarshal([]byte(doc), &w); err != nil {
			return nil, fmt.Errorf("unmarshal workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return workouts, nil
}

// SaveWeek stores week together with all of its plans.
func (db *Database) SaveWeek(ctx context.Context, week workout.Week) error {
	config, err := json.Marshal(week.Config)
	if err != nil {
		return fmt.Errorf("marshal week config: %w", err)
	}

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	if _, err = tx.ExecContext(ctx, `INSERT INTO weeks (id, created_at, strategy, config) VALUES (?, ?, ?, ?)`,
		week.ID, formatTime(week.CreatedAt), string(week.Config.Strategy), string(config)); err != nil {
		return fmt.Errorf("insert week: %w", err)
	}
	for i, p := range week.Plans {
		if err = insertPlan(ctx, tx, week.ID, i, p); err != nil {
			return fmt.Errorf("insert plan %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertPlan(ctx context.Context, tx *sql.Tx, weekID string, day int, p workout.Plan) error {
	doc, completedAt, err := planColumns(p)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO plans
    (id, week_id, day_index, date, completed_at, regeneration_count, document)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, weekID, day, formatTime(p.Date), completedAt, p.RegenerationCount, doc); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func planColumns(p workout.Plan) (string, sql.NullString, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("marshal plan: %w", err)
	}
	var completedAt sql.NullString
	if p.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*p.CompletedAt), Valid: true}
	}
	return string(doc), completedAt, nil
}

// GetWeek returns the week with id and its plans ordered by day, or ErrNotFound.
func (db *Database) GetWeek(ctx context.Context, id string) (workout.Week, error) {
	var (
		createdAt, config string
		week              workout.Week
	)
	err := db.ReadOnly.QueryRowContext(ctx, `SELECT created_at, config FROM weeks WHERE id = ?`, id).
		Scan(&createdAt, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.Week{}, fmt.Errorf("week %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return workout.Week{}, fmt.Errorf("query week: %w", err)
	}
	week.ID = id
	if week.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return workout.Week{}, fmt.Errorf("parse created at: %w", err)
	}
	if err = json.Unmarshal([]byte(config), &week.Config); err != nil {
		return workout.Week{}, fmt.Errorf("unmarshal week config: %w", err)
	}

	rows, err := db.ReadOnly.QueryContext(ctx, `SELECT document FROM plans WHERE week_id = ? ORDER BY day_index`, id)
	if err != nil {
		return workout.Week{}, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			doc string
			p   workout.Plan
		)
		if err = rows.Scan(&doc); err != nil {
			return workout.Week{}, fmt.Errorf("scan plan: %w", err)
		}
		if err = json.Unmarshal([]byte(doc), &p); err != nil {
			return workout.Week{}, fmt.Errorf("unmarshal plan: %w", err)
		}
		week.Plans = append(week.Plans, p)
	}
	if err = rows.Err(); err != nil {
		return workout.Week{}, fmt.Errorf("rows: %w", err)
	}
	return week, nil
}

// UpdatePlan replaces the plan stored for day of the given week.
func (db *Database) UpdatePlan(ctx context.Context, weekID string, day int, p workout.Plan) error {
	doc, completedAt, err := planColumns(p)
	if err != nil {
		return err
	}
	res, err := db.ReadWrite.ExecContext(ctx, `UPDATE plans
SET id                 = ?,
    date               = ?,
    completed_at       = ?,
    regeneration_count = ?,
    document           = ?
WHERE week_id = ?
  AND day_index = ?`,
		p.ID, formatTime(p.Date), completedAt, p.RegenerationCount, doc, weekID, day)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("week %s day %d: %w", weekID, day, ErrNotFound)
	}
	return nil
}
