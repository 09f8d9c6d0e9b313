package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/fitsync/internal/model"
)

type activityRow struct {
	Day       int    `db:"day"`
	Activity  string `db:"activity"`
	Completed bool   `db:"completed"`
	UpdatedAt int64  `db:"updated_at"`
}

type exerciseRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

// Activity returns the journal entry for an internal day.
func (s *Store) Activity(ctx context.Context, day int) (model.DailyActivity, error) {
	var row activityRow
	err := s.db.GetContext(ctx, &row, `
		SELECT day, activity, completed, updated_at
		FROM daily_activities
		WHERE day = ?
	`, day)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyActivity{}, ErrActivityNotFound
	}
	if err != nil {
		return model.DailyActivity{}, fmt.Errorf("get activity for day %d: %w", day, err)
	}
	return model.DailyActivity{
		Day:       row.Day,
		Name:      row.Activity,
		Completed: row.Completed,
		UpdatedAt: time.Unix(0, row.UpdatedAt).UTC(),
	}, nil
}

// Activities returns every journal entry ordered by day.
func (s *Store) Activities(ctx context.Context) ([]model.DailyActivity, error) {
	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT day, activity, completed, updated_at
		FROM daily_activities
		ORDER BY day ASC
	`); err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	out := make([]model.DailyActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.DailyActivity{
			Day:       row.Day,
			Name:      row.Activity,
			Completed: row.Completed,
			UpdatedAt: time.Unix(0, row.UpdatedAt).UTC(),
		})
	}
	return out, nil
}

// SetActivity inserts or replaces the journal entry for a.Day.
func (s *Store) SetActivity(ctx context.Context, a model.DailyActivity) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO daily_activities (day, activity, completed, updated_at)
		VALUES (:day, :activity, :completed, :updated_at)
		ON CONFLICT(day) DO UPDATE SET
			activity = excluded.activity,
			completed = excluded.completed,
			updated_at = excluded.updated_at
	`, activityRow{
		Day:       a.Day,
		Activity:  a.Name,
		Completed: a.Completed,
		UpdatedAt: a.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("set activity for day %d: %w", a.Day, err)
	}
	return nil
}

// AddCustomExercise stores a user-defined exercise.
func (s *Store) AddCustomExercise(ctx context.Context, e model.CustomExercise) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_exercises (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, e.ID, e.Name, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("add custom exercise %s: %w", e.ID, err)
	}
	return nil
}

// CustomExercises returns every user-defined exercise, oldest first.
func (s *Store) CustomExercises(ctx context.Context) ([]model.CustomExercise, error) {
	var rows []exerciseRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, created_at
		FROM custom_exercises
		ORDER BY created_at ASC, id ASC COLLATE BINARY
	`); err != nil {
		return nil, fmt.Errorf("query custom exercises: %w", err)
	}
	out := make([]model.CustomExercise, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.CustomExercise{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
		})
	}
	return out, nil
}

// ClearProgram removes all progress records and journal entries in one
// transaction. Custom exercises are preserved.
func (s *Store) ClearProgram(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress_records`); err != nil {
			return fmt.Errorf("clear progress records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_activities`); err != nil {
			return fmt.Errorf("clear daily activities: %w", err)
		}
		return nil
	})
}
