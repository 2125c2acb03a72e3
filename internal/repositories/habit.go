package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
)

const habitColumns = `id, name, description, last_completed, streak, created_at, updated_at`

// HabitRepository persists [models.Habit] rows.
type HabitRepository struct {
	store
}

// NewHabitRepository creates a new [HabitRepository] with the given database connection
func NewHabitRepository(db *sql.DB, driver shared.Driver, clock shared.Clock) *HabitRepository {
	return &HabitRepository{store: newStore(db, driver, clock)}
}

func scanHabit(s scanner) (*models.Habit, error) {
	var (
		h    models.Habit
		last sql.NullTime
	)
	if err := s.Scan(&h.ID, &h.Name, &h.Description, &last, &h.Streak, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		h.LastCompleted = &t
	}
	return &h, nil
}

// List returns every habit in creation order.
func (r *HabitRepository) List(ctx context.Context) ([]models.Habit, error) {
	rows, err := r.query(ctx, "SELECT "+habitColumns+" FROM habits ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating habits: %w", err)
	}
	return habits, nil
}

// Get retrieves a habit by id.
func (r *HabitRepository) Get(ctx context.Context, id int64) (*models.Habit, error) {
	h, err := scanHabit(r.queryRow(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrHabitNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query habit: %w", err)
	}
	return h, nil
}

// Create inserts a habit with a zero streak.
func (r *HabitRepository) Create(ctx context.Context, u models.HabitUpdate) (*models.Habit, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	id, err := r.insert(ctx,
		"INSERT INTO habits (name, description, streak, created_at, updated_at) VALUES (?, ?, 0, ?, ?)",
		u.Name, u.Description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert habit: %w", err)
	}
	return r.Get(ctx, id)
}

// Update changes name and description only.
func (r *HabitRepository) Update(ctx context.Context, id int64, u models.HabitUpdate) (*models.Habit, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	res, err := r.exec(ctx,
		"UPDATE habits SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		u.Name, u.Description, r.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	if err := affected(res, fmt.Errorf("%w: %d", shared.ErrHabitNotFound, id)); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes a habit.
func (r *HabitRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, "DELETE FROM habits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	return affected(res, fmt.Errorf("%w: %d", shared.ErrHabitNotFound, id))
}

// RecordCompletion stores a completion at the given instant along with the streak computed for it.
func (r *HabitRepository) RecordCompletion(ctx context.Context, id int64, at time.Time, streak int) (*models.Habit, error) {
	if streak < 0 {
		return nil, fmt.Errorf("%w: negative streak %d", shared.ErrInvalidInput, streak)
	}

	at = at.UTC().Truncate(time.Microsecond)
	res, err := r.exec(ctx,
		"UPDATE habits SET last_completed = ?, streak = ?, updated_at = ? WHERE id = ?",
		at, streak, at, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	if err := affected(res, fmt.Errorf("%w: %d", shared.ErrHabitNotFound, id)); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Touch bumps updated_at without changing the streak.
func (r *HabitRepository) Touch(ctx context.Context, id int64, at time.Time) (*models.Habit, error) {
	res, err := r.exec(ctx, "UPDATE habits SET updated_at = ? WHERE id = ?", at.UTC().Truncate(time.Microsecond), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update habit: %w", err)
	}
	if err := affected(res, fmt.Errorf("%w: %d", shared.ErrHabitNotFound, id)); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
