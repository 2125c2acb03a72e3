package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
)

const todoColumns = `id, title, completed, created_at, updated_at`

// TodoRepository persists [models.Todo] rows.
type TodoRepository struct {
	store
}

// NewTodoRepository creates a new [TodoRepository] with the given database connection
func NewTodoRepository(db *sql.DB, driver shared.Driver, clock shared.Clock) *TodoRepository {
	return &TodoRepository{store: newStore(db, driver, clock)}
}

func scanTodo(s scanner) (*models.Todo, error) {
	var t models.Todo
	if err := s.Scan(&t.ID, &t.Title, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every todo in creation order.
func (r *TodoRepository) List(ctx context.Context) ([]models.Todo, error) {
	rows, err := r.query(ctx, "SELECT "+todoColumns+" FROM todo ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// Get retrieves a todo by id.
func (r *TodoRepository) Get(ctx context.Context, id int64) (*models.Todo, error) {
	t, err := scanTodo(r.queryRow(ctx, "SELECT "+todoColumns+" FROM todo WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrTodoNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query todo: %w", err)
	}
	return t, nil
}

// Create inserts an incomplete todo.
func (r *TodoRepository) Create(ctx context.Context, title string) (*models.Todo, error) {
	t := models.Todo{Title: title}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	id, err := r.insert(ctx,
		"INSERT INTO todo (title, completed, created_at, updated_at) VALUES (?, ?, ?, ?)",
		t.Title, false, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert todo: %w", err)
	}
	return r.Get(ctx, id)
}

// Update replaces title and completion state.
func (r *TodoRepository) Update(ctx context.Context, t models.Todo) (*models.Todo, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	res, err := r.exec(ctx,
		"UPDATE todo SET title = ?, completed = ?, updated_at = ? WHERE id = ?",
		t.Title, t.Completed, r.now(), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if err := affected(res, fmt.Errorf("%w: %d", shared.ErrTodoNotFound, t.ID)); err != nil {
		return nil, err
	}
	return r.Get(ctx, t.ID)
}

// Toggle flips the completion state of a todo.
func (r *TodoRepository) Toggle(ctx context.Context, id int64) (*models.Todo, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	return r.Update(ctx, *t)
}

// Delete removes a todo and returns the removed row.
func (r *TodoRepository) Delete(ctx context.Context, id int64) (*models.Todo, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := r.exec(ctx, "DELETE FROM todo WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	if err := affected(res, fmt.Errorf("%w: %d", shared.ErrTodoNotFound, id)); err != nil {
		return nil, err
	}
	return t, nil
}
