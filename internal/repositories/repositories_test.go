package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db, shared.DriverSQLite); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

var testNow = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func TestHabitRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		habit, err := repo.Create(ctx, models.HabitUpdate{Name: "  Read  ", Description: "20 pages"})
		if err != nil {
			t.Fatalf("failed to create habit: %v", err)
		}

		if habit.ID == 0 {
			t.Error("habit ID should be set after creation")
		}
		if habit.Name != "Read" {
			t.Errorf("expected trimmed name Read, got %q", habit.Name)
		}
		if habit.Streak != 0 || habit.LastCompleted != nil {
			t.Errorf("new habit should have no completions, got streak %d last %v", habit.Streak, habit.LastCompleted)
		}
		if !habit.CreatedAt.Equal(testNow) {
			t.Errorf("expected created_at %v, got %v", testNow, habit.CreatedAt)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		habits, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list habits: %v", err)
		}
		if habits == nil || len(habits) != 0 {
			t.Errorf("expected empty non-nil list, got %v", habits)
		}

		for _, name := range []string{"Run", "Stretch", "Journal"} {
			if _, err := repo.Create(ctx, models.HabitUpdate{Name: name}); err != nil {
				t.Fatalf("failed to create habit: %v", err)
			}
		}

		habits, err = repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list habits: %v", err)
		}
		if len(habits) != 3 {
			t.Fatalf("expected 3 habits, got %d", len(habits))
		}
		if habits[0].Name != "Run" || habits[2].Name != "Journal" {
			t.Errorf("expected creation order, got %s..%s", habits[0].Name, habits[2].Name)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		habit, _ := repo.Create(ctx, models.HabitUpdate{Name: "Run"})
		if _, err := repo.RecordCompletion(ctx, habit.ID, testNow, 4); err != nil {
			t.Fatalf("failed to record completion: %v", err)
		}

		updated, err := repo.Update(ctx, habit.ID, models.HabitUpdate{Name: "Run 5k", Description: "mornings"})
		if err != nil {
			t.Fatalf("failed to update habit: %v", err)
		}
		if updated.Name != "Run 5k" || updated.Description != "mornings" {
			t.Errorf("unexpected habit after update: %+v", updated)
		}
		if updated.Streak != 4 {
			t.Errorf("update must not touch the streak, got %d", updated.Streak)
		}
	})

	t.Run("RecordCompletion", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		habit, _ := repo.Create(ctx, models.HabitUpdate{Name: "Meditate"})

		at := time.Date(2024, 5, 11, 7, 15, 30, 0, time.FixedZone("CDT", -5*3600))
		got, err := repo.RecordCompletion(ctx, habit.ID, at, 2)
		if err != nil {
			t.Fatalf("failed to record completion: %v", err)
		}

		if got.Streak != 2 {
			t.Errorf("expected streak 2, got %d", got.Streak)
		}
		if got.LastCompleted == nil || !got.LastCompleted.Equal(at) {
			t.Errorf("expected last_completed %v, got %v", at, got.LastCompleted)
		}
		if !got.UpdatedAt.Equal(at) {
			t.Errorf("expected updated_at %v, got %v", at, got.UpdatedAt)
		}
	})

	t.Run("Touch", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		habit, _ := repo.Create(ctx, models.HabitUpdate{Name: "Floss"})

		later := testNow.Add(time.Hour)
		got, err := repo.Touch(ctx, habit.ID, later)
		if err != nil {
			t.Fatalf("failed to touch habit: %v", err)
		}
		if !got.UpdatedAt.Equal(later) || got.LastCompleted != nil || got.Streak != 0 {
			t.Errorf("touch should only move updated_at, got %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewHabitRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		habit, _ := repo.Create(ctx, models.HabitUpdate{Name: "Walk"})

		if err := repo.Delete(ctx, habit.ID); err != nil {
			t.Fatalf("failed to delete habit: %v", err)
		}
		if _, err := repo.Get(ctx, habit.ID); !errors.Is(err, shared.ErrHabitNotFound) {
			t.Errorf("expected ErrHabitNotFound after delete, got %v", err)
		}
	})
}

func TestTodoRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and List", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		for _, title := range []string{"buy milk", "call mom"} {
			if _, err := repo.Create(ctx, title); err != nil {
				t.Fatalf("failed to create todo: %v", err)
			}
		}

		todos, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list todos: %v", err)
		}
		if len(todos) != 2 {
			t.Fatalf("expected 2 todos, got %d", len(todos))
		}
		if todos[0].Title != "buy milk" || todos[0].Completed {
			t.Errorf("unexpected first todo: %+v", todos[0])
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		todo, _ := repo.Create(ctx, "water plants")

		todo.Title = "water all plants"
		todo.Completed = true
		got, err := repo.Update(ctx, *todo)
		if err != nil {
			t.Fatalf("failed to update todo: %v", err)
		}
		if got.Title != "water all plants" || !got.Completed {
			t.Errorf("unexpected todo after update: %+v", got)
		}
	})

	t.Run("Update unchanged row", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		todo, _ := repo.Create(ctx, "same")

		if _, err := repo.Update(ctx, *todo); err != nil {
			t.Errorf("updating with identical values should succeed: %v", err)
		}
	})

	t.Run("Toggle", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		todo, _ := repo.Create(ctx, "laundry")

		got, err := repo.Toggle(ctx, todo.ID)
		if err != nil || !got.Completed {
			t.Fatalf("expected completed todo, got %+v (%v)", got, err)
		}
		got, err = repo.Toggle(ctx, todo.ID)
		if err != nil || got.Completed {
			t.Fatalf("expected incomplete todo, got %+v (%v)", got, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewTodoRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		todo, _ := repo.Create(ctx, "dishes")

		removed, err := repo.Delete(ctx, todo.ID)
		if err != nil {
			t.Fatalf("failed to delete todo: %v", err)
		}
		if removed.Title != "dishes" {
			t.Errorf("expected removed row to be returned, got %+v", removed)
		}

		todos, _ := repo.List(ctx)
		if len(todos) != 0 {
			t.Errorf("expected no todos after delete, got %d", len(todos))
		}
	})
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	token := models.TokenState{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: testNow.Add(time.Hour).Unix()}

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		session, err := repo.Create(ctx, token)
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		if session.ID == "" {
			t.Fatal("session ID should be generated")
		}

		got, err := repo.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got.Token != token {
			t.Errorf("expected token %+v, got %+v", token, got.Token)
		}
	})

	t.Run("Save", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		session, _ := repo.Create(ctx, token)

		session.Token.AccessToken = "rotated"
		session.Token.Error = models.RefreshAccessTokenError
		if err := repo.Save(ctx, session); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}

		got, _ := repo.Get(ctx, session.ID)
		if got.Token.AccessToken != "rotated" || got.Token.Error != models.RefreshAccessTokenError {
			t.Errorf("unexpected token after save: %+v", got.Token)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		session, _ := repo.Create(ctx, token)

		if err := repo.Delete(ctx, session.ID); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}
		if _, err := repo.Get(ctx, session.ID); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
		if err := repo.Delete(ctx, session.ID); err != nil {
			t.Errorf("deleting a missing session should not fail: %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		db := setupTestDB(t)
		old := NewSessionRepository(db, shared.DriverSQLite, shared.FixedClock(testNow.Add(-48*time.Hour)))
		fresh := NewSessionRepository(db, shared.DriverSQLite, shared.FixedClock(testNow))

		stale, _ := old.Create(ctx, token)
		kept, _ := fresh.Create(ctx, token)

		n, err := fresh.DeleteExpired(ctx, testNow.Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("failed to delete expired sessions: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 stale session removed, got %d", n)
		}
		if _, err := fresh.Get(ctx, stale.ID); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("stale session should be gone, got %v", err)
		}
		if _, err := fresh.Get(ctx, kept.ID); err != nil {
			t.Errorf("fresh session should remain: %v", err)
		}
	})
}

func TestContentCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		cache := NewContentCache(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		if err := cache.Set(ctx, "news:technology", []byte(`{"articles":[]}`), 30*time.Minute); err != nil {
			t.Fatalf("failed to set cache entry: %v", err)
		}

		body, err := cache.Get(ctx, "news:technology")
		if err != nil {
			t.Fatalf("failed to get cache entry: %v", err)
		}
		if string(body) != `{"articles":[]}` {
			t.Errorf("unexpected body %s", body)
		}
	})

	t.Run("Set replaces", func(t *testing.T) {
		cache := NewContentCache(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))

		_ = cache.Set(ctx, "quote", []byte("first"), time.Hour)
		_ = cache.Set(ctx, "quote", []byte("second"), time.Hour)

		body, err := cache.Get(ctx, "quote")
		if err != nil || string(body) != "second" {
			t.Errorf("expected second, got %s (%v)", body, err)
		}
	})

	t.Run("Expired entries miss", func(t *testing.T) {
		db := setupTestDB(t)
		writer := NewContentCache(db, shared.DriverSQLite, shared.FixedClock(testNow))
		reader := NewContentCache(db, shared.DriverSQLite, shared.FixedClock(testNow.Add(31*time.Minute)))

		_ = writer.Set(ctx, "news", []byte("stale"), 30*time.Minute)

		if _, err := reader.Get(ctx, "news"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss for expired entry, got %v", err)
		}

		n, err := reader.Purge(ctx)
		if err != nil || n != 1 {
			t.Errorf("expected 1 purged entry, got %d (%v)", n, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		cache := NewContentCache(setupTestDB(t), shared.DriverSQLite, shared.FixedClock(testNow))
		_ = cache.Set(ctx, "quote", []byte("x"), time.Hour)

		if err := cache.Delete(ctx, "quote"); err != nil {
			t.Fatalf("failed to delete entry: %v", err)
		}
		if _, err := cache.Get(ctx, "quote"); !errors.Is(err, shared.ErrCacheMiss) {
			t.Errorf("expected ErrCacheMiss, got %v", err)
		}
	})
}
