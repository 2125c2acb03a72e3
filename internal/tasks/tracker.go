package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/streak"
)

// HabitStore is the slice of repositories.HabitRepository the tracker needs.
type HabitStore interface {
	Get(ctx context.Context, id int64) (*models.Habit, error)
	RecordCompletion(ctx context.Context, id int64, at time.Time, streak int) (*models.Habit, error)
	Touch(ctx context.Context, id int64, at time.Time) (*models.Habit, error)
}

// HabitTracker records habit completions.
type HabitTracker struct {
	habits HabitStore
	policy *streak.Policy
	clock  shared.Clock
}

// NewHabitTracker creates a [HabitTracker]. The clock should be the one the policy was built with.
func NewHabitTracker(habits HabitStore, policy *streak.Policy, clock shared.Clock) *HabitTracker {
	return &HabitTracker{habits: habits, policy: policy, clock: clock}
}

// Track marks habit id as completed now, or only touches it when completed is false.
//
// A missing habit fails with [shared.ErrHabitNotFound].
func (t *HabitTracker) Track(ctx context.Context, id int64, completed bool) (*models.Habit, error) {
	habit, err := t.habits.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	if !completed {
		return t.habits.Touch(ctx, habit.ID, now)
	}

	next := t.policy.Next(habit.LastCompleted, habit.Streak)
	return t.habits.RecordCompletion(ctx, habit.ID, now, next)
}

// Preview returns the streak a completion now would produce for a habit last completed at lastCompleted.
func (t *HabitTracker) Preview(lastCompleted string, prior int) (int, error) {
	return t.policy.Compute(lastCompleted, prior)
}
