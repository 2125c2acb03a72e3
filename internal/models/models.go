// package models defines the data model for the dashboard
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dash/internal/shared"
)

// RefreshAccessTokenError marks a [TokenState] whose last refresh failed.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// Habit is a recurring activity with a consecutive-day completion counter.
type Habit struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	LastCompleted *time.Time `json:"last_completed"`
	Streak        int        `json:"streak"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CompletedOn reports whether the habit was last completed on the calendar day of t, in t's location.
func (h Habit) CompletedOn(t time.Time) bool {
	if h.LastCompleted == nil {
		return false
	}
	ly, lm, ld := h.LastCompleted.In(t.Location()).Date()
	y, m, d := t.Date()
	return ly == y && lm == m && ld == d
}

// HabitUpdate carries the user-editable habit fields.
type HabitUpdate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate trims the fields and rejects an empty name.
func (u *HabitUpdate) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Description = strings.TrimSpace(u.Description)
	if u.Name == "" {
		return fmt.Errorf("%w: habit name is required", shared.ErrInvalidInput)
	}
	return nil
}

// Todo is a single to-do list entry.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate trims the title and rejects an empty one.
func (t *Todo) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return fmt.Errorf("%w: todo title is required", shared.ErrInvalidInput)
	}
	return nil
}

// TokenState is the OAuth token held for a session.
//
// ExpiresAt is in seconds since the Unix epoch. A non-empty Error means the access token must not be used.
type TokenState struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Error        string `json:"error,omitempty"`
}

// Usable reports whether the access token may be sent upstream.
func (t TokenState) Usable() bool {
	return t.AccessToken != "" && t.Error == ""
}

// ValidAt reports whether the access token is unexpired at now.
func (t TokenState) ValidAt(now time.Time) bool {
	return now.Before(time.Unix(t.ExpiresAt, 0))
}

// Session links a browser cookie to a [TokenState].
type Session struct {
	ID        string     `json:"id"`
	Token     TokenState `json:"token"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
