// Package models defines the dashboard's domain entities.
//
// Persisted rows:
//   - [Habit] : a tracked habit with its completion streak
//   - [Todo] : a to-do list entry
//   - [Session] : a signed-in browser and its Spotify [TokenState]
//
// Streak and last completion are owned by the habit tracker; the CRUD edits in [HabitUpdate] never carry them.
package models
