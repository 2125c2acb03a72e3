// Package tasks holds the dashboard operations that span more than one repository or service.
//
// # Habit Tracking
//
// [HabitTracker] is the only writer of a habit's streak. Track loads the habit, asks the
// [streak.Policy] for the next value, and stores it together with the completion time.
//
// # Export
//
// [Exporter.Export] writes habits and todos in one or more formats with a small worker pool, then
// records what it wrote in a manifest.
//
// # Maintenance
//
// [Maintenance.Run] warms the news and quote caches and removes expired cache entries and stale
// sessions. The server runs it on a ticker.
//
// # Progress Reporting
//
// Long-running operations report through a [ProgressUpdate] channel. Sends never block; when the
// channel is full the update is dropped.
package tasks
