// Package repositories implements SQL persistence for the dashboard.
//
// Every repository runs the same `?`-placeholder queries against sqlite3, postgres, or mysql; placeholders
// are rewritten per [shared.Driver] and generated ids are read back with RETURNING on postgres.
//
// Key Implementations:
//   - [HabitRepository] : habits and their streak counters
//   - [TodoRepository] : the to-do list
//   - [SessionRepository] : OAuth token state keyed by session id
//   - [ContentCache] : expiring response bodies for the news and quote cards
//
// Timestamps are written in UTC. Lookups that match no row wrap the matching not-found error from
// [shared], so callers can test with [errors.Is].
package repositories
