// Package streak computes consecutive-day completion counts for habits.
//
// A [Policy] compares the last completion against "today" and "yesterday" in a fixed location,
// using an injected [shared.Clock]:
//   - completed today, even later than now: the streak is unchanged
//   - completed yesterday: the streak grows by one
//   - anything else, including future days: the streak restarts at one
//
// [CalendarDay] compares full dates. [DayOfMonth] compares only the day-of-month number, which
// matches the dashboard's historical behavior and misjudges completions a month or more apart.
package streak
