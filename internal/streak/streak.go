package streak

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/dash/internal/shared"
)

// Mode selects how "today" and "yesterday" are matched.
type Mode string

const (
	CalendarDay Mode = "calendar"
	DayOfMonth  Mode = "day_of_month"
)

// ParseMode maps a config value onto a [Mode]. Empty selects [CalendarDay].
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CalendarDay:
		return CalendarDay, nil
	case DayOfMonth:
		return DayOfMonth, nil
	}
	return "", fmt.Errorf("%w: unknown streak mode %q", shared.ErrInvalidConfig, s)
}

// layouts accepted for stored completion timestamps, most specific first.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parse reads an ISO-8601 style timestamp. Values without a zone are read as UTC.
func Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", shared.ErrInvalidDate, raw)
}

// Policy computes new streak values.
type Policy struct {
	mode     Mode
	location *time.Location
	clock    shared.Clock
}

// NewPolicy creates a [Policy]. A nil location means [time.Local]; a nil clock means [time.Now].
func NewPolicy(mode Mode, location *time.Location, clock shared.Clock) *Policy {
	if mode == "" {
		mode = CalendarDay
	}
	if location == nil {
		location = time.Local
	}
	return &Policy{mode: mode, location: location, clock: clock}
}

// FromConfig builds a [Policy] from the habits section of the config.
func FromConfig(cfg shared.HabitsConfig, clock shared.Clock) (*Policy, error) {
	mode, err := ParseMode(cfg.StreakMode)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return NewPolicy(mode, loc, clock), nil
}

// Mode returns the comparison mode.
func (p *Policy) Mode() Mode { return p.mode }

// Compute parses lastCompleted and returns the streak after completing the habit now.
func (p *Policy) Compute(lastCompleted string, prior int) (int, error) {
	last, err := Parse(lastCompleted)
	if err != nil {
		return 0, err
	}
	return p.Next(&last, prior), nil
}

// Next returns the streak after completing the habit now. A nil last means the habit was never completed.
//
// A completion later than now counts as today when it falls on today's date; on any later date it
// restarts the streak.
func (p *Policy) Next(last *time.Time, prior int) int {
	if prior < 0 {
		prior = 0
	}
	if last == nil {
		return 1
	}

	now := p.clock.Now().In(p.location)
	l := last.In(p.location)

	if p.mode == DayOfMonth {
		switch l.Day() {
		case now.Day():
			return prior
		case now.AddDate(0, 0, -1).Day():
			return prior + 1
		}
		return 1
	}

	today := midnight(now)
	day := midnight(l)
	switch {
	case day.Equal(today):
		return prior
	case day.Equal(today.AddDate(0, 0, -1)):
		return prior + 1
	}
	return 1
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
