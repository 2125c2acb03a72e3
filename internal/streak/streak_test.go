package streak

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/shared"
)

func pinned(mode Mode, now time.Time) *Policy {
	return NewPolicy(mode, time.UTC, shared.FixedClock(now))
}

func TestPolicy(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Compute", func(t *testing.T) {
		tc := []struct {
			name  string
			last  string
			prior int
			want  int
		}{
			{"yesterday increments", "2024-03-14T08:00:00Z", 5, 6},
			{"late yesterday increments", "2024-03-14T23:59:59.999Z", 5, 6},
			{"earlier today is unchanged", "2024-03-15T06:00:00Z", 5, 5},
			{"two days ago resets", "2024-03-13T23:59:59Z", 5, 1},
			{"last week resets", "2024-03-08T12:00:00Z", 40, 1},
			{"tomorrow resets", "2024-03-16T00:00:00Z", 5, 1},
			{"later today keeps streak", "2024-03-15T13:00:00Z", 5, 5},
			{"zero prior from yesterday", "2024-03-14T10:00:00Z", 0, 1},
			{"negative prior treated as zero", "2024-03-14T10:00:00Z", -3, 1},
			{"sql timestamp", "2024-03-14 08:00:00", 2, 3},
			{"sqlite driver timestamp", "2024-03-14 08:00:00.123456789+00:00", 2, 3},
			{"date only", "2024-03-14", 2, 3},
			{"offset timestamp", "2024-03-14T22:00:00-05:00", 2, 2},
		}

		p := pinned(CalendarDay, now)
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := p.Compute(tt.last, tt.prior)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("Compute(%q, %d) = %d, want %d", tt.last, tt.prior, got, tt.want)
				}
			})
		}
	})

	t.Run("Invalid Date", func(t *testing.T) {
		p := pinned(CalendarDay, now)
		for _, prior := range []int{0, 5, 100} {
			for _, raw := range []string{"invalid-date", "", "2024-13-45", "yesterday"} {
				if _, err := p.Compute(raw, prior); !errors.Is(err, shared.ErrInvalidDate) {
					t.Errorf("Compute(%q, %d) expected ErrInvalidDate, got %v", raw, prior, err)
				}
			}
		}
	})

	t.Run("Yesterday Always Increments", func(t *testing.T) {
		p := pinned(CalendarDay, now)
		yesterday := now.AddDate(0, 0, -1)
		for s := 0; s <= 50; s++ {
			if got := p.Next(&yesterday, s); got != s+1 {
				t.Fatalf("Next(yesterday, %d) = %d, want %d", s, got, s+1)
			}
		}
	})

	t.Run("Today Is Idempotent", func(t *testing.T) {
		p := pinned(CalendarDay, now)
		earlier := now.Add(-time.Hour)
		for s := 0; s <= 50; s++ {
			if got := p.Next(&earlier, s); got != s {
				t.Fatalf("Next(today, %d) = %d, want %d", s, got, s)
			}
		}
	})

	t.Run("Clock Skew Same Day", func(t *testing.T) {
		ahead := now.Add(5 * time.Second)
		for _, mode := range []Mode{CalendarDay, DayOfMonth} {
			if got := pinned(mode, now).Next(&ahead, 7); got != 7 {
				t.Errorf("%s: completion seconds ahead of now = %d, want 7", mode, got)
			}
		}

		nextWeek := now.AddDate(0, 0, 7)
		if got := pinned(CalendarDay, now).Next(&nextWeek, 7); got != 1 {
			t.Errorf("completion on a future day = %d, want 1", got)
		}
	})

	t.Run("Never Completed", func(t *testing.T) {
		p := pinned(CalendarDay, now)
		if got := p.Next(nil, 7); got != 1 {
			t.Errorf("Next(nil, 7) = %d, want 1", got)
		}
	})

	t.Run("Month Boundary", func(t *testing.T) {
		firstOfMarch := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		leapDay := time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)

		for _, mode := range []Mode{CalendarDay, DayOfMonth} {
			if got := pinned(mode, firstOfMarch).Next(&leapDay, 5); got != 6 {
				t.Errorf("%s: consecutive days across a month boundary = %d, want 6", mode, got)
			}
		}
	})

	t.Run("Day Of Month Compatibility", func(t *testing.T) {
		firstOfMarch := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		// Same day number one month earlier.
		firstOfFeb := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
		if got := pinned(DayOfMonth, firstOfMarch).Next(&firstOfFeb, 5); got != 5 {
			t.Errorf("day_of_month treats Feb 1 as today on Mar 1: got %d, want 5", got)
		}
		if got := pinned(CalendarDay, firstOfMarch).Next(&firstOfFeb, 5); got != 1 {
			t.Errorf("calendar resets Feb 1 on Mar 1: got %d, want 1", got)
		}

		// Day number of yesterday (Feb 29) one month earlier.
		jan29 := time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC)
		if got := pinned(DayOfMonth, firstOfMarch).Next(&jan29, 5); got != 6 {
			t.Errorf("day_of_month treats Jan 29 as yesterday on Mar 1: got %d, want 6", got)
		}
		if got := pinned(CalendarDay, firstOfMarch).Next(&jan29, 5); got != 1 {
			t.Errorf("calendar resets Jan 29 on Mar 1: got %d, want 1", got)
		}
	})

	t.Run("Location", func(t *testing.T) {
		eastern := time.FixedZone("UTC-4", -4*60*60)
		at := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)   // Mar 14 23:00 at UTC-4
		last := time.Date(2024, 3, 14, 5, 0, 0, 0, time.UTC) // Mar 14 01:00 at UTC-4

		local := NewPolicy(CalendarDay, eastern, shared.FixedClock(at))
		if got := local.Next(&last, 3); got != 3 {
			t.Errorf("same local day = %d, want 3", got)
		}

		utc := NewPolicy(CalendarDay, time.UTC, shared.FixedClock(at))
		if got := utc.Next(&last, 3); got != 4 {
			t.Errorf("previous UTC day = %d, want 4", got)
		}
	})
}

func TestParseMode(t *testing.T) {
	tc := []struct {
		in   string
		want Mode
	}{
		{"", CalendarDay},
		{"calendar", CalendarDay},
		{"DAY_OF_MONTH", DayOfMonth},
	}
	for _, tt := range tc {
		got, err := ParseMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseMode("weekly"); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(shared.HabitsConfig{StreakMode: "day_of_month", Timezone: "UTC"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode() != DayOfMonth {
		t.Errorf("expected day_of_month, got %s", p.Mode())
	}

	if _, err := FromConfig(shared.HabitsConfig{Timezone: "Nowhere/Atlantis"}, nil); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
