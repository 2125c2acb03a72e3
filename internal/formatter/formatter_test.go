package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	th "github.com/desertthunder/dash/internal/testing"
)

var now = time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)

func fixtures() ([]models.Habit, []models.Todo) {
	today := now.Add(-2 * time.Hour)
	lastWeek := now.AddDate(0, 0, -7)
	habits := []models.Habit{
		{ID: 1, Name: "Read", Description: "20 pages", Streak: 5, LastCompleted: &today, CreatedAt: now.AddDate(0, -1, 0)},
		{ID: 2, Name: "Run | 5k", Streak: 1, LastCompleted: &lastWeek, CreatedAt: now.AddDate(0, -1, 0)},
		{ID: 3, Name: "Stretch", CreatedAt: now},
	}
	todos := []models.Todo{
		{ID: 1, Title: "buy milk", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Title: "call mom, then dad", Completed: true, CreatedAt: now, UpdatedAt: now},
	}
	return habits, todos
}

func TestExporters(t *testing.T) {
	habits, todos := fixtures()

	t.Run("HabitsToCSV", func(t *testing.T) {
		data, err := HabitsToCSV(habits)
		if err != nil {
			t.Fatalf("HabitsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Name,Description,Streak,LastCompleted,CreatedAt\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,Read,20 pages,5,2024-05-10T16:00:00Z") {
			t.Errorf("CSV missing first habit, got: %s", output)
		}
		if !strings.Contains(output, "3,Stretch,,0,,") {
			t.Errorf("never-completed habit should have empty LastCompleted, got: %s", output)
		}
	})

	t.Run("TodosToCSV quotes commas", func(t *testing.T) {
		data, err := TodosToCSV(todos)
		if err != nil {
			t.Fatalf("TodosToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), `2,"call mom, then dad",true`) {
			t.Errorf("expected quoted title, got: %s", data)
		}
	})

	t.Run("HabitsToMarkdown", func(t *testing.T) {
		output := string(HabitsToMarkdown(habits, now))

		if !strings.HasPrefix(output, "# Habits\n") {
			t.Errorf("missing heading, got: %s", output)
		}
		if !strings.Contains(output, "| Read <br><small>20 pages</small> | 5 | 2 hours ago | [x] |") {
			t.Errorf("missing completed habit row, got: %s", output)
		}
		if !strings.Contains(output, `Run \| 5k`) {
			t.Errorf("pipe should be escaped, got: %s", output)
		}
		if !strings.Contains(output, "| Stretch | 0 | never | [ ] |") {
			t.Errorf("missing never-completed row, got: %s", output)
		}
	})

	t.Run("Markdown empty", func(t *testing.T) {
		if !strings.Contains(string(HabitsToMarkdown(nil, now)), "No habits yet") {
			t.Error("expected empty-state text for habits")
		}
		if !strings.Contains(string(TodosToMarkdown(nil)), "Nothing to do") {
			t.Error("expected empty-state text for todos")
		}
	})

	t.Run("TodosToMarkdown", func(t *testing.T) {
		output := string(TodosToMarkdown(todos))
		if !strings.Contains(output, "- [ ] buy milk\n") || !strings.Contains(output, "- [x] call mom, then dad\n") {
			t.Errorf("unexpected task list: %s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		if !strings.Contains(string(HabitsToText(habits, now)), "  1. [✓] Read (streak 5)") {
			t.Errorf("unexpected habits text: %s", HabitsToText(habits, now))
		}
		if !strings.Contains(string(TodosToText(todos)), "  2. [✓] call mom, then dad") {
			t.Errorf("unexpected todos text: %s", TodosToText(todos))
		}
	})

	t.Run("RenderHabits JSON", func(t *testing.T) {
		data, err := RenderHabits(JSON, habits, now)
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}

		var decoded []models.Habit
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 3 || decoded[2].LastCompleted != nil {
			t.Errorf("unexpected decoded habits %+v", decoded)
		}
	})
}

func TestFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"csv", CSV},
		{"MD", Markdown},
		{"markdown", Markdown},
		{"", JSON},
		{"text", Text},
	}

	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}

	if Markdown.Ext() != ".md" || CSV.Ext() != ".csv" {
		t.Error("unexpected extensions")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "habits.csv")
	if err := WriteFile(path, []byte("ID\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	th.AssertFileExists(t, path)
	if got := th.MustReadFile(t, path); got != "ID\n" {
		t.Errorf("unexpected contents %q", got)
	}
}
