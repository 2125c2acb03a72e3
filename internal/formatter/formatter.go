// package formatter renders habits and todos as CSV, Markdown, JSON, or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/dustin/go-humanize"
)

// Format names an export encoding.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "markdown"
	JSON     Format = "json"
	Text     Format = "txt"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{CSV, Markdown, JSON, Text}
}

// ParseFormat accepts a format name or its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "json", "":
		return JSON, nil
	case "txt", "text":
		return Text, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == Markdown {
		return ".md"
	}
	return "." + string(f)
}

func timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return buf.Bytes(), nil
}

// HabitsToCSV converts habits to CSV with columns: ID, Name, Description, Streak, LastCompleted, CreatedAt
func HabitsToCSV(habits []models.Habit) ([]byte, error) {
	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		rows = append(rows, []string{
			strconv.FormatInt(h.ID, 10),
			h.Name,
			h.Description,
			strconv.Itoa(h.Streak),
			timestamp(h.LastCompleted),
			timestamp(&h.CreatedAt),
		})
	}
	return writeCSV([]string{"ID", "Name", "Description", "Streak", "LastCompleted", "CreatedAt"}, rows)
}

// TodosToCSV converts todos to CSV with columns: ID, Title, Completed, CreatedAt, UpdatedAt
func TodosToCSV(todos []models.Todo) ([]byte, error) {
	rows := make([][]string, 0, len(todos))
	for _, t := range todos {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			strconv.FormatBool(t.Completed),
			timestamp(&t.CreatedAt),
			timestamp(&t.UpdatedAt),
		})
	}
	return writeCSV([]string{"ID", "Title", "Completed", "CreatedAt", "UpdatedAt"}, rows)
}

// HabitsToMarkdown renders habits as a table. Completion times are shown relative to now.
func HabitsToMarkdown(habits []models.Habit, now time.Time) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Habits\n\n")
	if len(habits) == 0 {
		buf.WriteString("_No habits yet._\n")
		return buf.Bytes()
	}

	buf.WriteString("| Habit | Streak | Last completed | Today |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, h := range habits {
		last := "never"
		if h.LastCompleted != nil {
			last = humanize.RelTime(*h.LastCompleted, now, "ago", "from now")
		}
		done := " "
		if h.CompletedOn(now) {
			done = "x"
		}
		name := escapeCell(h.Name)
		if h.Description != "" {
			name += " <br><small>" + escapeCell(h.Description) + "</small>"
		}
		fmt.Fprintf(&buf, "| %s | %d | %s | [%s] |\n", name, h.Streak, last, done)
	}
	return buf.Bytes()
}

// TodosToMarkdown renders todos as a task list.
func TodosToMarkdown(todos []models.Todo) []byte {
	var buf bytes.Buffer

	buf.WriteString("# To Do\n\n")
	if len(todos) == 0 {
		buf.WriteString("_Nothing to do._\n")
		return buf.Bytes()
	}

	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(&buf, "- [%s] %s\n", mark, t.Title)
	}
	return buf.Bytes()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HabitsToText renders one habit per line.
func HabitsToText(habits []models.Habit, now time.Time) []byte {
	var buf bytes.Buffer
	for _, h := range habits {
		mark := " "
		if h.CompletedOn(now) {
			mark = "✓"
		}
		fmt.Fprintf(&buf, "%3d. [%s] %s (streak %d)\n", h.ID, mark, h.Name, h.Streak)
	}
	return buf.Bytes()
}

// TodosToText renders one todo per line.
func TodosToText(todos []models.Todo) []byte {
	var buf bytes.Buffer
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "✓"
		}
		fmt.Fprintf(&buf, "%3d. [%s] %s\n", t.ID, mark, t.Title)
	}
	return buf.Bytes()
}

// ToJSON encodes v as indented JSON with a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderHabits encodes habits in format f.
func RenderHabits(f Format, habits []models.Habit, now time.Time) ([]byte, error) {
	switch f {
	case CSV:
		return HabitsToCSV(habits)
	case Markdown:
		return HabitsToMarkdown(habits, now), nil
	case Text:
		return HabitsToText(habits, now), nil
	default:
		return ToJSON(habits)
	}
}

// RenderTodos encodes todos in format f.
func RenderTodos(f Format, todos []models.Todo) ([]byte, error) {
	switch f {
	case CSV:
		return TodosToCSV(todos)
	case Markdown:
		return TodosToMarkdown(todos), nil
	case Text:
		return TodosToText(todos), nil
	default:
		return ToJSON(todos)
	}
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
