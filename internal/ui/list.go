package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/dash/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = habitItem{}
	_ list.Item = todoItem{}
)

// habitItem wraps [models.Habit] to implement [list.Item].
type habitItem struct {
	habit models.Habit
	now   time.Time
}

func (i habitItem) FilterValue() string { return i.habit.Name }
func (i habitItem) Title() string {
	if i.habit.CompletedOn(i.now) {
		return "✓ " + i.habit.Name
	}
	return i.habit.Name
}
func (i habitItem) Description() string {
	desc := fmt.Sprintf("streak %d", i.habit.Streak)
	if i.habit.LastCompleted != nil {
		desc = fmt.Sprintf("%s • last done %s", desc, humanize.RelTime(*i.habit.LastCompleted, i.now, "ago", "from now"))
	}
	if i.habit.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.habit.Description)
	}
	return desc
}

// todoItem wraps [models.Todo] to implement [list.Item].
type todoItem struct {
	todo models.Todo
}

func (i todoItem) FilterValue() string { return i.todo.Title }
func (i todoItem) Title() string {
	if i.todo.Completed {
		return "[x] " + i.todo.Title
	}
	return "[ ] " + i.todo.Title
}
func (i todoItem) Description() string {
	return "added " + i.todo.CreatedAt.Format("Jan 2")
}

func newPaneList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	return l
}
