package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgHabitsLoaded MsgKind = iota
	MsgTodosLoaded
	MsgHabitTracked
	MsgTodoToggled
	MsgQuoteLoaded
)

// habitsLoadedMsg is the constructor for [MsgHabitsLoaded]
func habitsLoadedMsg(habits []models.Habit, err error) Msg {
	return Msg{kind: MsgHabitsLoaded, data: habits, err: err}
}

// todosLoadedMsg is the constructor for [MsgTodosLoaded]
func todosLoadedMsg(todos []models.Todo, err error) Msg {
	return Msg{kind: MsgTodosLoaded, data: todos, err: err}
}

// habitTrackedMsg is the constructor for [MsgHabitTracked]
func habitTrackedMsg(habit *models.Habit, err error) Msg {
	return Msg{kind: MsgHabitTracked, data: habit, err: err}
}

// todoToggledMsg is the constructor for [MsgTodoToggled]
func todoToggledMsg(todo *models.Todo, err error) Msg {
	return Msg{kind: MsgTodoToggled, data: todo, err: err}
}

// quoteLoadedMsg is the constructor for [MsgQuoteLoaded]
func quoteLoadedMsg(quote *services.Quote, err error) Msg {
	return Msg{kind: MsgQuoteLoaded, data: quote, err: err}
}
