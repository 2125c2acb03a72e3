package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/services"
	"github.com/desertthunder/dash/internal/shared"
)

// Pane identifies the focused list.
type Pane int

const (
	HabitsPane Pane = iota
	TodosPane
)

// HabitSource lists habits.
type HabitSource interface {
	List(ctx context.Context) ([]models.Habit, error)
}

// TodoSource lists and toggles todos.
type TodoSource interface {
	List(ctx context.Context) ([]models.Todo, error)
	Toggle(ctx context.Context, id int64) (*models.Todo, error)
}

// Tracker marks habits done.
type Tracker interface {
	Track(ctx context.Context, id int64, completed bool) (*models.Habit, error)
}

// QuoteSource returns the raw quote of the day body.
type QuoteSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Deps wires the TUI to the store. Quotes may be nil.
type Deps struct {
	Habits  HabitSource
	Todos   TodoSource
	Tracker Tracker
	Quotes  QuoteSource
	Clock   shared.Clock
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	focus  Pane
	habits list.Model
	todos  list.Model
	quote  *services.Quote
	status string
	err    error
	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	return &Model{
		ctx:    ctx,
		deps:   deps,
		focus:  HabitsPane,
		habits: newPaneList("Habits"),
		todos:  newPaneList("To Do"),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(NewModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init loads both panes and the quote.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadHabits(), m.loadTodos()}
	if m.deps.Quotes != nil {
		cmds = append(cmds, m.loadQuote())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.focus = (m.focus + 1) % 2
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "Reloading..."
		m.err = nil
		return m, tea.Batch(m.loadHabits(), m.loadTodos())
	case key.Matches(msg, m.keys.enter):
		return m, m.activate()
	}
	return m.updateFocused(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.status = ""
		return m, nil
	}

	switch msg.kind {
	case MsgHabitsLoaded:
		habits := msg.data.([]models.Habit)
		now := m.deps.Clock.Now()
		items := make([]list.Item, len(habits))
		for i, h := range habits {
			items[i] = habitItem{habit: h, now: now}
		}
		m.habits.SetItems(items)
		m.status = fmt.Sprintf("Loaded %d habits", len(habits))

	case MsgTodosLoaded:
		todos := msg.data.([]models.Todo)
		items := make([]list.Item, len(todos))
		for i, t := range todos {
			items[i] = todoItem{todo: t}
		}
		m.todos.SetItems(items)

	case MsgHabitTracked:
		habit := msg.data.(*models.Habit)
		m.err = nil
		m.status = fmt.Sprintf("%s done, streak %d", habit.Name, habit.Streak)
		return m, m.loadHabits()

	case MsgTodoToggled:
		todo := msg.data.(*models.Todo)
		m.err = nil
		if todo.Completed {
			m.status = fmt.Sprintf("Completed %q", todo.Title)
		} else {
			m.status = fmt.Sprintf("Reopened %q", todo.Title)
		}
		return m, m.loadTodos()

	case MsgQuoteLoaded:
		m.quote = msg.data.(*services.Quote)
	}
	return m, nil
}

// activate marks the selected habit done or toggles the selected todo.
func (m *Model) activate() tea.Cmd {
	switch m.focus {
	case HabitsPane:
		if item, ok := m.habits.SelectedItem().(habitItem); ok {
			return m.trackHabit(item.habit.ID)
		}
	case TodosPane:
		if item, ok := m.todos.SelectedItem().(todoItem); ok {
			return m.toggleTodo(item.todo.ID)
		}
	}
	return nil
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case HabitsPane:
		m.habits, cmd = m.habits.Update(msg)
	case TodosPane:
		m.todos, cmd = m.todos.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	paneWidth := max(m.width/2-4, 10)
	paneHeight := max(m.height-8, 5)
	m.habits.SetSize(paneWidth, paneHeight)
	m.todos.SetSize(paneWidth, paneHeight)
}

func (m *Model) loadHabits() tea.Cmd {
	return func() tea.Msg {
		habits, err := m.deps.Habits.List(m.ctx)
		return habitsLoadedMsg(habits, err)
	}
}

func (m *Model) loadTodos() tea.Cmd {
	return func() tea.Msg {
		todos, err := m.deps.Todos.List(m.ctx)
		return todosLoadedMsg(todos, err)
	}
}

func (m *Model) trackHabit(id int64) tea.Cmd {
	return func() tea.Msg {
		habit, err := m.deps.Tracker.Track(m.ctx, id, true)
		return habitTrackedMsg(habit, err)
	}
}

func (m *Model) toggleTodo(id int64) tea.Cmd {
	return func() tea.Msg {
		todo, err := m.deps.Todos.Toggle(m.ctx, id)
		return todoToggledMsg(todo, err)
	}
}

func (m *Model) loadQuote() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
		defer cancel()

		body, err := m.deps.Quotes.Fetch(ctx)
		if err != nil {
			return quoteLoadedMsg(nil, err)
		}
		quote, err := services.DecodeQuote(body)
		return quoteLoadedMsg(quote, err)
	}
}

// View renders the header, both panes, the status line, and help.
func (m *Model) View() string {
	header := styles.title.Render("dash • " + m.deps.Clock.Now().Format("Monday, January 2"))
	if m.quote != nil {
		header = lipgloss.JoinVertical(lipgloss.Left, header, styles.help.Render(fmt.Sprintf("“%s” - %s", m.quote.Quote, m.quote.Author)))
	}

	habitPane, todoPane := styles.pane, styles.pane
	if m.focus == HabitsPane {
		habitPane = styles.focused
	} else {
		todoPane = styles.focused
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top, habitPane.Render(m.habits.View()), todoPane.Render(m.todos.View()))

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, panes, m.renderStatus(), m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return styles.ok.Render(m.status)
}
