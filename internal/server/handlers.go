package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/web"
	"github.com/labstack/echo/v4"
)

type habitRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type trackRequest struct {
	ID        int64 `json:"id"`
	Completed bool  `json:"completed"`
}

type todoRequest struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// fail maps a store error onto a response. notFound is the message used for a missing row.
func (s *Server) fail(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, shared.ErrHabitNotFound), errors.Is(err, shared.ErrTodoNotFound):
		return errorJSON(c, http.StatusNotFound, notFound)
	case errors.Is(err, shared.ErrInvalidInput):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	s.logger.Error("request failed", "path", c.Path(), "error", err)
	return errorJSON(c, http.StatusInternalServerError, err.Error())
}

func (s *Server) index(c echo.Context) error {
	page := web.Page{
		Widgets:        s.config.Widgets,
		Authenticated:  currentSession(c) != nil && currentSession(c).Token.Usable(),
		SpotifyEnabled: s.spotify != nil,
		Now:            s.clock.Now(),
	}
	return c.Render(http.StatusOK, web.Dashboard, page)
}

func (s *Server) health(c echo.Context) error {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) widgetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.config.Widgets)
}

func (s *Server) listHabits(c echo.Context) error {
	habits, err := s.habits.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, habits)
}

func (s *Server) createHabit(c echo.Context) error {
	var body habitRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	habit, err := s.habits.Create(c.Request().Context(), models.HabitUpdate{Name: body.Name, Description: body.Description})
	if err != nil {
		return s.fail(c, err, "Habit not found")
	}
	return c.JSON(http.StatusCreated, habit)
}

func (s *Server) updateHabit(c echo.Context) error {
	var body habitRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	habit, err := s.habits.Update(c.Request().Context(), body.ID, models.HabitUpdate{Name: body.Name, Description: body.Description})
	if err != nil {
		return s.fail(c, err, "Habit not found")
	}
	return c.JSON(http.StatusOK, habit)
}

func (s *Server) deleteHabit(c echo.Context) error {
	var body habitRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := s.habits.Delete(c.Request().Context(), body.ID); err != nil {
		return s.fail(c, err, "Habit not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": body.ID})
}

func (s *Server) trackHabit(c echo.Context) error {
	var body trackRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	habit, err := s.tracker.Track(c.Request().Context(), body.ID, body.Completed)
	if err != nil {
		return s.fail(c, err, "Habit not found")
	}
	return c.JSON(http.StatusOK, habit)
}

func (s *Server) listTodos(c echo.Context) error {
	todos, err := s.todos.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, todos)
}

func (s *Server) createTodo(c echo.Context) error {
	var body todoRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	todo, err := s.todos.Create(c.Request().Context(), body.Title)
	if err != nil {
		return s.fail(c, err, "Todo not found")
	}
	return c.JSON(http.StatusCreated, todo)
}

func (s *Server) updateTodo(c echo.Context) error {
	var body todoRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	todo, err := s.todos.Update(c.Request().Context(), models.Todo{ID: body.ID, Title: body.Title, Completed: body.Completed})
	if err != nil {
		return s.fail(c, err, "Todo not found")
	}
	return c.JSON(http.StatusOK, todo)
}

func (s *Server) deleteTodo(c echo.Context) error {
	var body todoRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if _, err := s.todos.Delete(c.Request().Context(), body.ID); err != nil {
		return s.fail(c, err, "Todo not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": body.ID})
}

// proxy serves cached upstream JSON, answering 500 with msg on any failure.
func (s *Server) proxy(c echo.Context, f Fetcher, msg string) error {
	if f == nil {
		return errorJSON(c, http.StatusInternalServerError, msg)
	}
	body, err := f.Fetch(c.Request().Context())
	if err != nil {
		s.logger.Error(msg, "error", err)
		return errorJSON(c, http.StatusInternalServerError, msg)
	}
	return c.JSONBlob(http.StatusOK, body)
}

func (s *Server) getNews(c echo.Context) error {
	return s.proxy(c, s.news, "Failed to fetch news")
}

func (s *Server) getQuote(c echo.Context) error {
	return s.proxy(c, s.quotes, "Failed to fetch quote")
}
