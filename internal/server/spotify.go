package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/dash/internal/services"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
)

// spotifyFail maps Spotify client errors. An expired upstream token means the session is no longer usable.
func (s *Server) spotifyFail(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, shared.ErrInvalidInput):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	s.logger.Error(msg, "path", c.Path(), "error", err)
	return errorJSON(c, http.StatusInternalServerError, msg)
}

// intParam reads an optional integer query parameter.
func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func (s *Server) topItems(c echo.Context) error {
	itemType, err := services.ParseTopItemsType(c.Param("type"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	q := services.TopItemsQuery{TimeRange: c.QueryParam("time_range")}
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	raw, err := s.spotify.TopItems(c.Request().Context(), accessToken(c), itemType, q)
	if err != nil {
		return s.spotifyFail(c, err, "Failed to fetch top items")
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) recentlyPlayed(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	page, err := s.spotify.RecentlyPlayed(c.Request().Context(), accessToken(c), limit)
	if err != nil {
		return s.spotifyFail(c, err, "Failed to fetch recently played")
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) nowPlaying(c echo.Context) error {
	np, err := s.spotify.CurrentlyPlaying(c.Request().Context(), accessToken(c))
	if err != nil {
		return s.spotifyFail(c, err, "Failed to fetch now playing")
	}
	if np == nil {
		return c.JSON(http.StatusOK, echo.Map{"is_playing": false})
	}
	return c.JSON(http.StatusOK, np)
}

func (s *Server) profile(c echo.Context) error {
	user, err := s.spotify.UserProfile(c.Request().Context(), accessToken(c))
	if err != nil {
		return s.spotifyFail(c, err, "Failed to fetch profile")
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) playlists(c echo.Context) error {
	limit, err := intParam(c, "limit")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	offset, err := intParam(c, "offset")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	page, err := s.spotify.UserPlaylists(c.Request().Context(), accessToken(c), limit, offset)
	if err != nil {
		return s.spotifyFail(c, err, "Failed to fetch playlists")
	}
	return c.JSON(http.StatusOK, page)
}
