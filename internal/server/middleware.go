package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const sessionKey = "session"

// recoverer turns handler panics into 500s and logs the stack through logger.
func recoverer(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("recovered from panic", "method", c.Request().Method, "path", c.Path(), "error", err, "stack", string(stack))
			return err
		},
	})
}

// requestLogger logs one line per request at a level matching the response status.
func requestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.Round(time.Microsecond), "ip", v.RemoteIP}
			switch {
			case v.Error != nil:
				logger.Error("request failed", append(kv, "error", v.Error)...)
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request", kv...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("request", kv...)
			default:
				logger.Debug("request", kv...)
			}
			return nil
		},
	})
}

// rateLimiter allows perSecond requests per client IP with a matching burst.
func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     max(1, int(perSecond)),
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return errorJSON(c, http.StatusTooManyRequests, "Too many requests")
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return errorJSON(c, http.StatusForbidden, "Unable to identify client")
		},
	})
}

// requireSpotifyConfig answers 503 when Spotify credentials were not configured.
func (s *Server) requireSpotifyConfig(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.spotify == nil {
			return errorJSON(c, http.StatusServiceUnavailable, "Spotify is not configured")
		}
		return next(c)
	}
}

// loadSession resolves the session cookie, hydrates its token, and stores the session on c.
//
// A missing or invalid cookie is not an error; the request continues without a session.
func (s *Server) loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if sess := s.resolveSession(c); sess != nil {
			c.Set(sessionKey, sess)
		}
		return next(c)
	}
}

func (s *Server) resolveSession(c echo.Context) *models.Session {
	if s.cookies == nil {
		return nil
	}
	cookie, err := c.Cookie(s.cookies.CookieName())
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, err := s.cookies.Parse(cookie.Value)
	if err != nil {
		s.logger.Debug("rejected session cookie", "error", err)
		return nil
	}

	ctx := c.Request().Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrSessionNotFound) {
			s.logger.Error("failed to load session", "error", err)
		}
		return nil
	}

	hydrated := s.lifecycle.Hydrate(s.spotify.Context(ctx), sess.Token, nil)
	if hydrated != sess.Token {
		sess.Token = hydrated
		if err := s.sessions.Save(ctx, sess); err != nil {
			s.logger.Error("failed to save session", "session", sess.ID, "error", err)
		}
	}
	return sess
}

// currentSession returns the session loaded by [Server.loadSession], or nil.
func currentSession(c echo.Context) *models.Session {
	sess, _ := c.Get(sessionKey).(*models.Session)
	return sess
}

// requireToken answers 401 unless the session holds a usable access token.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		if sess == nil || !sess.Token.Usable() {
			return errorJSON(c, http.StatusUnauthorized, "Not authenticated")
		}
		return next(c)
	}
}

func accessToken(c echo.Context) string {
	if sess := currentSession(c); sess != nil {
		return sess.Token.AccessToken
	}
	return ""
}

func sessionSummary(sess *models.Session) echo.Map {
	if sess == nil {
		return echo.Map{"authenticated": false}
	}
	summary := echo.Map{
		"authenticated": sess.Token.Usable(),
		"expires_at":    sess.Token.ExpiresAt,
	}
	if sess.Token.Error != "" {
		summary["error"] = sess.Token.Error
	}
	return summary
}
