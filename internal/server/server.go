package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/auth"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/services"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
)

// HabitStore is the habit persistence the handlers need.
type HabitStore interface {
	List(ctx context.Context) ([]models.Habit, error)
	Create(ctx context.Context, u models.HabitUpdate) (*models.Habit, error)
	Update(ctx context.Context, id int64, u models.HabitUpdate) (*models.Habit, error)
	Delete(ctx context.Context, id int64) error
}

// TodoStore is the todo persistence the handlers need.
type TodoStore interface {
	List(ctx context.Context) ([]models.Todo, error)
	Create(ctx context.Context, title string) (*models.Todo, error)
	Update(ctx context.Context, t models.Todo) (*models.Todo, error)
	Delete(ctx context.Context, id int64) (*models.Todo, error)
}

// SessionStore persists sign-in sessions.
type SessionStore interface {
	Create(ctx context.Context, token models.TokenState) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error
}

// Tracker marks habits complete.
type Tracker interface {
	Track(ctx context.Context, id int64, completed bool) (*models.Habit, error)
}

// Fetcher returns raw upstream JSON, typically from a cache.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Pinger reports database health. [*sql.DB] satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options wires the server's collaborators. Spotify, Lifecycle, Cookies and Sessions are
// either all set or all nil; when nil the Spotify and auth routes answer 503.
type Options struct {
	Config    *shared.Config
	Habits    HabitStore
	Todos     TodoStore
	Tracker   Tracker
	News      Fetcher
	Quotes    Fetcher
	Sessions  SessionStore
	Spotify   *services.SpotifyService
	Lifecycle *auth.Lifecycle
	Cookies   *auth.SessionManager
	DB        Pinger
	Renderer  echo.Renderer
	Clock     shared.Clock
	Logger    *log.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	echo      *echo.Echo
	config    *shared.Config
	habits    HabitStore
	todos     TodoStore
	tracker   Tracker
	news      Fetcher
	quotes    Fetcher
	sessions  SessionStore
	spotify   *services.SpotifyService
	lifecycle *auth.Lifecycle
	cookies   *auth.SessionManager
	db        Pinger
	clock     shared.Clock
	logger    *log.Logger
}

// New builds a [Server] and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server requires a config", shared.ErrMissingConfig)
	}
	if opts.Habits == nil || opts.Todos == nil || opts.Tracker == nil {
		return nil, fmt.Errorf("%w: server requires habit and todo stores", shared.ErrInvalidArgument)
	}
	spotifyParts := []bool{opts.Spotify != nil, opts.Lifecycle != nil, opts.Cookies != nil, opts.Sessions != nil}
	for _, set := range spotifyParts[1:] {
		if set != spotifyParts[0] {
			return nil, fmt.Errorf("%w: spotify, lifecycle, cookies and sessions must be set together", shared.ErrInvalidArgument)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = opts.Renderer

	s := &Server{
		echo:      e,
		config:    opts.Config,
		habits:    opts.Habits,
		todos:     opts.Todos,
		tracker:   opts.Tracker,
		news:      opts.News,
		quotes:    opts.Quotes,
		sessions:  opts.Sessions,
		spotify:   opts.Spotify,
		lifecycle: opts.Lifecycle,
		cookies:   opts.Cookies,
		db:        opts.DB,
		clock:     opts.Clock,
		logger:    logger,
	}
	s.routes()
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Addr()
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down dashboard")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	e := s.echo
	e.Use(recoverer(s.logger), requestLogger(s.logger))
	if limit := s.config.Server.RateLimit; limit > 0 {
		e.Use(rateLimiter(limit))
	}

	e.GET("/", s.index, s.loadSession)
	e.GET("/healthz", s.health)

	api := e.Group("/api")
	api.GET("/config", s.widgetConfig)

	api.GET("/habits", s.listHabits)
	api.POST("/habits", s.createHabit)
	api.PUT("/habits", s.updateHabit)
	api.DELETE("/habits", s.deleteHabit)
	api.POST("/habits/track", s.trackHabit)

	api.GET("/todo", s.listTodos)
	api.POST("/todo", s.createTodo)
	api.PUT("/todo", s.updateTodo)
	api.DELETE("/todo", s.deleteTodo)

	api.GET("/news", s.getNews)
	api.GET("/quotes", s.getQuote)

	authGroup := api.Group("/auth", s.requireSpotifyConfig)
	authGroup.GET("/signin", s.signIn)
	authGroup.GET("/callback/spotify", s.callback)
	authGroup.POST("/signout", s.signOut, s.loadSession)
	authGroup.GET("/session", s.session, s.loadSession)

	sp := api.Group("/spotify", s.requireSpotifyConfig, s.loadSession, s.requireToken)
	sp.GET("/top/:type", s.topItems)
	sp.GET("/recently-played", s.recentlyPlayed)
	sp.GET("/now-playing", s.nowPlaying)
	sp.GET("/me", s.profile)
	sp.GET("/playlists", s.playlists)
}

// errorJSON writes {"error": msg}.
func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}
