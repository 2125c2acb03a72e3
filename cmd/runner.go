package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/repositories"
	"github.com/desertthunder/dash/internal/services"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/streak"
	"github.com/desertthunder/dash/internal/tasks"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and redis connections are opened on first use and closed by [Runner.After].
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	spotifyOpts []services.SpotifyOption
	clock       shared.Clock
	logger      *log.Logger
	output      io.Writer
	input       io.Reader

	store *store
	redis *redis.Client
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config         *shared.Config // When set, Before skips reading the config file
	ConfigPath     string
	HTTPClient     *http.Client
	SpotifyOptions []services.SpotifyOption
	Clock          shared.Clock
	Logger         *log.Logger
	Output         io.Writer
	Input          io.Reader
}

// store bundles the repositories backed by one database connection.
type store struct {
	db       *sql.DB
	habits   *repositories.HabitRepository
	todos    *repositories.TodoRepository
	sessions *repositories.SessionRepository
	content  *repositories.ContentCache
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		spotifyOpts: opts.SpotifyOptions,
		clock:       opts.Clock,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, habitsCommand, todoCommand, newsCommand, quoteCommand, spotifyCommand, keyringCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and every collaborator it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Before resolves configuration for every subcommand: .env file, config file (or defaults),
// environment overrides, then the OS keyring for secrets that are still empty.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, fmt.Errorf("failed to load env file: %w", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	config := r.config
	if config == nil {
		var err error
		if config, err = r.loadConfig(); err != nil {
			return ctx, err
		}
	}

	shared.ApplyEnv(config)
	if err := shared.ApplyKeyring(config); err != nil {
		r.logger.Warn("keyring unavailable, stored secrets skipped", "error", err)
	}

	if err := config.Validate(); err != nil {
		return ctx, err
	}

	shared.ConfigureLogger(r.logger, config.Log)
	r.config = config
	return ctx, nil
}

// After closes connections opened during the command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.db.Close())
		r.store = nil
	}
	if r.redis != nil {
		errs = append(errs, r.redis.Close())
		r.redis = nil
	}
	return errors.Join(errs...)
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return config, nil
}

// openStore opens and migrates the configured database on first use.
func (r *Runner) openStore() (*store, error) {
	if r.store != nil {
		return r.store, nil
	}
	if r.config == nil {
		return nil, shared.ErrMissingConfig
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	driver := shared.Driver(r.config.Database.Driver)
	r.store = &store{
		db:       db,
		habits:   repositories.NewHabitRepository(db, driver, r.clock),
		todos:    repositories.NewTodoRepository(db, driver, r.clock),
		sessions: repositories.NewSessionRepository(db, driver, r.clock),
		content:  repositories.NewContentCache(db, driver, r.clock),
	}
	return r.store, nil
}

func (r *Runner) tracker(s *store) (*tasks.HabitTracker, error) {
	policy, err := streak.FromConfig(r.config.Habits, r.clock)
	if err != nil {
		return nil, err
	}
	return tasks.NewHabitTracker(s.habits, policy, r.clock), nil
}

// cache picks the content cache backend. An unreachable redis falls back to the database.
func (r *Runner) cache(s *store) services.Cache {
	if !strings.EqualFold(r.config.Cache.Backend, "redis") {
		return s.content
	}
	if r.redis == nil {
		r.redis = shared.NewRedisClient(r.config.Cache)
	}
	if r.redis == nil {
		r.logger.Warn("redis unreachable, caching content in the database", "addr", r.config.Cache.RedisAddr)
		return s.content
	}
	return services.NewRedisCache(r.redis, r.config.Cache.Prefix)
}

func (r *Runner) contentServices(s *store) (*services.NewsService, *services.QuoteService) {
	api := services.NewAPIService(r.httpClient, nil)
	cache := r.cache(s)
	news := services.NewNewsService(api, cache, r.config.Widgets.News, r.config.Credentials.News, r.logger)
	quotes := services.NewQuoteService(api, cache, r.config.Widgets.Quotes, r.config.Credentials.Quotes, r.logger)
	return news, quotes
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)", shared.ErrMissingCredentials)
	}
	opts := append([]services.SpotifyOption{services.WithHTTPClient(r.httpClient)}, r.spotifyOpts...)
	return services.NewSpotifyService(creds.Map(), opts...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.writeRaw(output)
}

// writeRaw writes an already encoded body followed by a newline.
func (r *Runner) writeRaw(body []byte) error {
	if _, err := r.output.Write(body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
