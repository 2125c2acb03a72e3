package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/dash/internal/auth"
	"github.com/desertthunder/dash/internal/server"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/tasks"
	"github.com/desertthunder/dash/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the web dashboard until interrupted, with background cache maintenance.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config

	logFile := cmd.String("log-file")
	if logFile == "" {
		logFile = cfg.Log.File
	}
	if logFile != "" {
		fileLogger, err := shared.NewFileLogger(logFile)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.ConfigureLogger(fileLogger, cfg.Log)
		r.SetLogger(fileLogger)
	}

	srv, maint, err := r.buildServer()
	if err != nil {
		return err
	}

	if interval := cmd.Duration("maintenance-interval"); interval > 0 {
		go maint.Start(ctx, interval)
	}

	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = "http://" + cfg.Server.Addr()
	}
	r.writePlain("→ Dashboard running at %s\n", baseURL)

	if cmd.Bool("open") {
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenBrowser(baseURL); err != nil {
				r.logger.Warnf("failed to open browser automatically %v", err)
			}
		}()
	}

	return srv.Start(ctx)
}

// buildServer wires the store, content services, and optional Spotify sign-in into a server,
// along with the maintenance loop that keeps the same caches warm.
func (r *Runner) buildServer() (*server.Server, *tasks.Maintenance, error) {
	cfg := r.config

	s, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}
	tracker, err := r.tracker(s)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, nil, err
	}
	news, quotes := r.contentServices(s)

	opts := server.Options{
		Config:   cfg,
		Habits:   s.habits,
		Todos:    s.todos,
		Tracker:  tracker,
		News:     news,
		Quotes:   quotes,
		DB:       s.db,
		Renderer: renderer,
		Clock:    r.clock,
		Logger:   r.logger,
	}

	if cfg.Credentials.Spotify.Configured() {
		svc, err := r.spotifyService()
		if err != nil {
			return nil, nil, err
		}
		cookies, err := auth.NewSessionManager(cfg.Session, cfg.Server.BaseURL, r.clock)
		if err != nil {
			return nil, nil, fmt.Errorf("spotify sign-in needs a session secret: %w", err)
		}
		opts.Spotify = svc
		opts.Lifecycle = auth.NewLifecycle(svc.GetOAuthConfig(), r.clock, r.logger)
		opts.Cookies = cookies
		opts.Sessions = s.sessions
	} else {
		r.logger.Warn("spotify credentials missing, spotify card disabled")
	}

	srv, err := server.New(opts)
	if err != nil {
		return nil, nil, err
	}

	maint := &tasks.Maintenance{
		Cache:      s.content,
		Sessions:   s.sessions,
		SessionTTL: cfg.Session.MaxAge(),
		Clock:      r.clock,
		Logger:     shared.WithLogger(r.logger, "task", "maintenance"),
	}
	if cfg.Credentials.News.APIKey != "" {
		maint.News = news
	}
	if cfg.Widgets.Quotes.Endpoint != "" {
		maint.Quotes = quotes
	}
	return srv, maint, nil
}
