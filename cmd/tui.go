package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/desertthunder/dash/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the terminal dashboard over the same store as the web server.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.ConfigureLogger(fileLogger, r.config.Log)
	r.SetLogger(fileLogger)

	s, err := r.openStore()
	if err != nil {
		return err
	}
	tracker, err := r.tracker(s)
	if err != nil {
		return err
	}

	deps := ui.Deps{
		Habits:  s.habits,
		Todos:   s.todos,
		Tracker: tracker,
		Clock:   r.clock,
	}
	if r.config.Widgets.Quotes.Endpoint != "" {
		_, deps.Quotes = r.contentServices(s)
	}

	if err := ui.Run(ctx, deps); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
