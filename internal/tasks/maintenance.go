package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/shared"
)

// Fetcher is satisfied by services.NewsService and services.QuoteService.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Purger removes expired cache entries.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// SessionSweeper removes sessions idle since before a cutoff.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Maintenance keeps caches warm and storage tidy. Nil collaborators are skipped.
type Maintenance struct {
	News       Fetcher
	Quotes     Fetcher
	Cache      Purger
	Sessions   SessionSweeper
	SessionTTL time.Duration
	Clock      shared.Clock
	Logger     *log.Logger
}

// MaintenanceResult reports one pass.
type MaintenanceResult struct {
	PurgedEntries  int64
	PurgedSessions int64
	Errors         []error
}

type maintenanceStep struct {
	phase Phase
	run   func(context.Context, *MaintenanceResult) (string, error)
}

func (m *Maintenance) steps() []maintenanceStep {
	var steps []maintenanceStep
	if m.News != nil {
		steps = append(steps, maintenanceStep{WarmNews, func(ctx context.Context, _ *MaintenanceResult) (string, error) {
			_, err := m.News.Fetch(ctx)
			return "headlines cached", err
		}})
	}
	if m.Quotes != nil {
		steps = append(steps, maintenanceStep{WarmQuote, func(ctx context.Context, _ *MaintenanceResult) (string, error) {
			_, err := m.Quotes.Fetch(ctx)
			return "quote cached", err
		}})
	}
	if m.Cache != nil {
		steps = append(steps, maintenanceStep{PurgeCache, func(ctx context.Context, r *MaintenanceResult) (string, error) {
			n, err := m.Cache.Purge(ctx)
			r.PurgedEntries = n
			return fmt.Sprintf("%d expired entries removed", n), err
		}})
	}
	if m.Sessions != nil && m.SessionTTL > 0 {
		steps = append(steps, maintenanceStep{PurgeSessions, func(ctx context.Context, r *MaintenanceResult) (string, error) {
			n, err := m.Sessions.DeleteExpired(ctx, m.Clock.Now().Add(-m.SessionTTL))
			r.PurgedSessions = n
			return fmt.Sprintf("%d stale sessions removed", n), err
		}})
	}
	return steps
}

// Run performs one pass. A failing step is recorded and the remaining steps still run.
func (m *Maintenance) Run(ctx context.Context, prog chan<- ProgressUpdate) *MaintenanceResult {
	result := &MaintenanceResult{}
	steps := m.steps()

	for i, s := range steps {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err())
			break
		}
		detail, err := s.run(ctx, result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", s.phase, err))
		}
		sendProgress(prog, maintenanceUpdate(s.phase, i+1, len(steps), err, detail))
	}
	return result
}

// Start runs a pass immediately and then every interval until ctx is done.
func (m *Maintenance) Start(ctx context.Context, interval time.Duration) {
	logger := m.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res := m.Run(ctx, nil)
		for _, err := range res.Errors {
			logger.Warn("maintenance step failed", "error", err)
		}
		logger.Debug("maintenance pass complete", "purged_entries", res.PurgedEntries, "purged_sessions", res.PurgedSessions)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
