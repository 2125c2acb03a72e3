package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/dash/internal/services"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// News prints the top headlines, served from the content cache inside the cache window.
func (r *Runner) News(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	news, _ := r.contentServices(s)

	body, err := r.fetchContent(ctx, cmd, news)
	if err != nil {
		return fmt.Errorf("failed to fetch news: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeIndented(body)
	}

	headlines, err := services.DecodeHeadlines(body)
	if err != nil {
		return err
	}

	r.writePlainHeader(r.config.Widgets.News.Title)
	if len(headlines.Articles) == 0 {
		return r.writePlain("No headlines right now.\n")
	}

	now := r.clock.Now()
	for i, a := range headlines.Articles {
		r.writePlain("%d. %s\n", i+1, a.Headline())
		meta := a.Source.Name
		if published := a.Published(); !published.IsZero() {
			meta = fmt.Sprintf("%s • %s", meta, humanize.RelTime(published, now, "ago", "from now"))
		}
		r.writePlain("   %s\n", meta)
		if a.URL != "" {
			r.writePlain("   %s\n", a.URL)
		}
	}
	return nil
}

// Quote prints the quote of the day.
func (r *Runner) Quote(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	_, quotes := r.contentServices(s)

	body, err := r.fetchContent(ctx, cmd, quotes)
	if err != nil {
		return fmt.Errorf("failed to fetch quote: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeIndented(body)
	}

	quote, err := services.DecodeQuote(body)
	if err != nil {
		return err
	}
	return r.writePlain("“%s”\n    - %s\n", quote.Quote, quote.Author)
}

type refreshFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	Refresh(ctx context.Context) error
}

func (r *Runner) fetchContent(ctx context.Context, cmd *cli.Command, svc refreshFetcher) ([]byte, error) {
	if cmd.Bool("refresh") {
		if err := svc.Refresh(ctx); err != nil {
			r.logger.Warn("failed to drop cached response", "error", err)
		}
	}
	return svc.Fetch(ctx)
}

// writeIndented pretty-prints a raw JSON body, falling back to the body as-is.
func (r *Runner) writeIndented(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return r.writeRaw(body)
	}
	return r.writeRaw(buf.Bytes())
}
