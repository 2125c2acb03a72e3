package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/repositories"
	"github.com/desertthunder/dash/internal/shared"
	tu "github.com/desertthunder/dash/internal/testing"
)

const headlinesBody = `{
	"status": "ok",
	"totalResults": 2,
	"articles": [
		{"source": {"id": null, "name": "The Verge"}, "title": "Go 1.24 ships - The Verge", "url": "https://example.com/a", "publishedAt": "2025-02-11T17:00:00Z"},
		{"source": {"id": "wired", "name": "Wired"}, "title": "No source suffix", "url": "https://example.com/b", "publishedAt": "not a date"}
	]
}`

const quoteBody = `{
	"success": {"total": 1},
	"contents": {"quotes": [{"id": "q1", "quote": "Simplicity is prerequisite for reliability.", "author": "Edsger Dijkstra", "language": "en"}]}
}`

func newsWidget(endpoint string) shared.NewsWidget {
	return shared.NewsWidget{Endpoint: endpoint, Category: "technology", Country: "us", Count: 4, CacheMinutes: 30}
}

func TestNewsService(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch sends query and caches", func(t *testing.T) {
		server := tu.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("category") != "technology" || q.Get("pageSize") != "4" || q.Get("country") != "us" || q.Get("apiKey") != "news-key" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(headlinesBody))
		})

		cache := tu.NewMemoryCache()
		svc := NewNewsService(NewAPIService(nil, NewLimiter(0)), cache, newsWidget(server.URL), shared.APIKeyConfig{APIKey: "news-key"}, nil)

		for range 3 {
			body, err := svc.Fetch(ctx)
			if err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if string(body) != headlinesBody {
				t.Errorf("unexpected body %s", body)
			}
		}

		if server.Calls() != 1 {
			t.Errorf("expected one upstream call inside the window, got %d", server.Calls())
		}
	})

	t.Run("Fetch does not cache failures", func(t *testing.T) {
		server := tu.NewJSONServer(t, http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid"}`)
		cache := tu.NewMemoryCache()
		svc := NewNewsService(NewAPIService(nil, NewLimiter(0)), cache, newsWidget(server.URL), shared.APIKeyConfig{}, nil)

		if _, err := svc.Fetch(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if cache.Sets != 0 {
			t.Errorf("failed response should not be cached, got %d sets", cache.Sets)
		}

		svc.Fetch(ctx)
		if server.Calls() != 2 {
			t.Errorf("expected a retry upstream after failure, got %d calls", server.Calls())
		}
	})

	t.Run("Fetch rejects non-JSON", func(t *testing.T) {
		server := tu.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		})
		svc := NewNewsService(NewAPIService(nil, NewLimiter(0)), tu.NewMemoryCache(), newsWidget(server.URL), shared.APIKeyConfig{}, nil)

		if _, err := svc.Fetch(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Refresh forces upstream", func(t *testing.T) {
		server := tu.NewJSONServer(t, http.StatusOK, headlinesBody)
		svc := NewNewsService(NewAPIService(nil, NewLimiter(0)), tu.NewMemoryCache(), newsWidget(server.URL), shared.APIKeyConfig{}, nil)

		svc.Fetch(ctx)
		if err := svc.Refresh(ctx); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		svc.Fetch(ctx)

		if server.Calls() != 2 {
			t.Errorf("expected 2 upstream calls, got %d", server.Calls())
		}
	})

	t.Run("Database cache window", func(t *testing.T) {
		server := tu.NewJSONServer(t, http.StatusOK, headlinesBody)
		db := tu.NewTestDB(t)

		start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
		now := start
		clock := shared.Clock(func() time.Time { return now })
		cache := repositories.NewContentCache(db, shared.DriverSQLite, clock)
		svc := NewNewsService(NewAPIService(nil, NewLimiter(0)), cache, newsWidget(server.URL), shared.APIKeyConfig{}, nil)

		svc.Fetch(ctx)
		now = start.Add(29 * time.Minute)
		svc.Fetch(ctx)
		if server.Calls() != 1 {
			t.Fatalf("expected cached response inside window, got %d calls", server.Calls())
		}

		now = start.Add(31 * time.Minute)
		svc.Fetch(ctx)
		if server.Calls() != 2 {
			t.Errorf("expected refetch after window, got %d calls", server.Calls())
		}
	})

	t.Run("DecodeHeadlines", func(t *testing.T) {
		h, err := DecodeHeadlines([]byte(headlinesBody))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if len(h.Articles) != 2 {
			t.Fatalf("expected 2 articles, got %d", len(h.Articles))
		}
		if got := h.Articles[0].Headline(); got != "Go 1.24 ships" {
			t.Errorf("expected source suffix stripped, got %q", got)
		}
		if got := h.Articles[1].Headline(); got != "No source suffix" {
			t.Errorf("expected title unchanged, got %q", got)
		}
		if h.Articles[0].Published().IsZero() || !h.Articles[1].Published().IsZero() {
			t.Error("unexpected published time parsing")
		}

		if _, err := DecodeHeadlines([]byte("{")); err == nil {
			t.Error("expected error for malformed body")
		}
	})

	t.Run("Headline truncates long titles", func(t *testing.T) {
		long := Article{Title: stringOf('x', 100)}
		got := long.Headline()
		if len(got) != 84 {
			t.Errorf("expected 80 chars plus ellipsis, got %d", len(got))
		}
	})
}

func stringOf(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

func TestQuoteService(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch sends language and bearer key", func(t *testing.T) {
		server := tu.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("language") != "en" {
				t.Errorf("expected language=en, got %s", r.URL.RawQuery)
			}
			if r.Header.Get("Authorization") != "Bearer quote-key" {
				t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(quoteBody))
		})

		cache := tu.NewMemoryCache()
		widget := shared.QuotesWidget{Endpoint: server.URL, Language: "en"}
		svc := NewQuoteService(NewAPIService(nil, NewLimiter(0)), cache, widget, shared.APIKeyConfig{APIKey: "quote-key"}, nil)

		svc.Fetch(ctx)
		body, err := svc.Fetch(ctx)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if server.Calls() != 1 {
			t.Errorf("expected cached second fetch, got %d calls", server.Calls())
		}
		if svc.window() != 720*time.Minute {
			t.Errorf("expected default 720m window, got %v", svc.window())
		}

		q, err := DecodeQuote(body)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if q.Author != "Edsger Dijkstra" {
			t.Errorf("unexpected author %s", q.Author)
		}
	})

	t.Run("DecodeQuote empty", func(t *testing.T) {
		if _, err := DecodeQuote([]byte(`{"contents":{"quotes":[]}}`)); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
