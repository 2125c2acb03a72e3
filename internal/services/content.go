package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/shared"
)

const (
	defaultNewsWindow  = 30 * time.Minute
	defaultQuoteWindow = 720 * time.Minute
)

// cachedGet serves key from cache, or fetches it with get and caches a successful JSON body for window.
func cachedGet(ctx context.Context, cache Cache, logger *log.Logger, key string, window time.Duration, get func(context.Context) (*APIResponse, error)) ([]byte, error) {
	body, err := cache.Get(ctx, key)
	if err == nil {
		logger.Debug("cache hit", "key", key)
		return body, nil
	}
	if !errors.Is(err, shared.ErrCacheMiss) {
		logger.Warn("cache read failed, fetching upstream", "key", key, "error", err)
	}

	resp, err := get(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: upstream status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	if !resp.IsJSON {
		return nil, fmt.Errorf("%w: upstream returned non-JSON body", shared.ErrAPIRequest)
	}

	if err := cache.Set(ctx, key, resp.Body, window); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
	return resp.Body, nil
}

// NewsService fetches top headlines for the news card.
type NewsService struct {
	api    *APIService
	cache  Cache
	widget shared.NewsWidget
	apiKey string
	logger *log.Logger
}

// NewNewsService creates a [NewsService] for the headlines described by widget.
func NewNewsService(api *APIService, cache Cache, widget shared.NewsWidget, creds shared.APIKeyConfig, logger *log.Logger) *NewsService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &NewsService{api: api, cache: cache, widget: widget, apiKey: creds.APIKey, logger: logger}
}

// CacheKey identifies the cached headlines for the configured query.
func (s *NewsService) CacheKey() string {
	return strings.Join([]string{"news", s.widget.Category, s.widget.Country, strconv.Itoa(s.widget.Count)}, ":")
}

func (s *NewsService) window() time.Duration {
	if w := s.widget.CacheWindow(); w > 0 {
		return w
	}
	return defaultNewsWindow
}

// Fetch returns the raw headlines JSON, from cache when inside the window.
func (s *NewsService) Fetch(ctx context.Context) ([]byte, error) {
	return cachedGet(ctx, s.cache, s.logger, s.CacheKey(), s.window(), func(ctx context.Context) (*APIResponse, error) {
		query := url.Values{
			"category": {s.widget.Category},
			"pageSize": {strconv.Itoa(s.widget.Count)},
			"country":  {s.widget.Country},
			"apiKey":   {s.apiKey},
		}
		return s.api.Get(ctx, s.widget.Endpoint, query, nil)
	})
}

// Refresh drops the cached headlines so the next Fetch goes upstream.
func (s *NewsService) Refresh(ctx context.Context) error {
	return s.cache.Delete(ctx, s.CacheKey())
}

// QuoteService fetches the quote of the day.
type QuoteService struct {
	api    *APIService
	cache  Cache
	widget shared.QuotesWidget
	apiKey string
	logger *log.Logger
}

// NewQuoteService creates a [QuoteService] for the quote described by widget.
func NewQuoteService(api *APIService, cache Cache, widget shared.QuotesWidget, creds shared.APIKeyConfig, logger *log.Logger) *QuoteService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &QuoteService{api: api, cache: cache, widget: widget, apiKey: creds.APIKey, logger: logger}
}

// CacheKey identifies the cached quote for the configured language.
func (s *QuoteService) CacheKey() string {
	return "quote:" + s.widget.Language
}

func (s *QuoteService) window() time.Duration {
	if w := s.widget.CacheWindow(); w > 0 {
		return w
	}
	return defaultQuoteWindow
}

// Fetch returns the raw quote JSON, from cache when inside the window.
func (s *QuoteService) Fetch(ctx context.Context) ([]byte, error) {
	return cachedGet(ctx, s.cache, s.logger, s.CacheKey(), s.window(), func(ctx context.Context) (*APIResponse, error) {
		header := http.Header{}
		if s.apiKey != "" {
			header.Set("Authorization", "Bearer "+s.apiKey)
		}
		return s.api.Get(ctx, s.widget.Endpoint, url.Values{"language": {s.widget.Language}}, header)
	})
}

// Refresh drops the cached quote so the next Fetch goes upstream.
func (s *QuoteService) Refresh(ctx context.Context) error {
	return s.cache.Delete(ctx, s.CacheKey())
}

// Headlines is the top-headlines response.
type Headlines struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

type articleSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Article is a single headline.
type Article struct {
	Source      articleSource `json:"source"`
	Author      string        `json:"author"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
}

// Headline strips the trailing " - Source" from the title and shortens very long titles.
func (a Article) Headline() string {
	title := a.Title
	if i := strings.LastIndex(title, " - "); i > 0 {
		title = title[:i]
	}
	if r := []rune(title); len(r) > 90 {
		return string(r[:80]) + " ..."
	}
	return title
}

// Published parses PublishedAt, returning the zero time when it is missing or malformed.
func (a Article) Published() time.Time {
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DecodeHeadlines parses a raw headlines body.
func DecodeHeadlines(body []byte) (*Headlines, error) {
	var h Headlines
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("failed to decode headlines: %w", err)
	}
	return &h, nil
}

// Quote is a single quote of the day.
type Quote struct {
	ID         string   `json:"id"`
	Quote      string   `json:"quote"`
	Author     string   `json:"author"`
	Length     int      `json:"length"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	Language   string   `json:"language"`
	Date       string   `json:"date"`
	Permalink  string   `json:"permalink"`
	Background string   `json:"background"`
	Title      string   `json:"title"`
}

type quoteResponse struct {
	Success struct {
		Total int `json:"total"`
	} `json:"success"`
	Contents struct {
		Quotes []Quote `json:"quotes"`
	} `json:"contents"`
}

// DecodeQuote parses a raw quote body and returns its first quote.
func DecodeQuote(body []byte) (*Quote, error) {
	var r quoteResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	if len(r.Contents.Quotes) == 0 {
		return nil, fmt.Errorf("%w: response contains no quotes", shared.ErrAPIRequest)
	}
	return &r.Contents.Quotes[0], nil
}
