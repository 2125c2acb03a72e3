package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Session     SessionConfig     `toml:"session"`
	Log         LogConfig         `toml:"log"`
	Cache       CacheConfig       `toml:"cache"`
	Credentials CredentialsConfig `toml:"credentials"`
	Habits      HabitsConfig      `toml:"habits"`
	Widgets     WidgetsConfig     `toml:"widgets"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	BaseURL string `toml:"base_url"`
	// RateLimit is the number of requests per second allowed per client IP. Zero disables limiting.
	RateLimit float64 `toml:"rate_limit"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database connection settings.
//
// Path is used by the sqlite3 driver, DSN by postgres and mysql.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Source returns the data source name handed to [sql.Open] for the configured driver.
func (d DatabaseConfig) Source() string {
	if Driver(d.Driver) == DriverSQLite {
		return d.Path
	}
	return d.DSN
}

// SessionConfig contains the session cookie settings.
type SessionConfig struct {
	Secret      string `toml:"secret"`
	CookieName  string `toml:"cookie_name"`
	MaxAgeHours int    `toml:"max_age_hours"`
}

// MaxAge returns the configured session lifetime.
func (s SessionConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeHours) * time.Hour
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// CacheConfig selects where upstream content is cached.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	News    APIKeyConfig  `toml:"news"`
	Quotes  APIKeyConfig  `toml:"quotes"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Configured reports whether both client id and secret are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// APIKeyConfig holds a single API key.
type APIKeyConfig struct {
	APIKey string `toml:"api_key"`
}

// HabitsConfig controls streak computation.
type HabitsConfig struct {
	StreakMode string `toml:"streak_mode"`
	Timezone   string `toml:"timezone"`
}

// Location resolves the configured timezone. "Local" and "" map to [time.Local].
func (h HabitsConfig) Location() (*time.Location, error) {
	if h.Timezone == "" || h.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, h.Timezone, err)
	}
	return loc, nil
}

// WidgetsConfig is the static dashboard layout.
type WidgetsConfig struct {
	Spotify SpotifyWidget `toml:"spotify" json:"spotify"`
	News    NewsWidget    `toml:"news" json:"news"`
	Quotes  QuotesWidget  `toml:"quotes" json:"quotes"`
}

type SpotifyWidget struct {
	Title     string `toml:"title" json:"title"`
	View      string `toml:"view" json:"view"`
	Type      string `toml:"type" json:"type"`
	TimeRange string `toml:"time_range" json:"time_range"`
	Limit     int    `toml:"limit" json:"limit"`
}

type NewsWidget struct {
	Title        string `toml:"title" json:"title"`
	Endpoint     string `toml:"endpoint" json:"-"`
	Category     string `toml:"category" json:"category"`
	Country      string `toml:"country" json:"country"`
	Count        int    `toml:"count" json:"count"`
	CacheMinutes int    `toml:"cache_minutes" json:"cache_minutes"`
}

// CacheWindow returns how long headlines are reused.
func (n NewsWidget) CacheWindow() time.Duration {
	return time.Duration(n.CacheMinutes) * time.Minute
}

type QuotesWidget struct {
	Title        string `toml:"title" json:"title"`
	Endpoint     string `toml:"endpoint" json:"-"`
	Language     string `toml:"language" json:"language"`
	CacheMinutes int    `toml:"cache_minutes" json:"cache_minutes"`
}

// CacheWindow returns how long the quote of the day is reused.
func (q QuotesWidget) CacheWindow() time.Duration {
	return time.Duration(q.CacheMinutes) * time.Minute
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail deep inside a collaborator.
func (c *Config) Validate() error {
	if !slices.Contains(Drivers(), Driver(c.Database.Driver)) {
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.Source() == "" {
		return fmt.Errorf("%w: database %s requires a path or dsn", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Habits.StreakMode {
	case "", "calendar", "day_of_month":
	default:
		return fmt.Errorf("%w: unknown streak mode %q", ErrInvalidConfig, c.Habits.StreakMode)
	}
	if _, err := c.Habits.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", "database", "redis":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	return nil
}
