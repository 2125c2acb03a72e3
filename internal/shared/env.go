package shared

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads variables from a .env file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides config values with their environment variable counterparts when set.
func ApplyEnv(c *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	override(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	override(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	override(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	override(&c.Credentials.News.APIKey, "NEWS_API_KEY")
	override(&c.Credentials.Quotes.APIKey, "QUOTE_API_KEY")
	override(&c.Session.Secret, "SESSION_SECRET")
	override(&c.Database.DSN, "DATABASE_URL")
	override(&c.Cache.RedisAddr, "REDIS_ADDR")
	override(&c.Cache.RedisPassword, "REDIS_PASSWORD")
}
