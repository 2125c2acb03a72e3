package shared

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name secrets are stored under in the OS keyring.
const KeyringService = "dash"

// Secret names accepted by the keyring helpers.
const (
	SecretSpotifyClientSecret = "spotify_client_secret"
	SecretNewsAPIKey          = "news_api_key"
	SecretQuoteAPIKey         = "quote_api_key"
	SecretSessionSecret       = "session_secret"
	// SecretSpotifySession holds the id of the session created by `dash spotify login`.
	SecretSpotifySession = "spotify_session"
)

var (
	ErrSecretNotFound     = errors.New("secret not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// SecretNames lists every secret the keyring helpers know about.
func SecretNames() []string {
	return []string{SecretSpotifyClientSecret, SecretNewsAPIKey, SecretQuoteAPIKey, SecretSessionSecret, SecretSpotifySession}
}

func checkSecretName(name string) error {
	if !slices.Contains(SecretNames(), name) {
		return fmt.Errorf("%w: unknown secret %q", ErrInvalidArgument, name)
	}
	return nil
}

// GetSecret reads a secret from the OS keyring.
func GetSecret(name string) (string, error) {
	if err := checkSecretName(name); err != nil {
		return "", err
	}
	v, err := keyring.Get(KeyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

// SetSecret stores a secret in the OS keyring.
func SetSecret(name, value string) error {
	if err := checkSecretName(name); err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("%w: secret value cannot be empty", ErrInvalidArgument)
	}
	if err := keyring.Set(KeyringService, name, value); err != nil {
		return fmt.Errorf("failed to store secret in keyring: %w", err)
	}
	return nil
}

// DeleteSecret removes a secret from the OS keyring.
func DeleteSecret(name string) error {
	if err := checkSecretName(name); err != nil {
		return err
	}
	if err := keyring.Delete(KeyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrSecretNotFound
		}
		return fmt.Errorf("failed to delete secret from keyring: %w", err)
	}
	return nil
}

// ApplyKeyring fills secrets that are still empty from the OS keyring.
//
// Missing entries are skipped. The first keyring failure other than a missing entry is returned
// after every secret has been tried.
func ApplyKeyring(c *Config) error {
	targets := map[string]*string{
		SecretSpotifyClientSecret: &c.Credentials.Spotify.ClientSecret,
		SecretNewsAPIKey:          &c.Credentials.News.APIKey,
		SecretQuoteAPIKey:         &c.Credentials.Quotes.APIKey,
		SecretSessionSecret:       &c.Session.Secret,
	}

	var firstErr error
	for _, name := range SecretNames() {
		dst, ok := targets[name]
		if !ok || *dst != "" {
			continue
		}
		v, err := GetSecret(name)
		switch {
		case err == nil:
			*dst = v
		case errors.Is(err, ErrSecretNotFound):
		case firstErr == nil:
			firstErr = err
		}
	}
	return firstErr
}
