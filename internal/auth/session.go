package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "dash"

// SessionManager issues and verifies session cookies.
type SessionManager struct {
	secret []byte
	name   string
	maxAge time.Duration
	secure bool
	clock  shared.Clock
}

// NewSessionManager builds a [SessionManager] from the session section of the config.
//
// baseURL decides whether cookies are marked Secure.
func NewSessionManager(cfg shared.SessionConfig, baseURL string, clock shared.Clock) (*SessionManager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: session secret is empty", shared.ErrInvalidConfig)
	}
	name := cfg.CookieName
	if name == "" {
		name = "dash_session"
	}
	maxAge := cfg.MaxAge()
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(cfg.Secret),
		name:   name,
		maxAge: maxAge,
		secure: strings.HasPrefix(baseURL, "https://"),
		clock:  clock,
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *SessionManager) CookieName() string { return m.name }

// Secure reports whether cookies are restricted to https.
func (m *SessionManager) Secure() bool { return m.secure }

// Issue signs a token naming sessionID and returns it with its expiry.
func (m *SessionManager) Issue(sessionID string) (string, time.Time, error) {
	now := m.clock.Now()
	exp := now.Add(m.maxAge)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the session id it carries.
func (m *SessionManager) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: session token has no subject", shared.ErrNotAuthenticated)
	}
	return claims.Subject, nil
}

// Cookie wraps a signed token in an HTTP-only cookie.
func (m *SessionManager) Cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(expires.Sub(m.clock.Now()).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired returns a cookie that clears the session cookie.
func (m *SessionManager) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
