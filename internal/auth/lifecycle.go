package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"golang.org/x/oauth2"
)

// Phase names where a token state sits in its lifecycle.
type Phase int

const (
	Fresh Phase = iota
	Valid
	Expired
)

func (p Phase) String() string {
	switch p {
	case Fresh:
		return "fresh"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Lifecycle decides whether a session's access token is reused or refreshed.
type Lifecycle struct {
	config *oauth2.Config
	clock  shared.Clock
	logger *log.Logger
}

// NewLifecycle creates a [Lifecycle] refreshing through config's token endpoint.
func NewLifecycle(config *oauth2.Config, clock shared.Clock, logger *log.Logger) *Lifecycle {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Lifecycle{config: config, clock: clock, logger: logger}
}

// PhaseOf classifies state. A non-nil account means sign-in just completed.
func (l *Lifecycle) PhaseOf(state models.TokenState, account *oauth2.Token) Phase {
	if account != nil {
		return Fresh
	}
	if state.ValidAt(l.clock.Now()) {
		return Valid
	}
	return Expired
}

// Hydrate returns the token state to use for this request.
//
// At most one outbound call is made, and only in the [Expired] phase.
func (l *Lifecycle) Hydrate(ctx context.Context, state models.TokenState, account *oauth2.Token) models.TokenState {
	switch l.PhaseOf(state, account) {
	case Fresh:
		return l.FromAuthorization(account)
	case Valid:
		return state
	default:
		return l.Refresh(ctx, state)
	}
}

// FromAuthorization builds a token state from the result of an authorization code exchange.
func (l *Lifecycle) FromAuthorization(tok *oauth2.Token) models.TokenState {
	return models.TokenState{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    l.expiresAt(tok),
	}
}

// Refresh exchanges state's refresh token for a new access token.
//
// On failure state is returned with its Error set and its tokens untouched.
func (l *Lifecycle) Refresh(ctx context.Context, state models.TokenState) models.TokenState {
	if state.RefreshToken == "" {
		l.logger.Warn("cannot refresh access token", "error", shared.ErrNoRefreshToken)
		return failed(state)
	}

	// An empty access token forces the source to hit the token endpoint.
	src := l.config.TokenSource(ctx, &oauth2.Token{RefreshToken: state.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		l.logger.Error("failed to refresh access token", "error", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err))
		return failed(state)
	}

	next := models.TokenState{
		AccessToken:  tok.AccessToken,
		RefreshToken: state.RefreshToken,
		ExpiresAt:    l.expiresAt(tok),
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}

	l.logger.Debug("refreshed access token", "expires_at", time.Unix(next.ExpiresAt, 0))
	return next
}

// expiresAt prefers the relative lifetime from the response over the absolute expiry oauth2 derives from the wall clock.
func (l *Lifecycle) expiresAt(tok *oauth2.Token) int64 {
	now := l.clock.Now()
	switch {
	case tok.ExpiresIn > 0:
		return now.Unix() + tok.ExpiresIn
	case !tok.Expiry.IsZero():
		return tok.Expiry.Unix()
	}
	return now.Unix()
}

func failed(state models.TokenState) models.TokenState {
	state.Error = models.RefreshAccessTokenError
	return state
}
