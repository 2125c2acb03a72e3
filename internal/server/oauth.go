package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

const stateCookie = "dash_oauth_state"

func (s *Server) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     "/api/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookies.Secure(),
		SameSite: http.SameSiteLaxMode,
	}
}

// signIn redirects to the Spotify authorize page. The state is echoed back through a short-lived cookie.
func (s *Server) signIn(c echo.Context) error {
	state, err := shared.GenerateState()
	if err != nil {
		s.logger.Error("failed to start sign in", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to start sign in")
	}
	c.SetCookie(s.stateCookie(state, 600))
	return c.Redirect(http.StatusFound, s.spotify.GetAuthURL(state))
}

// callback completes the authorization code flow, stores a fresh session, and redirects home.
func (s *Server) callback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return errorJSON(c, http.StatusBadRequest, "Invalid state parameter")
	}
	c.SetCookie(s.stateCookie("", -1))

	code := c.QueryParam("code")
	if code == "" {
		s.logger.Warn("authorization denied", "error", c.QueryParam("error"), "description", c.QueryParam("error_description"))
		return errorJSON(c, http.StatusBadRequest, "Authorization failed")
	}

	ctx := c.Request().Context()
	tok, err := s.spotify.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("token exchange failed", "error", err)
		return errorJSON(c, http.StatusBadGateway, "Token exchange failed")
	}

	sess, err := s.sessions.Create(ctx, s.lifecycle.Hydrate(ctx, models.TokenState{}, tok))
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to create session")
	}

	signed, exp, err := s.cookies.Issue(sess.ID)
	if err != nil {
		s.logger.Error("failed to sign session", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Failed to create session")
	}
	c.SetCookie(s.cookies.Cookie(signed, exp))

	s.logger.Info("signed in with spotify", "session", sess.ID)
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) signOut(c echo.Context) error {
	if sess := currentSession(c); sess != nil {
		if err := s.sessions.Delete(c.Request().Context(), sess.ID); err != nil {
			s.logger.Error("failed to delete session", "session", sess.ID, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "Failed to sign out")
		}
	}
	c.SetCookie(s.cookies.Expired())
	return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
}

func (s *Server) session(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionSummary(currentSession(c)))
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// Exchanger trades an authorization code for a token. [*services.SpotifyService] satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthCallback handles a single authorization code callback for the CLI sign-in flow.
type OAuthCallback struct {
	exchanger   Exchanger
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthCallback creates a callback expecting state. The state should be cryptographically random.
func NewOAuthCallback(exchanger Exchanger, state string) *OAuthCallback {
	return &OAuthCallback{
		exchanger:  exchanger,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Handle validates the state, exchanges the code, and publishes the result. Only the first call is processed.
func (h *OAuthCallback) Handle(c echo.Context) error {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		return c.String(http.StatusBadRequest, "Callback already processed")
	}
	h.callbackHit = true
	h.mu.Unlock()

	if c.QueryParam("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		return c.String(http.StatusBadRequest, "Invalid state parameter")
	}

	code := c.QueryParam("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, c.QueryParam("error"), c.QueryParam("error_description"))
		h.Send(OAuthResult{err: err})
		return c.String(http.StatusBadRequest, "Authorization failed")
	}

	tok, err := h.exchanger.Exchange(c.Request().Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		return c.String(http.StatusBadGateway, "Token exchange failed")
	}

	h.Send(OAuthResult{Token: tok})
	return c.HTML(http.StatusOK, signedInPage)
}

// Send publishes result once.
func (h *OAuthCallback) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthCallback) Result() <-chan OAuthResult {
	return h.resultChan
}

// Await serves h on addr at path until a result arrives or ctx is done.
func (h *OAuthCallback) Await(ctx context.Context, addr, path string) (*oauth2.Token, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET(path, h.Handle)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer e.Shutdown(context.Background())

	select {
	case res := <-h.Result():
		return res.Token, res.Error()
	case err := <-errCh:
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for authorization", shared.ErrTimeout)
	}
}

const signedInPage = `<!DOCTYPE html>
<html>
<head>
    <title>Signed in</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #111418; color: #e6e6e6; }
        .card { text-align: center; background: #1b2027; padding: 2rem; border-radius: 8px; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #8b949e; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Signed in to dash</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
