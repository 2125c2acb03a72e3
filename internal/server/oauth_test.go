package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignIn(t *testing.T) {
	h := newHarness(t, nil, nil)

	rec := h.do(http.MethodGet, "/api/auth/signin", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	if err != nil || loc.Host != "accounts.spotify.com" {
		t.Fatalf("expected spotify authorize redirect, got %s", rec.Header().Get(echo.HeaderLocation))
	}
	if got := loc.Query().Get("scope"); !strings.Contains(got, "user-top-read") {
		t.Errorf("expected top-read scope, got %q", got)
	}

	state := findCookie(rec, stateCookie)
	if state == nil || state.Value == "" || state.Value != loc.Query().Get("state") {
		t.Errorf("state cookie %v should match redirect state %q", state, loc.Query().Get("state"))
	}
	if !state.HttpOnly {
		t.Error("state cookie should be HttpOnly")
	}
}

func TestCallback(t *testing.T) {
	state := &http.Cookie{Name: stateCookie, Value: "state-1"}

	t.Run("success", func(t *testing.T) {
		h := newHarness(t, spotifyAPI(t, http.StatusOK), nil)

		rec := h.do(http.MethodGet, "/api/auth/callback/spotify?state=state-1&code=code-1", nil, state)
		if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/" {
			t.Fatalf("expected redirect home, got %d %s", rec.Code, rec.Body.String())
		}

		session := findCookie(rec, h.cookies.CookieName())
		if session == nil {
			t.Fatal("expected session cookie")
		}
		id, err := h.cookies.Parse(session.Value)
		if err != nil {
			t.Fatalf("session cookie should verify: %v", err)
		}

		stored, err := h.sessions.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("session should be stored: %v", err)
		}
		if stored.Token.AccessToken != "access-2" || stored.Token.ExpiresAt != testNow.Unix()+3600 {
			t.Errorf("unexpected stored token %+v", stored.Token)
		}

		if cleared := findCookie(rec, stateCookie); cleared == nil || cleared.MaxAge >= 0 {
			t.Errorf("state cookie should be cleared, got %v", cleared)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		expectError(t, h.do(http.MethodGet, "/api/auth/callback/spotify?state=other&code=code-1", nil, state), http.StatusBadRequest, "Invalid state parameter")
		expectError(t, h.do(http.MethodGet, "/api/auth/callback/spotify?state=state-1&code=code-1", nil), http.StatusBadRequest, "Invalid state parameter")
	})

	t.Run("denied", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		expectError(t, h.do(http.MethodGet, "/api/auth/callback/spotify?state=state-1&error=access_denied", nil, state), http.StatusBadRequest, "Authorization failed")
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := newHarness(t, spotifyAPI(t, http.StatusBadRequest), nil)
		expectError(t, h.do(http.MethodGet, "/api/auth/callback/spotify?state=state-1&code=code-1", nil, state), http.StatusBadGateway, "Token exchange failed")
	})
}

func TestSignOut(t *testing.T) {
	h := newHarness(t, nil, nil)
	sess, cookie := h.signIn(t, validToken())

	rec := h.do(http.MethodPost, "/api/auth/signout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cleared := findCookie(rec, h.cookies.CookieName()); cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("session cookie should be cleared, got %v", cleared)
	}
	if _, err := h.sessions.Get(context.Background(), sess.ID); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Errorf("session should be deleted, got %v", err)
	}

	if rec := h.do(http.MethodPost, "/api/auth/signout", nil); rec.Code != http.StatusOK {
		t.Errorf("signing out without a session should succeed, got %d", rec.Code)
	}
}

type stubExchanger struct {
	tok *oauth2.Token
	err error
}

func (s stubExchanger) Exchange(context.Context, string) (*oauth2.Token, error) { return s.tok, s.err }

func TestOAuthCallback(t *testing.T) {
	e := echo.New()
	call := func(cb *OAuthCallback, query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/spotify?"+query, nil)
		if err := cb.Handle(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		return rec
	}

	t.Run("success once", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{tok: &oauth2.Token{AccessToken: "access-1"}}, "state-1")

		if rec := call(cb, "state=state-1&code=code-1"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Signed in") {
			t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
		res := <-cb.Result()
		if res.Error() != nil || res.Token.AccessToken != "access-1" {
			t.Errorf("unexpected result %+v", res)
		}

		if rec := call(cb, "state=state-1&code=code-1"); rec.Code != http.StatusBadRequest {
			t.Errorf("second callback should be rejected, got %d", rec.Code)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{}, "state-1")
		if rec := call(cb, "state=other&code=code-1"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-cb.Result(); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("denied", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{}, "state-1")
		call(cb, "state=state-1&error=access_denied")
		if res := <-cb.Result(); res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", res.Error())
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{err: shared.ErrAuthFailed}, "state-1")
		if rec := call(cb, "state=state-1&code=code-1"); rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
		if res := <-cb.Result(); !errors.Is(res.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", res.Error())
		}
	})

	t.Run("Await times out", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{}, "state-1")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := cb.Await(ctx, "127.0.0.1:0", "/callback"); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("Await returns published result", func(t *testing.T) {
		cb := NewOAuthCallback(stubExchanger{}, "state-1")
		cb.Send(OAuthResult{Token: &oauth2.Token{AccessToken: "access-1"}})

		tok, err := cb.Await(context.Background(), "127.0.0.1:0", "/callback")
		if err != nil || tok.AccessToken != "access-1" {
			t.Errorf("expected published token, got %v (%v)", tok, err)
		}
	})
}
