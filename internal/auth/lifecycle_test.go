package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/dash/internal/models"
	"github.com/desertthunder/dash/internal/shared"
	"golang.org/x/oauth2"
)

// tokenServer stands in for the provider token endpoint and counts refresh calls.
type tokenServer struct {
	*httptest.Server
	calls  atomic.Int32
	status int
	body   map[string]any
	t      *testing.T
}

func newTokenServer(t *testing.T, status int, body map[string]any) *tokenServer {
	t.Helper()
	ts := &tokenServer{status: status, body: body, t: t}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)

		id, secret, ok := r.BasicAuth()
		if !ok || id != "client-id" || secret != "client-secret" {
			t.Errorf("expected basic client auth, got %q/%q (ok=%v)", id, secret, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("expected grant_type=refresh_token, got %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "refresh-1" {
			t.Errorf("expected refresh_token=refresh-1, got %q", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "" {
			t.Errorf("client secret must not be sent in the body, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.status)
		json.NewEncoder(w).Encode(ts.body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestLifecycle(tokenURL string, now time.Time) (*Lifecycle, *bytes.Buffer) {
	config := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	var logs bytes.Buffer
	return NewLifecycle(config, shared.FixedClock(now), shared.NewLogger(&logs)), &logs
}

func TestLifecycle(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	ctx := context.Background()

	stale := models.TokenState{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    now.Add(-time.Minute).Unix(),
	}

	t.Run("Valid token makes no call", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, nil)
		lc, _ := newTestLifecycle(ts.URL, now)

		state := stale
		state.ExpiresAt = now.Add(time.Hour).Unix()

		got := lc.Hydrate(ctx, state, nil)
		if got != state {
			t.Errorf("expected state unchanged, got %+v", got)
		}
		if n := ts.calls.Load(); n != 0 {
			t.Errorf("expected 0 refresh calls, got %d", n)
		}
	})

	t.Run("Expiry instant counts as expired", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, map[string]any{
			"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600,
		})
		lc, _ := newTestLifecycle(ts.URL, now)

		state := stale
		state.ExpiresAt = now.Unix()

		if lc.PhaseOf(state, nil) != Expired {
			t.Fatalf("expected expired phase, got %s", lc.PhaseOf(state, nil))
		}
		lc.Hydrate(ctx, state, nil)
		if n := ts.calls.Load(); n != 1 {
			t.Errorf("expected 1 refresh call, got %d", n)
		}
	})

	t.Run("Expired token refreshes once", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, map[string]any{
			"access_token":  "access-2",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-2",
		})
		lc, _ := newTestLifecycle(ts.URL, now)

		got := lc.Hydrate(ctx, stale, nil)

		if n := ts.calls.Load(); n != 1 {
			t.Errorf("expected exactly 1 refresh call, got %d", n)
		}
		if got.AccessToken != "access-2" {
			t.Errorf("expected new access token, got %s", got.AccessToken)
		}
		if got.RefreshToken != "refresh-2" {
			t.Errorf("expected rotated refresh token, got %s", got.RefreshToken)
		}
		if want := now.Unix() + 3600; got.ExpiresAt < want-5 || got.ExpiresAt > want+5 {
			t.Errorf("expected expires_at near %d, got %d", want, got.ExpiresAt)
		}
		if got.Error != "" {
			t.Errorf("expected no error marker, got %s", got.Error)
		}
	})

	t.Run("Missing refresh token in response keeps previous", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, map[string]any{
			"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600,
		})
		lc, _ := newTestLifecycle(ts.URL, now)

		got := lc.Hydrate(ctx, stale, nil)
		if got.RefreshToken != "refresh-1" {
			t.Errorf("expected refresh-1 to be kept, got %q", got.RefreshToken)
		}
		if got.AccessToken != "access-2" {
			t.Errorf("expected new access token, got %s", got.AccessToken)
		}
	})

	t.Run("Rejected refresh flags error and keeps tokens", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusBadRequest, map[string]any{
			"error": "invalid_grant", "error_description": "Refresh token revoked",
		})
		lc, logs := newTestLifecycle(ts.URL, now)

		got := lc.Hydrate(ctx, stale, nil)

		if got.Error != models.RefreshAccessTokenError {
			t.Errorf("expected error marker, got %q", got.Error)
		}
		if got.AccessToken != stale.AccessToken || got.RefreshToken != stale.RefreshToken || got.ExpiresAt != stale.ExpiresAt {
			t.Errorf("expected previous tokens untouched, got %+v", got)
		}
		if got.Usable() {
			t.Error("error-flagged token must not be usable")
		}
		if n := ts.calls.Load(); n != 1 {
			t.Errorf("expected 1 call without retry, got %d", n)
		}
		if logs.Len() == 0 {
			t.Error("expected refresh failure to be logged")
		}
	})

	t.Run("Unreachable endpoint flags error", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, nil)
		url := ts.URL
		ts.Close()

		lc, _ := newTestLifecycle(url, now)
		got := lc.Hydrate(ctx, stale, nil)
		if got.Error != models.RefreshAccessTokenError {
			t.Errorf("expected error marker, got %q", got.Error)
		}
		if got.AccessToken != "access-1" {
			t.Errorf("expected stale access token, got %s", got.AccessToken)
		}
	})

	t.Run("Missing refresh token makes no call", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, nil)
		lc, _ := newTestLifecycle(ts.URL, now)

		state := stale
		state.RefreshToken = ""

		got := lc.Hydrate(ctx, state, nil)
		if got.Error != models.RefreshAccessTokenError {
			t.Errorf("expected error marker, got %q", got.Error)
		}
		if n := ts.calls.Load(); n != 0 {
			t.Errorf("expected 0 calls, got %d", n)
		}
	})

	t.Run("Successful refresh clears previous error", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, map[string]any{
			"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600,
		})
		lc, _ := newTestLifecycle(ts.URL, now)

		state := stale
		state.Error = models.RefreshAccessTokenError

		if got := lc.Hydrate(ctx, state, nil); got.Error != "" || !got.Usable() {
			t.Errorf("expected usable token, got %+v", got)
		}
	})

	t.Run("Fresh sign-in skips expiry check", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, nil)
		lc, _ := newTestLifecycle(ts.URL, now)

		account := &oauth2.Token{
			AccessToken:  "signin-access",
			RefreshToken: "signin-refresh",
			ExpiresIn:    3600,
		}

		if lc.PhaseOf(stale, account) != Fresh {
			t.Fatalf("expected fresh phase")
		}

		got := lc.Hydrate(ctx, stale, account)
		if got.AccessToken != "signin-access" || got.RefreshToken != "signin-refresh" {
			t.Errorf("expected state from authorization result, got %+v", got)
		}
		if got.ExpiresAt != now.Unix()+3600 {
			t.Errorf("expected expires_at %d, got %d", now.Unix()+3600, got.ExpiresAt)
		}
		if n := ts.calls.Load(); n != 0 {
			t.Errorf("expected 0 calls, got %d", n)
		}
	})

	t.Run("Fresh sign-in uses absolute expiry", func(t *testing.T) {
		lc, _ := newTestLifecycle("http://unused.invalid", now)
		exp := now.Add(50 * time.Minute)

		got := lc.FromAuthorization(&oauth2.Token{AccessToken: "a", Expiry: exp})
		if got.ExpiresAt != exp.Unix() {
			t.Errorf("expected expires_at %d, got %d", exp.Unix(), got.ExpiresAt)
		}
	})
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{Fresh: "fresh", Valid: "valid", Expired: "expired", Phase(9): "Phase(9)"} {
		if got := phase.String(); got != want {
			t.Errorf("Phase.String() = %s, want %s", got, want)
		}
	}
}
