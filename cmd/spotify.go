package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/dash/internal/auth"
	"github.com/desertthunder/dash/internal/server"
	"github.com/desertthunder/dash/internal/services"
	"github.com/desertthunder/dash/internal/shared"
	"github.com/urfave/cli/v3"
)

// SpotifyLogin performs the OAuth2 authorization code flow for the CLI.
//
// A temporary callback server listens on the configured redirect URI. The resulting token state
// is stored as a session in the database and the session id in the OS keyring.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotifyService()
	if err != nil {
		return err
	}
	s, err := r.openStore()
	if err != nil {
		return err
	}

	redirect, err := url.Parse(svc.GetOAuthConfig().RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, svc.GetOAuthConfig().RedirectURL)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}
	authURL := svc.GetAuthURL(state)

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.logger.Debug("starting OAuth callback server", "addr", redirect.Host, "path", redirect.Path)
	tok, err := server.NewOAuthCallback(svc, state).Await(waitCtx, redirect.Host, redirect.Path)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	lifecycle := auth.NewLifecycle(svc.GetOAuthConfig(), r.clock, r.logger)
	sess, err := s.sessions.Create(ctx, lifecycle.FromAuthorization(tok))
	if err != nil {
		return err
	}

	r.forgetSpotifySession(ctx, s)
	if err := shared.SetSecret(shared.SecretSpotifySession, sess.ID); err != nil {
		return fmt.Errorf("failed to remember session: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	if user, err := svc.UserProfile(ctx, sess.Token.AccessToken); err == nil {
		r.writePlain("✓ Signed in as %s\n", user.DisplayName)
	} else {
		r.logger.Warn("failed to load profile", "error", err)
	}
	r.writePlain("\nYou can now use: dash spotify top\n")
	return nil
}

// SpotifyLogout deletes the stored session.
func (r *Runner) SpotifyLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	if !r.forgetSpotifySession(ctx, s) {
		return r.writePlain("Not signed in.\n")
	}
	return r.writePlain("✓ Signed out of Spotify\n")
}

// forgetSpotifySession removes any previous CLI session and its keyring entry, reporting whether one existed.
func (r *Runner) forgetSpotifySession(ctx context.Context, s *store) bool {
	id, err := shared.GetSecret(shared.SecretSpotifySession)
	if err != nil {
		return false
	}
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
		r.logger.Warn("failed to delete session", "session", id, "error", err)
	}
	if err := shared.DeleteSecret(shared.SecretSpotifySession); err != nil {
		r.logger.Warn("failed to clear keyring entry", "error", err)
	}
	return true
}

// spotifyToken loads the CLI session and returns a usable access token, refreshing it when expired.
func (r *Runner) spotifyToken(ctx context.Context, svc *services.SpotifyService, s *store) (string, error) {
	notSignedIn := fmt.Errorf("%w: run 'dash spotify login' first", shared.ErrNotAuthenticated)

	id, err := shared.GetSecret(shared.SecretSpotifySession)
	if errors.Is(err, shared.ErrSecretNotFound) {
		return "", notSignedIn
	} else if err != nil {
		return "", err
	}

	sess, err := s.sessions.Get(ctx, id)
	if errors.Is(err, shared.ErrSessionNotFound) {
		return "", notSignedIn
	} else if err != nil {
		return "", err
	}

	lifecycle := auth.NewLifecycle(svc.GetOAuthConfig(), r.clock, r.logger)
	hydrated := lifecycle.Hydrate(svc.Context(ctx), sess.Token, nil)
	if hydrated != sess.Token {
		sess.Token = hydrated
		if err := s.sessions.Save(ctx, sess); err != nil {
			r.logger.Error("failed to save session", "session", sess.ID, "error", err)
		}
	}

	if !sess.Token.Usable() {
		return "", fmt.Errorf("%w: token refresh failed, run 'dash spotify login' again", shared.ErrNotAuthenticated)
	}
	return sess.Token.AccessToken, nil
}

// withSpotify resolves the service and a usable access token for an authenticated command.
func (r *Runner) withSpotify(ctx context.Context) (*services.SpotifyService, string, error) {
	svc, err := r.spotifyService()
	if err != nil {
		return nil, "", err
	}
	s, err := r.openStore()
	if err != nil {
		return nil, "", err
	}
	token, err := r.spotifyToken(ctx, svc, s)
	if err != nil {
		return nil, "", err
	}
	return svc, token, nil
}

// SpotifyTop lists the user's top tracks or artists.
func (r *Runner) SpotifyTop(ctx context.Context, cmd *cli.Command) error {
	itemType, err := services.ParseTopItemsType(cmd.String("type"))
	if err != nil {
		return err
	}

	svc, token, err := r.withSpotify(ctx)
	if err != nil {
		return err
	}

	q := services.TopItemsQuery{TimeRange: cmd.String("time-range"), Limit: cmd.Int("limit")}
	r.logger.Infof("fetching top %v (%v)", itemType, q.TimeRange)

	if itemType == services.TopArtists {
		page, err := svc.TopArtists(ctx, token, q)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(page, true)
		}
		r.writePlainHeader("Top Artists")
		for i, a := range page.Items {
			r.writePlain("%d. %s\n", i+1, a.Name)
			if len(a.Genres) > 0 {
				r.writePlain("   %s\n", strings.Join(a.Genres, ", "))
			}
		}
		return nil
	}

	page, err := svc.TopTracks(ctx, token, q)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}
	r.writePlainHeader("Top Tracks")
	for i, t := range page.Items {
		r.writePlain("%d. %s - %s\n", i+1, t.ArtistNames(), t.Name)
		if t.Album.Name != "" {
			r.writePlain("   Album: %s\n", t.Album.Name)
		}
	}
	return nil
}

// SpotifyNowPlaying shows the current playback.
func (r *Runner) SpotifyNowPlaying(ctx context.Context, cmd *cli.Command) error {
	svc, token, err := r.withSpotify(ctx)
	if err != nil {
		return err
	}

	np, err := svc.CurrentlyPlaying(ctx, token)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		if np == nil {
			np = &services.SpotifyNowPlaying{}
		}
		return r.writeJSON(np, true)
	}

	if np == nil || np.Item == nil {
		return r.writePlain("Nothing playing.\n")
	}
	icon := "⏸"
	if np.IsPlaying {
		icon = "▶"
	}
	return r.writePlain("%s %s - %s (%s)\n", icon, np.Item.ArtistNames(), np.Item.Name, np.Item.Album.Name)
}

// SpotifyRecent lists recently played tracks.
func (r *Runner) SpotifyRecent(ctx context.Context, cmd *cli.Command) error {
	svc, token, err := r.withSpotify(ctx)
	if err != nil {
		return err
	}

	page, err := svc.RecentlyPlayed(ctx, token, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	r.writePlainHeader("Recently Played")
	for i, h := range page.Items {
		r.writePlain("%d. %s - %s\n", i+1, h.Track.ArtistNames(), h.Track.Name)
	}
	return nil
}

// SpotifyPlaylists lists the user's playlists.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	svc, token, err := r.withSpotify(ctx)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	r.logger.Infof("listing spotify playlists with limit %v", limit)

	page, err := svc.UserPlaylists(ctx, token, limit, 0)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(page.Items, true)
	}

	r.writePlain("Found %d playlists:\n\n", len(page.Items))
	for i, p := range page.Items {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.Tracks.Total)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}
	return nil
}
