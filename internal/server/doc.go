// Package server exposes the dashboard over HTTP with echo.
//
// # Routes
//
// The JSON API lives under /api: habits and todo CRUD, the cached news and quote proxies, the
// widget configuration, and the Spotify endpoints. "/" renders the dashboard page through the
// [echo.Renderer] supplied in [Options].
//
// # Sessions
//
// Signing in with Spotify stores the token state server-side and hands the browser a signed
// session cookie. The session middleware resolves the cookie on every /api/spotify and /api/auth
// request, runs the token through [auth.Lifecycle.Hydrate], and persists the result when a refresh
// changed it. Spotify handlers refuse to run when the token carries the refresh error marker.
//
// # Loopback sign-in
//
// [OAuthCallback] serves the same callback path on a short-lived server so the CLI can complete
// the authorization code flow without the dashboard running.
package server
