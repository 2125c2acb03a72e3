// Package auth keeps a signed-in browser's Spotify credentials usable.
//
// # Token Lifecycle
//
// [Lifecycle.Hydrate] runs once per authenticated request and moves a [models.TokenState] through three states:
//   - Fresh: sign-in just completed; the state is built from the authorization result and the expiry check is skipped
//   - Valid: the access token is unexpired and returned unchanged without any network call
//   - Expired: the refresh token is exchanged at the provider's token endpoint using HTTP basic client authentication
//
// A failed refresh never returns an error. The previous state comes back with [models.RefreshAccessTokenError] set,
// and callers must treat it as signed out. There is no retry and no backoff.
//
// # Session Cookies
//
// [SessionManager] signs an HS256 JWT whose subject is the server-side session id. Token state never leaves the server.
package auth
