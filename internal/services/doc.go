// Package services implements the upstream clients used by the dashboard cards.
//
// # Content Services
//
// [NewsService] and [QuoteService] proxy third-party content APIs. Successful responses are kept in a
// [Cache] for the card's configured window, so repeated page loads inside the window make no outbound
// call. Failed responses are never cached.
//
// Both share one [APIService], whose [rate.Limiter] bounds the outbound request rate.
//
// # Caches
//
// Two [Cache] implementations exist: [repositories.ContentCache] stores entries in the application
// database and [RedisCache] stores them in redis. Which one is used is decided by the cache.backend
// setting.
//
// # Spotify
//
// [SpotifyService] owns the OAuth2 configuration (authorize URL, code exchange) and calls the Web API
// with an access token supplied per call. It never refreshes tokens itself; that is the job of
// auth.Lifecycle.
//
// # Error Handling
//
//   - [shared.ErrNotAuthenticated] : empty access token
//   - [shared.ErrTokenExpired] : Spotify answered 401
//   - [shared.ErrAPIRequest] : any other non-2xx upstream status
//   - [shared.ErrInvalidInput] : bad time range, limit, or offset
package services
