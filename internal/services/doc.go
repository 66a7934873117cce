// Package services implements the [Provider] interface for Spotify.
//
// # Provider Interface
//
// A provider exposes the four operations the rest of the application needs:
// building the authorization URL, exchanging an authorization code, probing
// an access token, and fetching the normalized now-playing snapshot.
//
// # Spotify Implementation
//
// [SpotifyService] drives the authorization-code exchange through
// [oauth2.Config], which performs the form-encoded POST with HTTP Basic
// auth the accounts service expects.
//
// API calls go through a shared doRequest helper carrying an explicit
// timeout and a [rate.Limiter], so a misbehaving polling client cannot
// hammer the provider.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrTokenExpired] : provider returned 401, refresh is warranted
//   - [shared.ErrAuthFailed] : code exchange rejected, with provider payload
//   - [shared.ErrAPIRequest] : any other non-2xx response
//
// Transport failures are wrapped but never converted to expiry, so the
// access guard never refreshes on a network blip.
package services
