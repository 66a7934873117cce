// Package server provides HTTP routing, middleware, and the web handlers for the now-playing site.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Web Application
//
// [App] serves the polling site:
//
//	GET /                    → embedded now-playing page
//	GET /login               → 302 to the provider authorization URL
//	GET /callback            → code exchange, token persistence, 302 to /
//	GET /api/current-playing → guarded JSON snapshot for the polling page
//	GET /static/             → embedded CSS/JS assets
//
// State tokens issued by /login are single-use and expire after ten minutes.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the callback leg of the CLI authorization flow.
// It validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
package server
