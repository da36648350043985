// Package server hosts the gin engine behind an h2c handler with a shared
// net/http middleware chain, lifecycle hooks and the /health and /info
// endpoints.
//
// Middleware (server/middleware) runs outside gin: Recovery, RequestID,
// CORS, BodySizeLimit and RequestLogger wrap every request. RateLimit and
// Metrics are gin handlers because they key on the matched route.
package server
