// Package component manages the lifecycle of the service's long-lived parts:
// the HTTP server, the session store backend, the event hub and the
// transcript archive. Components start in registration order and stop in
// reverse.
package component
