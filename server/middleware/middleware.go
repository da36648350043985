package middleware

import (
	"net/http"
)

// Middleware is the standard net/http decorator. It wraps every route,
// including handlers mounted beside gin.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware; the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
