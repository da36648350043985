package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/transcribe/logger"
)

var quietPaths = map[string]bool{"/health": true, "/info": true}

// RequestLogger logs each request at a level chosen by its status code.
// Ops endpoints are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			d := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, d.Milliseconds(),
			)
			if d > 500*time.Millisecond {
				fields["slow"] = true
			}
			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("request completed", fields)
			case sw.status >= 400:
				l.Warn("request completed", fields)
			default:
				l.Debug("request completed", fields)
			}
		})
	}
}
