package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/version"
)

var startTime = time.Now()

// InfoResponse is the /info payload.
type InfoResponse struct {
	Service    string       `json:"service"`
	Build      version.Info `json:"build"`
	Uptime     string       `json:"uptime"`
	Goroutines int          `json:"goroutines"`
	Timestamp  string       `json:"timestamp"`
}

// Info reports build metadata and process uptime.
func Info(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, InfoResponse{
			Service:    service,
			Build:      version.Get(),
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
	}
}
