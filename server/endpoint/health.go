package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/observability"
)

// HealthChecker returns the health of registered components.
type HealthChecker func(ctx context.Context) []component.Health

const healthTimeout = 3 * time.Second

// Health aggregates component health. A down component yields 503.
func Health(service, version string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := observability.NewServiceHealth(service, version)
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			for _, h := range checker(ctx) {
				report.AddComponent(observability.Health{
					Name:    h.Name,
					Status:  toServiceStatus(h.Status),
					Message: h.Message,
				})
			}
		}
		status := http.StatusOK
		if report.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}

func toServiceStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusHealthy:
		return observability.HealthStatusUp
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusDown
	}
}
