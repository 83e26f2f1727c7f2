package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// HealthCheck checks one dependency of the service.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// MetricsHandler exposes Prometheus metrics and the health check.
type MetricsHandler struct {
	metrics http.Handler
	checks  []HealthCheck
}

// NewMetricsHandler constructs a metrics handler around a Prometheus HTTP handler.
func NewMetricsHandler(metrics http.Handler, checks ...HealthCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Health check
// @Description Pings every registered dependency. Responds 503 when any of them fails.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			components[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[check.Name] = "ok"
	}

	body := gin.H{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(components) > 0 {
		body["components"] = components
	}
	c.JSON(status, body)
}
