package http

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

const checkTimeout = 5 * time.Second

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Check probes one dependency; a nil error means healthy
type Check struct {
	Name string
	// Critical failures make the whole service unhealthy, others only degrade it
	Critical bool
	Probe    func(ctx context.Context) error
}

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checks []Check
	logger zerolog.Logger
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(checks []Check, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger.With().Str("handler", "health").Logger(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(ctx *fasthttp.RequestCtx) {
	checkCtx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	components, status := h.run(checkCtx)

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	} else if status == HealthStatusDegraded {
		logEvent = h.logger.Info()
	}
	logEvent.
		Str("status", string(status)).
		Interface("components", components).
		Msg("Health check completed")

	httputil.WriteHealthResponse(ctx, HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}, status != HealthStatusUnhealthy)
}

func (h *HealthHandler) run(ctx context.Context) ([]ComponentHealth, HealthStatus) {
	components := make([]ComponentHealth, 0, len(h.checks))
	status := HealthStatusHealthy

	for _, check := range h.checks {
		component := ComponentHealth{Name: check.Name, Healthy: true}
		if err := check.Probe(ctx); err != nil {
			component.Healthy = false
			component.Message = err.Error()

			if check.Critical {
				status = HealthStatusUnhealthy
			} else if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
		}
		components = append(components, component)
	}

	return components, status
}
