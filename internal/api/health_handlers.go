package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component statuses.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"catalog": s.checkCatalog(ctx),
		"index":   s.checkIndex(),
		"remote":  s.checkRemote(),
		"cache":   s.checkCache(),
	}

	overall := statusHealthy
	for name, c := range components {
		switch {
		case c.Status == statusUnhealthy && name == "catalog":
			overall = statusUnhealthy
		case c.Status != statusHealthy && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkCatalog verifies the local catalog is readable and not empty.
func (s *Server) checkCatalog(ctx context.Context) ComponentHealth {
	if s.services == nil || s.services.Catalog == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "catalog not configured"}
	}

	start := time.Now()
	count, err := s.services.Catalog.CountCards(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "catalog read failed",
		}
	}
	if count == 0 {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "catalog empty",
		}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: plural(count, "card"),
	}
}

// checkIndex verifies the name recovery index.
func (s *Server) checkIndex() ComponentHealth {
	if s.services == nil || s.services.Catalog == nil {
		return ComponentHealth{Status: statusDegraded, Message: "index not configured"}
	}

	start := time.Now()
	count, ok, err := s.services.Catalog.IndexedNames()
	latency := time.Since(start)

	switch {
	case !ok:
		return ComponentHealth{Status: statusDegraded, Message: "name recovery disabled"}
	case err != nil:
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: "index unreachable"}
	case count == 0:
		return ComponentHealth{Status: statusDegraded, Latency: latency.String(), Message: "index empty"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: plural(int(count), "name"),
	}
}

// checkRemote reports whether the remote fallback is configured. It does
// not call the remote service.
func (s *Server) checkRemote() ComponentHealth {
	if s.services == nil || s.services.Catalog == nil || !s.services.Catalog.RemoteEnabled() {
		return ComponentHealth{Status: statusHealthy, Message: "disabled"}
	}
	return ComponentHealth{Status: statusHealthy, Message: "enabled"}
}

func (s *Server) checkCache() ComponentHealth {
	if s.services == nil || s.services.Catalog == nil {
		return ComponentHealth{Status: statusDegraded, Message: "cache not configured"}
	}
	n := s.services.Catalog.CacheEntries()
	if n < 0 {
		return ComponentHealth{Status: statusDegraded, Message: "cache disabled"}
	}
	return ComponentHealth{Status: statusHealthy, Message: plural(n, "entry")}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if noun == "entry" {
		return strconv.Itoa(n) + " entries"
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
