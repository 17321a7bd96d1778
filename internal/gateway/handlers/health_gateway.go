package handlers

import (
	"net/http"
	"time"

	"restro-system/internal/gateway/clients"
	"restro-system/internal/health"

	"github.com/gin-gonic/gin"
)

type HealthHTTPHandler struct {
	monitor *health.Monitor
	grpc    *clients.HealthClient
}

// NewHealthHTTPHandler wires the HTTP health endpoints. grpcClient may be nil,
// in which case the detailed report omits the gRPC status.
func NewHealthHTTPHandler(monitor *health.Monitor, grpcClient *clients.HealthClient) *HealthHTTPHandler {
	return &HealthHTTPHandler{monitor: monitor, grpc: grpcClient}
}

func (h *HealthHTTPHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/health/detailed", h.DetailedHealth)
}

func (h *HealthHTTPHandler) Health(c *gin.Context) {
	status := "healthy"
	httpStatus := http.StatusOK

	unavailable := []string{}
	for name, err := range h.monitor.Results() {
		if err != nil {
			unavailable = append(unavailable, name)
		}
	}
	if len(unavailable) > 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":                   status,
		"message":                  "Server is running",
		"unavailable_dependencies": unavailable,
		"timestamp":                time.Now(),
	})
}

func (h *HealthHTTPHandler) DetailedHealth(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	overall := "healthy"
	dependencies := map[string]interface{}{}
	for name, err := range h.monitor.CheckAll(ctx) {
		dependencies[name] = dependencyHealth(err)
		if err != nil {
			overall = "degraded"
		}
	}

	if h.grpc != nil {
		st, err := h.grpc.Status(ctx, health.ServiceName)
		entry := dependencyHealth(err)
		entry["serving_status"] = st
		dependencies["grpc"] = entry
		if err != nil || st != "SERVING" {
			overall = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"overall_status": overall,
		"dependencies":   dependencies,
		"timestamp":      time.Now(),
	})
}

func dependencyHealth(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Dependency is responding",
	}
}
