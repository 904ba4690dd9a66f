package handlers

import (
	"net/http"

	"github.com/ndewijer/portfolio-service/internal/api/response"
	"github.com/ndewijer/portfolio-service/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// Health reports liveness and store connectivity. No business logic runs.
//
// Endpoint: GET /health (also GET /)
// Response: 200 OK with model.HealthInfo
// Error: 503 Service Unavailable when the store does not answer
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	info := h.systemService.CheckHealth(r.Context())

	status := http.StatusOK
	if info.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	response.RespondJSON(w, status, info)
}

// VersionResponse represents the version check response
type VersionResponse struct {
	Version string `json:"version"`
}

// Version returns the build version.
//
// Endpoint: GET /version
// Response: 200 OK with VersionResponse
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	response.RespondJSON(w, http.StatusOK, VersionResponse{Version: h.systemService.CheckVersion()})
}
