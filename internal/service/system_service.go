package service

import (
	"context"
	"time"

	"github.com/ndewijer/portfolio-service/internal/model"
	"github.com/ndewijer/portfolio-service/internal/version"
)

// Pinger is implemented by every portfolio store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceName is reported by the health endpoint.
const ServiceName = "portfolio-service"

// SystemService handles system-related operations
type SystemService struct {
	store   Pinger
	timeout time.Duration
}

// NewSystemService creates a new SystemService
func NewSystemService(store Pinger) *SystemService {
	return &SystemService{
		store:   store,
		timeout: 2 * time.Second,
	}
}

// CheckHealth reports liveness. The store is pinged but never read.
func (s *SystemService) CheckHealth(ctx context.Context) model.HealthInfo {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info := model.HealthInfo{
		Service: ServiceName,
		Status:  "healthy",
		Version: version.Version,
		Store:   "connected",
	}
	if err := s.store.Ping(ctx); err != nil {
		info.Status = "unhealthy"
		info.Store = "disconnected"
		info.Error = err.Error()
	}
	return info
}

// CheckVersion returns the build version.
func (s *SystemService) CheckVersion() string {
	return version.Version
}
