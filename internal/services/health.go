package services

import (
	"context"
	"time"
)

// HealthStatus is the liveness payload
type HealthStatus struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Strategy string    `json:"strategy"`
}

// ReadinessStatus reports whether the store answers
type ReadinessStatus struct {
	Success  bool   `json:"success"`
	Database string `json:"database"`
}

// Pinger is satisfied by the contact repositories
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService implements the health service
type HealthService struct {
	strategy string
	store    Pinger
	now      func() time.Time
}

// NewHealthService creates a new health service
func NewHealthService(strategy string, store Pinger) *HealthService {
	return &HealthService{strategy: strategy, store: store, now: time.Now}
}

// Check implements the liveness probe. It never touches collaborators.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	return &HealthStatus{
		Success:  true,
		Message:  "AlgoForce API is running",
		Time:     s.now().UTC(),
		Strategy: s.strategy,
	}
}

// Ready pings the contact store
func (s *HealthService) Ready(ctx context.Context) (*ReadinessStatus, error) {
	if err := s.store.Ping(ctx); err != nil {
		return &ReadinessStatus{Success: false, Database: "unavailable"}, err
	}
	return &ReadinessStatus{Success: true, Database: "ok"}, nil
}
