package database

import (
	"context"
	"time"
)

// Checker is implemented by every store connection the service can hold
type Checker interface {
	HealthCheck(ctx context.Context) (*HealthStatus, error)
	Close()
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Driver       string        `json:"driver"`
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        *PoolStats    `json:"stats,omitempty"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquireCount    int64         `json:"acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	TotalConns      int32         `json:"total_conns"`
}
