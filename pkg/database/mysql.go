package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// registers the "mysql" database/sql driver
	_ "github.com/go-sql-driver/mysql"

	"github.com/wonny/gedash/pkg/config"
)

// MySQL wraps a database/sql handle for stores kept in MySQL
type MySQL struct {
	DB *sql.DB
}

// NewMySQL opens a MySQL handle with the configured pool limits and pings it
func NewMySQL(ctx context.Context, cfg *config.Config) (*MySQL, error) {
	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.Database.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	return &MySQL{DB: db}, nil
}

// Close closes the handle
func (m *MySQL) Close() {
	if m.DB != nil {
		_ = m.DB.Close()
	}
}

// HealthCheck pings the server and reports database/sql pool statistics
func (m *MySQL) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Driver:    config.DriverMySQL,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := m.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	s := m.DB.Stats()
	status.Stats = &PoolStats{
		AcquireCount:    s.WaitCount,
		AcquireDuration: s.WaitDuration,
		AcquiredConns:   int32(s.InUse),
		IdleConns:       int32(s.Idle),
		MaxConns:        int32(s.MaxOpenConnections),
		TotalConns:      int32(s.OpenConnections),
	}
	status.Healthy = true
	return status, nil
}
