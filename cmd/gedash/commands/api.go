package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/gedash/internal/api"
	"github.com/wonny/gedash/internal/api/handlers"
	"github.com/wonny/gedash/internal/dashboard"
	"github.com/wonny/gedash/internal/snapshot"
	"github.com/wonny/gedash/pkg/logger"
	"github.com/wonny/gedash/pkg/metrics"
	"github.com/wonny/gedash/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the dashboard server",
	Long: `Start the HTTP server with the HTML dashboard and the JSON API.

The validation relation is read on the first request and kept in memory
until POST /api/v1/reload.

Endpoints:
  GET  /                                 - HTML dashboard
  GET  /health                           - Health check
  GET  /health/db                        - Database health
  GET  /api/v1/views/latest-failures     - Latest failed validation per table
  GET  /api/v1/views/daily-success       - Success rate per day
  GET  /api/v1/views/top-failing?n=10    - Top failing tables and monthly breakdown
  GET  /api/v1/records                   - Filtered raw records
  GET  /api/v1/records/export.xlsx       - Filtered raw records as xlsx
  GET  /api/v1/filters/options           - Filter choices
  POST /api/v1/reload                    - Re-read the validation relation
  GET  /metrics                          - Prometheus metrics

Example:
  go run ./cmd/gedash api
  go run ./cmd/gedash api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiPreload bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
	apiCmd.Flags().BoolVar(&apiPreload, "preload", false, "read the validation relation before serving")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"driver":   cfg.Database.Driver,
		"relation": cfg.Source.Schema + "." + cfg.Source.Table,
	}).Info("Initializing API server")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 3. Connect to database
	source, db, err := openSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 4. Connect to Redis (optional)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rc.Close()
	if !rc.Enabled() {
		log.Info("Redis disabled, reload limit is enforced per process")
	}

	// 5. Dashboard layout
	layout, err := dashboard.LoadLayout(cfg.LayoutFile)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}
	renderer, err := dashboard.NewRenderer(layout)
	if err != nil {
		return err
	}

	// 6. Cached relation
	m := metrics.New()
	store := snapshot.NewStore(source, m, log)
	if apiPreload {
		if _, err := store.Get(ctx); err != nil {
			return fmt.Errorf("preload: %w", err)
		}
	}

	// 7. Create handlers
	limiter := redis.NewRateLimiter(rc, "gedash")
	dashHandler := handlers.NewDashboardHandler(store, renderer, limiter, redis.ReloadRateLimit(cfg), m, log)
	healthHandler := handlers.NewHealthHandler(db)

	// 8. Create router and server
	router := api.NewRouter(cfg, dashHandler, healthHandler, m, log)
	server := api.New(cfg, log, router)

	// 9. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Dashboard running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
