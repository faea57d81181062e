package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/wonny/gedash/pkg/config"
	"github.com/wonny/gedash/pkg/logger"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the validation store connection",
	Long: `Connect to the configured database, ping it and read the validation
relation once.

This command:
- loads DB_DRIVER and DATABASE_URL (or DB_*) from config
- opens a connection and runs a health check
- shows connection pool statistics
- reads the validation relation and reports its size

Example:
  go run ./cmd/gedash test-db
  go run ./cmd/gedash test-db --config ./staging.env`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== gedash Database Connection Test ===")

	// Load configuration
	fmt.Fprintln(out, "Loading configuration...")
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Fprintf(out, "✅ Config loaded (ENV: %s, driver: %s)\n", cfg.Env, cfg.Database.Driver)
	fmt.Fprintf(out, "   DSN: %s\n", maskPassword(cfg.Database.Driver, cfg.Database.DSN()))
	fmt.Fprintf(out, "   Relation: %s.%s\n\n", cfg.Source.Schema, cfg.Source.Table)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create database connection
	fmt.Fprintln(out, "Connecting to database...")
	source, db, err := openSource(ctx, cfg, logger.Nop())
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	fmt.Fprintln(out, "✅ Database connection established")

	// Get health status
	fmt.Fprintln(out, "Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Fprintln(out, "✅ Health Check Results:")
	fmt.Fprintf(out, "   Healthy: %v\n", status.Healthy)
	fmt.Fprintf(out, "   Response Time: %v\n", status.ResponseTime)
	fmt.Fprintf(out, "   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	// Pool statistics
	if status.Stats != nil {
		fmt.Fprintln(out, "📊 Connection Pool Statistics:")
		fmt.Fprintf(out, "   Max Connections: %d\n", status.Stats.MaxConns)
		fmt.Fprintf(out, "   Total Connections: %d\n", status.Stats.TotalConns)
		fmt.Fprintf(out, "   Acquired Connections: %d\n", status.Stats.AcquiredConns)
		fmt.Fprintf(out, "   Idle Connections: %d\n", status.Stats.IdleConns)
		fmt.Fprintf(out, "   Acquire Count: %d\n", status.Stats.AcquireCount)
		fmt.Fprintf(out, "   Acquire Duration: %v\n\n", status.Stats.AcquireDuration)
	}

	// Read the relation once
	fmt.Fprintf(out, "Reading %s...\n", source.Relation())
	start := time.Now()
	records, err := source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to read validations: %w", err)
	}
	fmt.Fprintf(out, "✅ %d records read in %v\n", len(records), time.Since(start).Round(time.Millisecond))

	fmt.Fprintln(out, "\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a DSN for display
func maskPassword(driver, dsn string) string {
	if driver == config.DriverMySQL {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "***"
		}
		if mc.Passwd != "" {
			mc.Passwd = "***"
		}
		return mc.FormatDSN()
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// keyword/value form: host=... password=...
		fields := strings.Fields(dsn)
		for i, f := range fields {
			if strings.HasPrefix(f, "password=") {
				fields[i] = "password=***"
			}
		}
		return strings.Join(fields, " ")
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
