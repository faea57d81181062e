package commands

import (
	"context"
	"fmt"

	"github.com/wonny/gedash/internal/validation"
	"github.com/wonny/gedash/pkg/config"
	"github.com/wonny/gedash/pkg/database"
	"github.com/wonny/gedash/pkg/logger"
)

// openSource connects to the configured store and returns the validation
// source together with the connection for health checks and closing
func openSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (validation.Source, database.Checker, error) {
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		db, err := database.NewMySQL(ctx, cfg)
		if err != nil {
			return nil, nil, &validation.ConnectionError{Op: "connect", Err: err}
		}
		log.WithField("driver", cfg.Database.Driver).Info("Connected to database")
		return validation.NewMySQLRepository(db.DB, cfg.Source.Schema, cfg.Source.Table), db, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, nil, &validation.ConnectionError{Op: "connect", Err: err}
		}
		log.WithField("driver", cfg.Database.Driver).Info("Connected to database")
		return validation.NewRepository(db.Pool, cfg.Source.Schema, cfg.Source.Table), db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.Database.Driver)
	}
}
