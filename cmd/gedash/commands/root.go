package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/gedash/pkg/config"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gedash",
	Short: "Great Expectations validation dashboard",
	Long: `gedash reads the validation results a Great Expectations deployment
stores in a relational table and presents them as a dashboard.

Usage:
  go run ./cmd/gedash [command]

Examples:
  go run ./cmd/gedash api
  go run ./cmd/gedash report latest
  go run ./cmd/gedash report records --schema sales --success false
  go run ./cmd/gedash test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnvFile(configFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
