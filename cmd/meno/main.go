package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meno/internal/config"
	"meno/internal/log"
)

// Version is set via ldflags during build.
var Version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "meno",
	Short:         "Meno social backend",
	Long:          `Meno serves the REST API, chat and notification websockets, and the story TTL sweeper.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $MENO_CONFIG or config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

// loadConfig reads the config file and initialises the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	return cfg, nil
}
