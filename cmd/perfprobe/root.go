package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"perfprobe/pkg/config"
)

var defaultConfigPaths = []string{
	"configs/config.yaml",
	"./configs/config.yaml",
	"/etc/perfprobe/config.yaml",
	"config.yaml",
}

var (
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "perfprobe",
		Short: "Page-load performance measurement with a real Chromium browser",
		Long: `perfprobe loads a page in a fresh Chromium instance, captures Navigation
Timing, Resource Timing, paint entries, Largest Contentful Paint and
Cumulative Layout Shift, and reports them as one normalized metrics record.

Run it as an HTTP service with "serve" or measure a single page with "measure".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: search configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level from config")

	rootCmd.AddCommand(serveCmd, measureCmd)
}

// loadConfig loads --config when given, otherwise the first default path
// that exists, otherwise defaults.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, _, err = config.LoadFirst(defaultConfigPaths...)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}
