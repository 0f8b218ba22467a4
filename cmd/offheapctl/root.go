package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/offheap/config"
)

var (
	// Global flags
	configPath string
	capacity   string
	codecName  string
	logLevel   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "offheapctl",
	Short: "Exercise and inspect an off-heap object arena",
	Long: `offheapctl opens an off-heap allocator, runs a reproducible workload of
stores, removals, links and garbage collections against it, and reports the
resulting block layout.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&capacity, "capacity", "", "Arena capacity, e.g. 64MiB (overrides config)")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "", "Object codec, e.g. go-json+lz4 (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with command-line overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return config.Config{}, err
		}
	}

	if capacity != "" {
		size, err := config.ParseSize(capacity)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Capacity = size
	}
	if codecName != "" {
		cfg.Codec = codecName
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// printInfo prints an info message if not in quiet mode
func printInfo(cmd *cobra.Command, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}
