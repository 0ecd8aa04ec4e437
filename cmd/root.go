// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"grebe/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagLanguage  string
	flagLimit     int
	flagJSON      bool
	flagDebug     bool
	flagNoHistory bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "grebe <url>",
	Short: "Resolve streaming site URLs into playable stream lists",
	Long: `Grebe resolves a supported provider URL into a normalized media
descriptor: title, playable format variants and subtitle tracks.
Listing URLs (categories, topics, playlists) are walked lazily and
yield one result per item.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	RunE:              extractRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Subtitle language to keep (default: all)")
	rootCmd.PersistentFlags().IntVar(&flagLimit, "limit", 0, "Stop after N items from a listing URL (0 = all)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record extractions")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagLanguage != "" {
		cfg.SubsLanguage = flagLanguage
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagNoHistory {
		cfg.History = false
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logrus.SetOutput(os.Stderr)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grebe %s\n", Version)
	},
}
