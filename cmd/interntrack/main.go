package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/ai"
	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/pipeline"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "interntrack",
	Short: "Internship listing tracker",
	Long: `interntrack discovers internship listings from job boards, scraped
career pages, community trackers, and repo issues, validates them with
AI, deduplicates them against the store, watches their apply links, and
renders the public README.`,
	SilenceUsage: true,
	Version:      version,
}

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "interntrack.yaml", "path to config file")
}

// loadConfig reads the configured YAML file, exiting on error so every
// subcommand fails the same way on a broken config.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newRunner builds the production pipeline, including the AI validator.
func newRunner(cfg *config.Config) (*pipeline.Runner, error) {
	classifier, err := ai.NewClassifier(cfg.AI)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, classifier)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
