package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run discovery sources and print the raw results",
	Long: `Fetch raw listings from every configured source without touching
the store. A raw snapshot is written to the data directory for replay.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		engine := discovery.NewEngine(cfg)
		raws, err := engine.All(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== %d raw listings ===", len(raws))))
		for _, r := range raws {
			fmt.Printf("  %s: %s\n", r.Company, r.Title)
			fmt.Printf("    %s %s\n", gray(string(r.Source)), gray(r.URL))
		}
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
