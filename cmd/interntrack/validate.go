package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/ai"
	"github.com/ctsc/internship-tracker/internal/discovery"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run discovery plus AI validation and print the candidates",
	Long: `Fetch raw listings and classify them with the AI validator, printing
the accepted candidates without touching the store. Useful for tuning
sources and the prompt.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		classifier, err := ai.NewClassifier(cfg.AI)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		raws, err := discovery.NewEngine(cfg).All(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		candidates, err := classifier.Validate(ctx, raws)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== %d of %d passed validation ===", len(candidates), len(raws))))
		for _, c := range candidates {
			fmt.Printf("  %s %s: %s\n", green("✓"), c.Company, c.Role)
			fmt.Printf("    %s\n", gray(fmt.Sprintf("%s | %s | %s", c.Category, c.Sponsorship, strings.Join(c.Locations, "; "))))
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
