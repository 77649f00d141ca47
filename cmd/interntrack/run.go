package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline pass",
	Long: `Run discovery, AI validation, deduplication, link checking,
archival, README rendering, and notifications once, then exit.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		runner, err := newRunner(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		summary, err := runner.Run(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\nRun %s finished in %v\n", summary.RunID, summary.Duration.Round(time.Millisecond))
		fmt.Printf("  Discovered: %d\n", summary.Discovered)
		fmt.Printf("  Validated:  %d\n", summary.Validated)
		fmt.Printf("  Accepted:   %s\n", green(fmt.Sprintf("%d", summary.Accepted)))
		fmt.Printf("  Rejected:   %d\n", summary.Rejected)
		fmt.Printf("  Closed:     %d\n", len(summary.Closed))
		fmt.Printf("  Archived:   %d\n", len(summary.Archived))

		if len(summary.StepErrors) > 0 {
			fmt.Printf("\n%s\n", red("Step errors:"))
			for step, err := range summary.StepErrors {
				fmt.Printf("  %s: %v\n", step, err)
			}
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
