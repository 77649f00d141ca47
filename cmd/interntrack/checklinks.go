package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/linkcheck"
	"github.com/ctsc/internship-tracker/internal/reconcile"
	"github.com/ctsc/internship-tracker/internal/storage"
	"github.com/ctsc/internship-tracker/internal/types"
)

var checkLinksCmd = &cobra.Command{
	Use:   "check-links",
	Short: "Probe apply URLs and update link health",
	Long: `Probe every open listing's apply URL, apply the outcomes to the
store's link health records, and close listings that failed twice in a
row.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := storage.AcquireRunLock(cfg.LockPath, "check-links"); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer storage.ReleaseRunLock(cfg.LockPath)

		store, err := storage.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		outcomes, err := linkcheck.New(cfg.LinkCheck).CheckAll(context.Background(), store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		now := time.Now().UTC()
		ids := make([]string, 0, len(outcomes))
		for id := range outcomes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			reconcile.RecordCheck(store, id, outcomes[id], now)
		}
		store.UpdatedAt = now

		if err := storage.Save(cfg.StorePath, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		counts := make(map[types.CheckOutcome]int)
		for _, o := range outcomes {
			counts[o]++
		}
		fmt.Printf("\nChecked %d listings: %s ok, %s not found, %s transient, %d unknown\n",
			len(outcomes),
			green(fmt.Sprintf("%d", counts[types.OutcomeOK])),
			red(fmt.Sprintf("%d", counts[types.OutcomeNotFound])),
			yellow(fmt.Sprintf("%d", counts[types.OutcomeTransientError])),
			counts[types.OutcomeUnknownError])
	},
}

func init() {
	rootCmd.AddCommand(checkLinksCmd)
}
