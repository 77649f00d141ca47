package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/reconcile"
	"github.com/ctsc/internship-tracker/internal/storage"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Sweep expired listings into the archive",
	Long: `Move listings closed longer than the retention window, or older
than the maximum age, from the active set to the archive.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		if err := storage.AcquireRunLock(cfg.LockPath, "archive"); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer storage.ReleaseRunLock(cfg.LockPath)

		store, err := storage.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		now := time.Now().UTC()
		archived := reconcile.Sweep(store, cfg.Archival, now)
		store.UpdatedAt = now

		if err := storage.Save(cfg.StorePath, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		if len(archived) == 0 {
			fmt.Println("Nothing to archive")
			return
		}
		fmt.Printf("Archived %d listing(s):\n", len(archived))
		for _, id := range archived {
			l := store.Archived[id]
			fmt.Printf("  %s: %s %s\n", l.Company, l.Role, gray(id[:12]))
		}
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
