package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/storage"
	"github.com/ctsc/internship-tracker/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and link health",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store, err := storage.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== interntrack store ==="))

		var open, closed, unknown int
		byCategory := make(map[types.Category]int)
		for _, l := range store.Active {
			switch l.Status {
			case types.StatusOpen:
				open++
				byCategory[l.Category]++
			case types.StatusClosed:
				closed++
			default:
				unknown++
			}
		}

		fmt.Printf("Active: %s open, %s closed (awaiting archive), %s unknown\n",
			green(fmt.Sprintf("%d", open)), gray(fmt.Sprintf("%d", closed)), yellow(fmt.Sprintf("%d", unknown)))
		fmt.Printf("Archived: %d\n\n", len(store.Archived))

		if len(byCategory) > 0 {
			fmt.Println("Open by category:")
			cats := make([]string, 0, len(byCategory))
			for c := range byCategory {
				cats = append(cats, string(c))
			}
			sort.Strings(cats)
			for _, c := range cats {
				fmt.Printf("  %-22s %d\n", c, byCategory[types.Category(c)])
			}
			fmt.Println()
		}

		var failing int
		for id, rec := range store.LinkHealth {
			if rec.ConsecutiveFailures > 0 {
				if failing == 0 {
					fmt.Println("Listings with failing links:")
				}
				failing++
				l := store.Active[id]
				fmt.Printf("  %s %s: %s (%d consecutive failure(s))\n",
					red("✗"), l.Company, l.Role, rec.ConsecutiveFailures)
			}
		}
		if failing == 0 {
			fmt.Printf("Link health: %s\n", green("all passing"))
		}

		if !store.UpdatedAt.IsZero() {
			fmt.Printf("\nLast updated: %s\n", store.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
