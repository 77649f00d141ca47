package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/render"
	"github.com/ctsc/internship-tracker/internal/storage"
)

var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Render the README listing tables from the store",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		store, err := storage.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := render.WriteFile(cfg.ReadmePath, store, time.Now().UTC()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendered %s\n", cfg.ReadmePath)
	},
}

func init() {
	rootCmd.AddCommand(readmeCmd)
}
