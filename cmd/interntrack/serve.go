package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctsc/internship-tracker/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on a schedule until interrupted",
	Long: `Start the cron loop: one pipeline pass immediately, then one every
schedule_every_hours. SIGINT or SIGTERM stops the loop after the current
run finishes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		runner, err := newRunner(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sched := scheduler.New(func(ctx context.Context) error {
			_, err := runner.Run(ctx)
			return err
		}, cfg.ScheduleEvery)

		if err := sched.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("[serve] received %v, shutting down", sig)

		cancel()
		sched.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
