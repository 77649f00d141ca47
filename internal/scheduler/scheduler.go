// Package scheduler wires up the cron job that periodically triggers a
// full pipeline run in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one pipeline pass.
type RunFunc func(ctx context.Context) error

// Scheduler wraps robfig/cron and manages the run loop.
type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
	spec string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(run RunFunc, intervalHours int) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		run:  run,
		spec: fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. One run fires
// immediately so a fresh deployment populates its listings without
// waiting for the first tick. Overlap is prevented by the run lock, not
// the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] cron started, spec: %s", s.spec)

	go s.runOnce(ctx)
	return nil
}

// Stop shuts the scheduler down and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] cron stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Println("[scheduler] run starting")
	if err := s.run(ctx); err != nil {
		log.Printf("[scheduler] run failed: %v", err)
		return
	}
	log.Println("[scheduler] run complete")
}
