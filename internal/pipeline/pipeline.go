// Package pipeline sequences one full run: discover, validate,
// reconcile, render, notify. Steps are isolated; a step failure skips
// its output but never loses the progress earlier steps committed.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ctsc/internship-tracker/internal/ai"
	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/discovery"
	"github.com/ctsc/internship-tracker/internal/github"
	"github.com/ctsc/internship-tracker/internal/linkcheck"
	"github.com/ctsc/internship-tracker/internal/notify"
	"github.com/ctsc/internship-tracker/internal/reconcile"
	"github.com/ctsc/internship-tracker/internal/render"
	"github.com/ctsc/internship-tracker/internal/storage"
	"github.com/ctsc/internship-tracker/internal/types"
)

// Discoverer produces the run's raw listings.
type Discoverer interface {
	All(ctx context.Context) ([]types.RawListing, error)
}

// LinkChecker probes active listings and resolves outcomes.
type LinkChecker interface {
	CheckAll(ctx context.Context, store *types.Store) (map[string]types.CheckOutcome, error)
}

// Runner owns the wiring for one pipeline. Fields are exported so
// callers and tests can substitute individual stages.
type Runner struct {
	Cfg        *config.Config
	Discoverer Discoverer
	Validator  ai.Validator
	Checker    LinkChecker
	Reconciler *reconcile.Reconciler
	Senders    []notify.Sender
	Intake     *github.IntakeSource
}

// New wires a runner with the production stages. The AI validator is
// required; construct it first so a missing API key fails before any
// network work starts.
func New(cfg *config.Config, validator ai.Validator) (*Runner, error) {
	reconciler, err := reconcile.New(cfg.Match, cfg.Archival)
	if err != nil {
		return nil, err
	}

	var extra []discovery.Source
	var intake *github.IntakeSource
	if cfg.GitHub.Repo != "" {
		intake = github.NewIntakeSource(github.NewClient(cfg.GitHub))
		extra = append(extra, intake)
	}

	return &Runner{
		Cfg:        cfg,
		Discoverer: discovery.NewEngine(cfg, extra...),
		Validator:  validator,
		Checker:    linkcheck.New(cfg.LinkCheck),
		Reconciler: reconciler,
		Senders:    notify.Senders(cfg),
		Intake:     intake,
	}, nil
}

// Summary reports what one run did.
type Summary struct {
	RunID      string
	Started    time.Time
	Duration   time.Duration
	Discovered int
	Validated  int
	Accepted   int
	Rejected   int
	Closed     []string
	Archived   []string
	StepErrors map[string]error
}

// Run executes one pipeline pass. The store is loaded under the run
// lock and saved before the lock releases, even when steps fail along
// the way: whatever reconciliation happened is never thrown away.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		RunID:      uuid.NewString()[:8],
		Started:    started,
		StepErrors: make(map[string]error),
	}
	log.Printf("[pipeline] run %s starting", summary.RunID)

	if err := storage.AcquireRunLock(r.Cfg.LockPath, "pipeline-"+summary.RunID); err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer func() {
		if err := storage.ReleaseRunLock(r.Cfg.LockPath); err != nil {
			log.Printf("[pipeline] failed to release run lock: %v", err)
		}
	}()

	store, err := storage.Load(r.Cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	// Discovery and validation produce the candidate batch. Either
	// failing leaves an empty batch; link checking and archival still
	// run so dead listings keep aging out.
	var raws []types.RawListing
	r.step(summary, "discover", func() error {
		var err error
		raws, err = r.Discoverer.All(ctx)
		summary.Discovered = len(raws)
		return err
	})

	var candidates []*types.Listing
	if len(raws) > 0 {
		r.step(summary, "validate", func() error {
			var err error
			candidates, err = r.Validator.Validate(ctx, raws)
			summary.Validated = len(candidates)
			return err
		})
	}

	var outcomes map[string]types.CheckOutcome
	r.step(summary, "check-links", func() error {
		var err error
		outcomes, err = r.Checker.CheckAll(ctx, store)
		return err
	})

	closedBefore := closedIDs(store)
	result := r.Reconciler.Run(store, candidates, outcomes, time.Now().UTC())
	summary.Accepted = len(result.Dedupe.Accepted)
	summary.Rejected = len(result.Dedupe.Rejected)
	summary.Archived = result.Archived
	summary.Closed = newlyClosed(store, closedBefore)

	if err := storage.Save(r.Cfg.StorePath, store); err != nil {
		return summary, fmt.Errorf("failed to save store: %w", err)
	}

	r.step(summary, "render", func() error {
		return render.WriteFile(r.Cfg.ReadmePath, store, time.Now().UTC())
	})

	r.step(summary, "notify", func() error {
		notify.Broadcast(r.Senders, notify.Digest{
			RunID:    summary.RunID,
			When:     time.Now().UTC(),
			Added:    result.Dedupe.Accepted,
			Closed:   summary.Closed,
			Archived: summary.Archived,
		})
		return nil
	})

	// Intake issues close only after their submissions are safely
	// persisted.
	if r.Intake != nil {
		r.step(summary, "resolve-intake", func() error {
			r.Intake.Resolve(ctx)
			return nil
		})
	}

	summary.Duration = time.Since(started)
	log.Printf("[pipeline] run %s finished in %v: %d discovered, %d accepted, %d closed, %d archived, %d step error(s)",
		summary.RunID, summary.Duration.Round(time.Millisecond), summary.Discovered,
		summary.Accepted, len(summary.Closed), len(summary.Archived), len(summary.StepErrors))
	return summary, nil
}

// step runs one stage, recording rather than propagating its error.
func (r *Runner) step(summary *Summary, name string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("[pipeline] step %s failed: %v", name, err)
		summary.StepErrors[name] = err
	}
}

func closedIDs(store *types.Store) map[string]bool {
	out := make(map[string]bool)
	for id, l := range store.Active {
		if l.Status == types.StatusClosed {
			out[id] = true
		}
	}
	return out
}

// newlyClosed returns active listings that flipped to closed during this
// run. Listings archived in the same run were closed earlier and do not
// reappear here.
func newlyClosed(store *types.Store, before map[string]bool) []string {
	var out []string
	for id, l := range store.Active {
		if l.Status == types.StatusClosed && !before[id] {
			out = append(out, id)
		}
	}
	return out
}
