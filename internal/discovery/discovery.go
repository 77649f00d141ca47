// Package discovery collects raw internship listings from job board
// APIs, scraped career pages, monitored community trackers, and repo
// issue intake. Sources are independent: one failing source never blocks
// the others.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

// Source is one provider of raw listings.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]types.RawListing, error)
}

// Engine runs every configured source and merges their output.
type Engine struct {
	Sources []Source
	Filters config.Filters
	// DataDir receives a raw snapshot per run for debugging and replay.
	// Empty disables snapshots.
	DataDir string
}

// NewEngine builds the standard source set from config. Sources with no
// configured targets are omitted.
func NewEngine(cfg *config.Config, extra ...Source) *Engine {
	e := &Engine{Filters: cfg.Filters, DataDir: cfg.DataDir}
	if len(cfg.GreenhouseBoards) > 0 {
		e.Sources = append(e.Sources, NewGreenhouseSource(cfg.GreenhouseBoards))
	}
	if len(cfg.LeverBoards) > 0 {
		e.Sources = append(e.Sources, NewLeverSource(cfg.LeverBoards))
	}
	if len(cfg.AshbyBoards) > 0 {
		e.Sources = append(e.Sources, NewAshbySource(cfg.AshbyBoards))
	}
	if len(cfg.ScrapeSources) > 0 {
		e.Sources = append(e.Sources, NewScrapeSource(cfg.ScrapeSources, cfg.Filters, cfg.LinkCheck.PerDomainPerSecond))
	}
	if len(cfg.GitHubMonitors) > 0 {
		e.Sources = append(e.Sources, NewMonitorSource(cfg.GitHubMonitors, cfg.DataDir))
	}
	e.Sources = append(e.Sources, extra...)
	return e
}

// All runs every source concurrently, applies the keyword filters, and
// returns the merged results. Per-source errors are logged and counted
// but do not fail the run; All errors only when every source failed.
func (e *Engine) All(ctx context.Context) ([]types.RawListing, error) {
	if len(e.Sources) == 0 {
		log.Printf("[discovery] no sources configured")
		return nil, nil
	}

	var (
		mu      sync.Mutex
		merged  []types.RawListing
		failed  int
		g, gctx = errgroup.WithContext(ctx)
	)
	g.SetLimit(4)

	for _, src := range e.Sources {
		src := src
		g.Go(func() error {
			listings, err := src.Discover(gctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[discovery] source %s failed: %v", src.Name(), err)
				failed++
			}
			// Partial results from a failed source are still usable.
			merged = append(merged, listings...)
			log.Printf("[discovery] source %s returned %d listings", src.Name(), len(listings))
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(e.Sources) {
		return nil, fmt.Errorf("all %d discovery sources failed", failed)
	}

	filtered := e.filter(merged)
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Company != filtered[j].Company {
			return filtered[i].Company < filtered[j].Company
		}
		return filtered[i].Title < filtered[j].Title
	})

	if e.DataDir != "" && len(filtered) > 0 {
		if err := e.snapshot(filtered); err != nil {
			log.Printf("[discovery] snapshot failed: %v", err)
		}
	}
	return filtered, nil
}

// filter drops listings whose titles hit an exclude keyword or miss
// every include keyword. Monitor and intake rows were curated upstream
// and bypass the include requirement.
func (e *Engine) filter(in []types.RawListing) []types.RawListing {
	out := make([]types.RawListing, 0, len(in))
	for _, r := range in {
		lower := strings.ToLower(r.Title)
		if excluded(lower, e.Filters.KeywordsExclude) {
			continue
		}
		curated := r.Source == types.SourceGitHubMonitor || r.Source == types.SourceIssueIntake
		if !curated && !included(lower, e.Filters.KeywordsInclude) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func excluded(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func included(lower string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// snapshot writes the run's raw results to a timestamped file for later
// inspection.
func (e *Engine) snapshot(listings []types.RawListing) error {
	if err := os.MkdirAll(e.DataDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("raw_discovery_%s.json", time.Now().UTC().Format("20060102T150405Z"))
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(e.DataDir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	log.Printf("[discovery] wrote %d raw listings to %s", len(listings), path)
	return nil
}
