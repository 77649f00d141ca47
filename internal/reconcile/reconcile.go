// Package reconcile implements the listing lifecycle reconciler: the
// dedup engine, the link-health debounce, and the archival sweep,
// sequenced once per scheduled run over an in-memory store snapshot.
package reconcile

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ctsc/internship-tracker/internal/match"
	"github.com/ctsc/internship-tracker/internal/types"
)

// Reconciler sequences Dedupe → RecordCheck → Sweep against a store.
// Persistence is the caller's boundary: the reconciler only mutates the
// in-memory snapshot it is handed.
type Reconciler struct {
	matcher  *match.Matcher
	archival ArchivalConfig
}

// New creates a Reconciler after validating both configs.
func New(matchCfg match.Config, archival ArchivalConfig) (*Reconciler, error) {
	if err := matchCfg.Validate(); err != nil {
		return nil, fmt.Errorf("match config: %w", err)
	}
	if err := archival.Validate(); err != nil {
		return nil, fmt.Errorf("archival config: %w", err)
	}
	return &Reconciler{matcher: match.New(matchCfg), archival: archival}, nil
}

// Result summarizes one reconciliation run.
type Result struct {
	Dedupe        DedupeResult
	ChecksApplied int
	Archived      []string
}

// Run executes one full reconciliation: ingest the candidate batch,
// apply the externally-resolved link-check outcomes, then sweep.
//
// Every rejection is logged with its reason. A bad outcome for one
// listing never blocks the rest: RecordCheck isolates per listing, and
// outcomes for ids the earlier stages removed are ignored.
func (r *Reconciler) Run(store *types.Store, candidates []*types.Listing, outcomes map[string]types.CheckOutcome, now time.Time) Result {
	var result Result

	result.Dedupe = Dedupe(store, candidates, r.matcher, now)
	for _, rej := range result.Dedupe.Rejected {
		logRejection(rej)
	}
	log.Printf("[reconcile] dedupe: %d candidate(s), %d accepted, %d rejected",
		len(candidates), len(result.Dedupe.Accepted), len(result.Dedupe.Rejected))

	// Sorted order keeps logs and streak updates deterministic.
	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		RecordCheck(store, id, outcomes[id], now)
		result.ChecksApplied++
	}

	result.Archived = Sweep(store, r.archival, now)

	store.UpdatedAt = now
	return result
}

func logRejection(rej Rejection) {
	switch rej.Reason {
	case ReasonFuzzyDuplicate, ReasonURLDuplicate:
		log.Printf("[reconcile] rejected (%s / %s): %s of %s",
			rej.Listing.Company, rej.Listing.Role, rej.Reason, shortID(rej.MatchedID))
	case ReasonInvalidCandidate:
		log.Printf("[reconcile] rejected (%s / %s): %s: %s",
			rej.Listing.Company, rej.Listing.Role, rej.Reason, rej.Detail)
	default:
		log.Printf("[reconcile] rejected (%s / %s): %s",
			rej.Listing.Company, rej.Listing.Role, rej.Reason)
	}
}
