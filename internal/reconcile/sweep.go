package reconcile

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ctsc/internship-tracker/internal/types"
)

// ArchivalConfig holds the retention windows for the archival sweep.
type ArchivalConfig struct {
	// ClosedRetentionDays is how long a closed listing stays in the
	// active set before moving to the archive. Strictly greater-than:
	// closed exactly this many days ago is kept. Default: 7.
	ClosedRetentionDays int `yaml:"closed_retention_days"`

	// MaxListingAgeDays archives any listing older than this regardless
	// of status, so stale entries cannot linger indefinitely.
	// Default: 120.
	MaxListingAgeDays int `yaml:"max_listing_age_days"`
}

// DefaultArchivalConfig returns the standard retention windows.
func DefaultArchivalConfig() ArchivalConfig {
	return ArchivalConfig{
		ClosedRetentionDays: 7,
		MaxListingAgeDays:   120,
	}
}

// Validate checks if the configuration has valid values
func (c ArchivalConfig) Validate() error {
	if c.ClosedRetentionDays < 0 {
		return fmt.Errorf("closed_retention_days cannot be negative (got %d)", c.ClosedRetentionDays)
	}
	if c.MaxListingAgeDays < 1 {
		return fmt.Errorf("max_listing_age_days must be positive (got %d)", c.MaxListingAgeDays)
	}
	return nil
}

// Sweep moves eligible listings from the active set to the archive and
// returns the moved ids in sorted order.
//
// A listing is archived when it has been closed for strictly more than
// the closed-retention window, or when it was added strictly more than
// the max-age window ago regardless of status. Archival is one-way: the
// listing leaves the active set and its link-health record is dropped;
// no further checks are needed. Running the sweep twice with the same
// today moves nothing the second time.
func Sweep(store *types.Store, cfg ArchivalConfig, today time.Time) []string {
	var moved []string

	for id, listing := range store.Active {
		eligible := false

		if listing.Status == types.StatusClosed && listing.DateClosed != nil &&
			daysBetween(*listing.DateClosed, today) > cfg.ClosedRetentionDays {
			eligible = true
		}
		if daysBetween(listing.DateAdded, today) > cfg.MaxListingAgeDays {
			eligible = true
		}

		if !eligible {
			continue
		}

		// A re-posted listing that closes again supersedes the retained
		// history copy from its previous listing period.
		store.Archived[id] = listing
		delete(store.Active, id)
		delete(store.LinkHealth, id)
		moved = append(moved, id)
	}

	sort.Strings(moved)
	if len(moved) > 0 {
		log.Printf("[reconcile] archived %d listing(s)", len(moved))
	}
	return moved
}

// daysBetween counts whole calendar days from a to b in UTC, so a sweep
// at 00:30 and one at 23:30 on the same day agree on eligibility.
func daysBetween(a, b time.Time) int {
	ad := a.UTC().Truncate(24 * time.Hour)
	bd := b.UTC().Truncate(24 * time.Hour)
	return int(bd.Sub(ad).Hours() / 24)
}
