package reconcile

import (
	"fmt"
	"log"
	"time"

	"github.com/ctsc/internship-tracker/internal/identity"
	"github.com/ctsc/internship-tracker/internal/match"
	"github.com/ctsc/internship-tracker/internal/types"
)

// RejectionReason explains why a candidate was refused entry to the store.
type RejectionReason string

const (
	ReasonExactDuplicate    RejectionReason = "exact-duplicate"
	ReasonArchivedDuplicate RejectionReason = "archived-duplicate"
	ReasonFuzzyDuplicate    RejectionReason = "fuzzy-duplicate"
	ReasonURLDuplicate      RejectionReason = "url-duplicate"
	ReasonInvalidCandidate  RejectionReason = "invalid-candidate"
)

// Rejection records one refused candidate. Rejections are always
// reported, never silently dropped.
type Rejection struct {
	Listing   *types.Listing
	Reason    RejectionReason
	MatchedID string // set for fuzzy-duplicate and url-duplicate
	Detail    string
}

// DedupeResult is the outcome of merging one candidate batch.
type DedupeResult struct {
	Accepted []*types.Listing
	Rejected []Rejection
}

// Dedupe merges newly discovered candidates into the store's active set.
//
// For each candidate it derives the content-hash id and rejects exact,
// archived (unless the source is a fresh discovery), fuzzy
// auto-suppress-grade, and apply-URL duplicates. Accepted listings are
// inserted into store.Active with date_added and date_last_verified set
// to now. Existing listings are authoritative: earliest seen wins, and
// nothing here overwrites their fields.
func Dedupe(store *types.Store, candidates []*types.Listing, matcher *match.Matcher, now time.Time) DedupeResult {
	var result DedupeResult

	// Apply-URL index over the active set. Exact URL equality is a
	// stronger duplicate signal than any text similarity.
	urlIndex := make(map[string]string, len(store.Active))
	for id, l := range store.Active {
		urlIndex[l.ApplyURL] = id
	}

	for _, cand := range candidates {
		// Candidates arrive before lifecycle fields mean anything; the
		// enrichment layer may also leave sponsorship unset.
		if cand.Status == "" {
			cand.Status = types.StatusOpen
		}
		if cand.Sponsorship == "" {
			cand.Sponsorship = types.SponsorshipUnknown
		}
		if err := cand.Validate(); err != nil {
			result.Rejected = append(result.Rejected, Rejection{
				Listing: cand,
				Reason:  ReasonInvalidCandidate,
				Detail:  err.Error(),
			})
			continue
		}

		cand.ID = identity.DeriveID(cand.Company, cand.Role, cand.Locations)

		if _, exists := store.Active[cand.ID]; exists {
			result.Rejected = append(result.Rejected, Rejection{Listing: cand, Reason: ReasonExactDuplicate})
			continue
		}

		if _, archived := store.Archived[cand.ID]; archived {
			if !cand.Source.IsFreshDiscovery() {
				result.Rejected = append(result.Rejected, Rejection{
					Listing: cand,
					Reason:  ReasonArchivedDuplicate,
					Detail:  fmt.Sprintf("source %s is not a fresh discovery", cand.Source),
				})
				continue
			}
			// Re-post of an archived listing, independently verified
			// live: enters as a logically new open entry with a clean
			// link-health history. The archived copy is retained.
			log.Printf("[reconcile] re-posted archived listing %s (%s / %s) accepted from %s",
				shortID(cand.ID), cand.Company, cand.Role, cand.Source)
		}

		if matchedID, dup := urlIndex[cand.ApplyURL]; dup {
			result.Rejected = append(result.Rejected, Rejection{
				Listing:   cand,
				Reason:    ReasonURLDuplicate,
				MatchedID: matchedID,
			})
			continue
		}

		if rej, suppressed := fuzzyReject(store, cand, matcher); suppressed {
			result.Rejected = append(result.Rejected, rej)
			continue
		}

		cand.Status = types.StatusOpen
		cand.DateAdded = now
		cand.DateLastVerified = now
		store.Active[cand.ID] = cand
		urlIndex[cand.ApplyURL] = cand.ID
		result.Accepted = append(result.Accepted, cand)
	}

	return result
}

// fuzzyReject compares a candidate against every active listing. An
// auto-suppress-grade match rejects the candidate; a merely probable
// match is logged for manual review and lets the candidate through.
func fuzzyReject(store *types.Store, cand *types.Listing, matcher *match.Matcher) (Rejection, bool) {
	for id, existing := range store.Active {
		if matcher.IsAutoSuppress(cand, existing) {
			return Rejection{
				Listing:   cand,
				Reason:    ReasonFuzzyDuplicate,
				MatchedID: id,
			}, true
		}
		if matcher.IsProbableDuplicate(cand, existing) {
			log.Printf("[reconcile] [WARN] probable duplicate needs review: candidate (%s / %s) vs %s (%s / %s)",
				cand.Company, cand.Role, shortID(id), existing.Company, existing.Role)
		}
	}
	return Rejection{}, false
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
