package reconcile

import (
	"log"
	"time"

	"github.com/ctsc/internship-tracker/internal/types"
)

// closeAfterFailures is the debounce threshold: a listing closes only on
// the second consecutive definitive not-found. A single failure never
// closes a listing: one transient network blip or a misconfigured check
// must not cause a false closure.
const closeAfterFailures = 2

// RecordCheck applies one fully-resolved link-check outcome to the store.
//
// ok resets the failure streak and refreshes date_last_verified.
// not-found advances the streak and closes the listing at the threshold.
// transient-error neither advances nor resets the streak, so transient
// noise between two real failures does not erase progress toward closure.
// unknown-error is logged for review and mutates nothing.
//
// An outcome for an id not in the active set is logged and ignored: the
// listing may have been archived or rejected earlier in the same run.
func RecordCheck(store *types.Store, id string, outcome types.CheckOutcome, now time.Time) {
	listing, ok := store.Active[id]
	if !ok {
		log.Printf("[reconcile] [WARN] link-check outcome %s for unknown listing %s, ignored", outcome, shortID(id))
		return
	}

	switch outcome {
	case types.OutcomeOK:
		rec := ensureRecord(store, id)
		rec.ConsecutiveFailures = 0
		rec.LastChecked = now
		listing.DateLastVerified = now
		switch listing.Status {
		case types.StatusOpen:
			// already open
		case types.StatusClosed:
			// No closed→open transition here. Re-opening only happens
			// via the dedup engine's re-post path.
			log.Printf("[reconcile] [WARN] listing %s is closed but its apply URL answered ok", shortID(id))
		default:
			listing.Status = types.StatusOpen
		}

	case types.OutcomeNotFound:
		rec := ensureRecord(store, id)
		rec.ConsecutiveFailures++
		rec.LastChecked = now
		if rec.ConsecutiveFailures >= closeAfterFailures && listing.Status != types.StatusClosed {
			listing.Status = types.StatusClosed
			closed := now
			listing.DateClosed = &closed
			log.Printf("[reconcile] listing %s (%s / %s) closed after %d consecutive not-found checks",
				shortID(id), listing.Company, listing.Role, rec.ConsecutiveFailures)
		}

	case types.OutcomeTransientError:
		if rec, exists := store.LinkHealth[id]; exists {
			rec.LastChecked = now
		}

	case types.OutcomeUnknownError:
		log.Printf("[reconcile] [WARN] unknown link-check error for listing %s (%s), needs manual review",
			shortID(id), listing.ApplyURL)

	default:
		log.Printf("[reconcile] [WARN] unrecognized link-check outcome %q for listing %s, ignored", outcome, shortID(id))
	}
}

func ensureRecord(store *types.Store, id string) *types.LinkHealthRecord {
	rec, exists := store.LinkHealth[id]
	if !exists {
		rec = &types.LinkHealthRecord{}
		store.LinkHealth[id] = rec
	}
	return rec
}
