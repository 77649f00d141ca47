package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/types"
)

// seedOpen inserts one open listing and returns its id.
func seedOpen(t *testing.T, store *types.Store) string {
	t.Helper()
	l := candidate("Stripe", "Software Engineering Intern", "Remote")
	result := Dedupe(store, []*types.Listing{l}, testMatcher(t), testNow)
	require.Len(t, result.Accepted, 1)
	return result.Accepted[0].ID
}

func TestRecordCheck_OKResetsStreak(t *testing.T) {
	store := types.NewStore()
	id := seedOpen(t, store)
	store.LinkHealth[id] = &types.LinkHealthRecord{ConsecutiveFailures: 1}

	later := testNow.Add(24 * time.Hour)
	RecordCheck(store, id, types.OutcomeOK, later)

	rec := store.LinkHealth[id]
	assert.Equal(t, 0, rec.ConsecutiveFailures)
	assert.Equal(t, later, rec.LastChecked)
	assert.Equal(t, later, store.Active[id].DateLastVerified)
	assert.Equal(t, types.StatusOpen, store.Active[id].Status)
}

func TestRecordCheck_FirstCheckCreatesRecord(t *testing.T) {
	store := types.NewStore()
	id := seedOpen(t, store)

	RecordCheck(store, id, types.OutcomeNotFound, testNow)

	rec, exists := store.LinkHealth[id]
	require.True(t, exists, "record is created on first check")
	assert.Equal(t, 1, rec.ConsecutiveFailures)
}

// The debounce: a single not-found never closes a listing.
func TestRecordCheck_Debounce(t *testing.T) {
	tests := []struct {
		name       string
		outcomes   []types.CheckOutcome
		wantStatus types.ListingStatus
	}{
		{"ok then not-found stays open", []types.CheckOutcome{types.OutcomeOK, types.OutcomeNotFound}, types.StatusOpen},
		{"two not-found closes", []types.CheckOutcome{types.OutcomeNotFound, types.OutcomeNotFound}, types.StatusClosed},
		{"transient between failures does not reset", []types.CheckOutcome{types.OutcomeNotFound, types.OutcomeTransientError, types.OutcomeNotFound}, types.StatusClosed},
		{"transient alone changes nothing", []types.CheckOutcome{types.OutcomeTransientError, types.OutcomeTransientError}, types.StatusOpen},
		{"unknown error mutates nothing", []types.CheckOutcome{types.OutcomeNotFound, types.OutcomeUnknownError, types.OutcomeOK}, types.StatusOpen},
		{"recovery then two failures closes", []types.CheckOutcome{types.OutcomeNotFound, types.OutcomeOK, types.OutcomeNotFound, types.OutcomeNotFound}, types.StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := types.NewStore()
			id := seedOpen(t, store)

			when := testNow
			for _, outcome := range tt.outcomes {
				when = when.Add(24 * time.Hour)
				RecordCheck(store, id, outcome, when)
			}

			assert.Equal(t, tt.wantStatus, store.Active[id].Status)
			if tt.wantStatus == types.StatusClosed {
				require.NotNil(t, store.Active[id].DateClosed)
				assert.Equal(t, when, *store.Active[id].DateClosed)
			} else {
				assert.Nil(t, store.Active[id].DateClosed)
			}
		})
	}
}

func TestRecordCheck_DateClosedSetOnce(t *testing.T) {
	store := types.NewStore()
	id := seedOpen(t, store)

	d1 := testNow.Add(24 * time.Hour)
	d2 := d1.Add(24 * time.Hour)
	d3 := d2.Add(24 * time.Hour)
	RecordCheck(store, id, types.OutcomeNotFound, d1)
	RecordCheck(store, id, types.OutcomeNotFound, d2)
	RecordCheck(store, id, types.OutcomeNotFound, d3)

	listing := store.Active[id]
	assert.Equal(t, types.StatusClosed, listing.Status)
	require.NotNil(t, listing.DateClosed)
	assert.Equal(t, d2, *listing.DateClosed, "already-closed listing keeps its original date_closed")
	assert.Equal(t, 3, store.LinkHealth[id].ConsecutiveFailures)
}

func TestRecordCheck_NoClosedToOpenTransition(t *testing.T) {
	store := types.NewStore()
	id := seedOpen(t, store)

	d := testNow
	for i := 0; i < 2; i++ {
		d = d.Add(24 * time.Hour)
		RecordCheck(store, id, types.OutcomeNotFound, d)
	}
	require.Equal(t, types.StatusClosed, store.Active[id].Status)

	RecordCheck(store, id, types.OutcomeOK, d.Add(24*time.Hour))
	assert.Equal(t, types.StatusClosed, store.Active[id].Status,
		"re-opening only happens via the dedup re-post path")
}

func TestRecordCheck_UnknownIDIgnored(t *testing.T) {
	store := types.NewStore()

	RecordCheck(store, "deadbeef", types.OutcomeNotFound, testNow)

	assert.Empty(t, store.LinkHealth, "no record is created for an unknown id")
}

func TestRecordCheck_UnknownStatusBecomesOpenOnOK(t *testing.T) {
	store := types.NewStore()
	id := seedOpen(t, store)
	store.Active[id].Status = types.StatusUnknown

	RecordCheck(store, id, types.OutcomeOK, testNow)

	assert.Equal(t, types.StatusOpen, store.Active[id].Status)
}
