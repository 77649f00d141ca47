package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/types"
)

func seedClosed(t *testing.T, store *types.Store, company string, closedDaysAgo int, today time.Time) string {
	t.Helper()
	l := candidate(company, "Software Engineering Intern", "Remote")
	result := Dedupe(store, []*types.Listing{l}, testMatcher(t), today.AddDate(0, 0, -closedDaysAgo-10))
	require.Len(t, result.Accepted, 1)
	id := result.Accepted[0].ID
	closed := today.AddDate(0, 0, -closedDaysAgo)
	store.Active[id].Status = types.StatusClosed
	store.Active[id].DateClosed = &closed
	store.LinkHealth[id] = &types.LinkHealthRecord{ConsecutiveFailures: 2, LastChecked: closed}
	return id
}

func TestSweep_ClosedRetentionBoundary(t *testing.T) {
	today := testNow
	store := types.NewStore()
	eightDays := seedClosed(t, store, "Stripe", 8, today)
	sevenDays := seedClosed(t, store, "NCR Voyix", 7, today)

	moved := Sweep(store, DefaultArchivalConfig(), today)

	assert.Equal(t, []string{eightDays}, moved, "strictly greater than 7 days")
	assert.Contains(t, store.Archived, eightDays)
	assert.NotContains(t, store.Active, eightDays)
	assert.NotContains(t, store.LinkHealth, eightDays, "link-health record dropped on archival")
	assert.Contains(t, store.Active, sevenDays, "exactly 7 days stays active")
}

func TestSweep_MaxAgeRegardlessOfStatus(t *testing.T) {
	today := testNow
	store := types.NewStore()

	stale := candidate("Old Co", "Software Engineering Intern", "Remote")
	result := Dedupe(store, []*types.Listing{stale}, testMatcher(t), today.AddDate(0, 0, -121))
	require.Len(t, result.Accepted, 1)
	id := result.Accepted[0].ID
	require.Equal(t, types.StatusOpen, store.Active[id].Status)

	fresh := candidate("New Co", "Software Engineering Intern", "Remote")
	Dedupe(store, []*types.Listing{fresh}, testMatcher(t), today.AddDate(0, 0, -120))

	moved := Sweep(store, DefaultArchivalConfig(), today)

	assert.Equal(t, []string{id}, moved, "open listing older than 120 days is archived; exactly 120 is kept")
}

func TestSweep_Idempotent(t *testing.T) {
	today := testNow
	store := types.NewStore()
	seedClosed(t, store, "Stripe", 30, today)
	seedClosed(t, store, "NCR Voyix", 9, today)

	first := Sweep(store, DefaultArchivalConfig(), today)
	assert.Len(t, first, 2)

	second := Sweep(store, DefaultArchivalConfig(), today)
	assert.Empty(t, second, "second sweep with unchanged today moves nothing")
}

func TestSweep_ClosedWithoutDateIsKept(t *testing.T) {
	store := types.NewStore()
	l := candidate("Stripe", "Software Engineering Intern", "Remote")
	result := Dedupe(store, []*types.Listing{l}, testMatcher(t), testNow)
	require.Len(t, result.Accepted, 1)
	store.Active[result.Accepted[0].ID].Status = types.StatusClosed // no DateClosed recorded

	moved := Sweep(store, DefaultArchivalConfig(), testNow)
	assert.Empty(t, moved)
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 2, 10, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, 0, daysBetween(base, base.Add(22*time.Hour)))
	assert.Equal(t, 1, daysBetween(base, base.AddDate(0, 0, 1)))
	assert.Equal(t, 8, daysBetween(base, base.AddDate(0, 0, 8).Add(5*time.Hour)))
}
