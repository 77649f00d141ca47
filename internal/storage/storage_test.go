package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/types"
)

func sampleStore(t *testing.T) *types.Store {
	t.Helper()
	closed := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	store := types.NewStore()
	store.Active["aaa"] = &types.Listing{
		ID:          "aaa",
		Company:     "Stripe",
		Role:        "Software Engineering Intern",
		Locations:   []string{"remote"},
		Category:    types.CategorySoftwareEngineering,
		ApplyURL:    "https://stripe.example.com/swe-intern",
		Sponsorship: types.SponsorshipSponsors,

		RemoteFriendly:   true,
		Status:           types.StatusOpen,
		DateAdded:        closed.AddDate(0, 0, -30),
		DateLastVerified: closed,
		Source:           types.SourceGreenhouse,
	}
	store.Archived["bbb"] = &types.Listing{
		ID:          "bbb",
		Company:     "Old Co",
		Role:        "Data Science Intern",
		Locations:   []string{"atlanta, ga"},
		Category:    types.CategoryDataScience,
		ApplyURL:    "https://oldco.example.com/ds-intern",
		Sponsorship: types.SponsorshipUnknown,
		Status:      types.StatusClosed,
		DateAdded:   closed.AddDate(0, 0, -90),
		DateClosed:  &closed,
		Source:      types.SourceScrape,
	}
	store.LinkHealth["aaa"] = &types.LinkHealthRecord{
		ConsecutiveFailures: 1,
		LastChecked:         closed,
	}
	return store
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	store, err := Load(path)

	require.NoError(t, err)
	assert.Empty(t, store.Active)
	assert.Empty(t, store.Archived)
	assert.Empty(t, store.LinkHealth)
}

func TestSaveLoad_RoundTripPreservesAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.json")
	original := sampleStore(t)

	require.NoError(t, Save(path, original))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.Active, loaded.Active)
	assert.Equal(t, original.Archived, loaded.Archived)
	assert.Equal(t, original.LinkHealth, loaded.LinkHealth)
}

func TestSave_AtomicReplaceKeepsOldDocumentOnBadStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, Save(path, sampleStore(t)))

	// A structurally invalid store must never reach disk.
	bad := types.NewStore()
	bad.Active["x"] = &types.Listing{ID: "mismatched"}
	require.Error(t, Save(path, bad))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, loaded.Active, "aaa", "previous document is intact")
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	require.NoError(t, Save(path, sampleStore(t)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestLoad_CorruptDocumentFailsLoudly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAcquireRunLock_SecondAcquireFails(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".run-lock")

	require.NoError(t, AcquireRunLock(lockPath, "interntrack"))
	err := AcquireRunLock(lockPath, "interntrack")
	assert.Error(t, err, "a live lock held by this process blocks a second run")

	require.NoError(t, ReleaseRunLock(lockPath))
	assert.NoError(t, AcquireRunLock(lockPath, "interntrack"))
	require.NoError(t, ReleaseRunLock(lockPath))
}

func TestAcquireRunLock_StaleLockIsTakenOver(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".run-lock")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	stale := RunLock{
		Holder:    "interntrack",
		PID:       1 << 30, // certainly not a live PID
		Hostname:  hostname,
		StartedAt: time.Now().Add(-10 * time.Minute),
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockPath, data, 0644))

	assert.NoError(t, AcquireRunLock(lockPath, "interntrack"))
	require.NoError(t, ReleaseRunLock(lockPath))
}

func TestAcquireRunLock_ExpiredLockIsTakenOver(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".run-lock")

	expired := RunLock{
		Holder:    "interntrack",
		PID:       os.Getpid(), // alive, but held far past the max runtime
		Hostname:  "somewhere-else",
		StartedAt: time.Now().Add(-3 * time.Hour),
	}
	data, err := json.Marshal(expired)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockPath, data, 0644))

	assert.NoError(t, AcquireRunLock(lockPath, "interntrack"))
	require.NoError(t, ReleaseRunLock(lockPath))
}

func TestReleaseRunLock_MissingLockIsNotAnError(t *testing.T) {
	assert.NoError(t, ReleaseRunLock(filepath.Join(t.TempDir(), "never-created")))
	assert.NoError(t, ReleaseRunLock(""))
}
