package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

func testChecker() *Checker {
	return New(config.LinkCheck{
		Timeout:            config.Duration(2 * time.Second),
		Concurrency:        4,
		PerDomainPerSecond: 1000,
	})
}

func TestCheck_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   types.CheckOutcome
	}{
		{"ok", http.StatusOK, types.OutcomeOK},
		{"redirect target ok", http.StatusNoContent, types.OutcomeOK},
		{"not found", http.StatusNotFound, types.OutcomeNotFound},
		{"gone", http.StatusGone, types.OutcomeNotFound},
		{"server error", http.StatusInternalServerError, types.OutcomeTransientError},
		{"bad gateway", http.StatusBadGateway, types.OutcomeTransientError},
		{"rate limited", http.StatusTooManyRequests, types.OutcomeTransientError},
		{"unauthorized", http.StatusUnauthorized, types.OutcomeUnknownError},
		{"teapot", http.StatusTeapot, types.OutcomeUnknownError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			assert.Equal(t, tt.want, testChecker().Check(context.Background(), srv.URL))
		})
	}
}

func TestCheck_FallsBackToGETWhenHEADRejected(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.Equal(t, types.OutcomeOK, testChecker().Check(context.Background(), srv.URL))
	assert.True(t, sawGet)
}

func TestCheck_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The final response after redirect is what counts.
	assert.Equal(t, types.OutcomeNotFound, testChecker().Check(context.Background(), srv.URL+"/old"))
}

func TestCheck_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := New(config.LinkCheck{Timeout: config.Duration(100 * time.Millisecond), Concurrency: 1, PerDomainPerSecond: 1000})
	assert.Equal(t, types.OutcomeTransientError, c.Check(context.Background(), srv.URL))
}

func TestCheck_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	assert.Equal(t, types.OutcomeTransientError, testChecker().Check(context.Background(), url))
}

func TestCheck_InvalidURL(t *testing.T) {
	assert.Equal(t, types.OutcomeUnknownError, testChecker().Check(context.Background(), "not a url"))
}

func TestCheckAll_SkipsClosedListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	now := time.Now().UTC()
	store := types.NewStore()
	store.Active["open1"] = &types.Listing{
		ID: "open1", Company: "A", Role: "Intern", ApplyURL: srv.URL + "/a",
		Status: types.StatusOpen, DateAdded: now, DateLastVerified: now, Source: types.SourceGreenhouse,
	}
	store.Active["unknown1"] = &types.Listing{
		ID: "unknown1", Company: "B", Role: "Intern", ApplyURL: srv.URL + "/b",
		Status: types.StatusUnknown, DateAdded: now, DateLastVerified: now, Source: types.SourceGreenhouse,
	}
	closed := now.Add(-time.Hour)
	store.Active["closed1"] = &types.Listing{
		ID: "closed1", Company: "C", Role: "Intern", ApplyURL: srv.URL + "/c",
		Status: types.StatusClosed, DateAdded: now, DateLastVerified: now, DateClosed: &closed, Source: types.SourceGreenhouse,
	}

	outcomes, err := testChecker().CheckAll(context.Background(), store)
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Equal(t, types.OutcomeOK, outcomes["open1"])
	assert.Equal(t, types.OutcomeOK, outcomes["unknown1"])
	assert.NotContains(t, outcomes, "closed1")
}
