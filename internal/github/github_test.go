package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

func TestParseIssueBody(t *testing.T) {
	body := `**Company**: Stripe
**Role**: Software Engineer Intern
**Location**: San Francisco, CA
**Apply URL**: https://stripe.com/jobs/123
`
	raw, err := ParseIssueBody("[Submission] Stripe SWE Intern", body)
	require.NoError(t, err)
	assert.Equal(t, "Stripe", raw.Company)
	assert.Equal(t, "Software Engineer Intern", raw.Title)
	assert.Equal(t, "San Francisco, CA", raw.Location)
	assert.Equal(t, "https://stripe.com/jobs/123", raw.URL)
	assert.Equal(t, types.SourceIssueIntake, raw.Source)
}

func TestParseIssueBody_PlainFieldsAndTitleFallback(t *testing.T) {
	body := "company: Acme\nlink: https://acme.test/jobs/1\n"
	raw, err := ParseIssueBody("Acme Platform Intern", body)
	require.NoError(t, err)
	assert.Equal(t, "Acme", raw.Company)
	assert.Equal(t, "Acme Platform Intern", raw.Title)
	assert.Equal(t, "https://acme.test/jobs/1", raw.URL)
}

func TestParseIssueBody_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no company", "Role: Intern\nURL: https://x.test/1", "missing company"},
		{"no url", "Company: Acme\nRole: Intern", "missing apply url"},
		{"empty body", "", "missing company"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIssueBody("", tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func intakeServer(t *testing.T, issues []Issue) (*httptest.Server, *map[string][]string) {
	t.Helper()
	calls := make(map[string][]string)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/ctsc/tracker/issues", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "new-internship", r.URL.Query().Get("labels"))
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(issues))
	})
	mux.HandleFunc("/repos/ctsc/tracker/issues/", func(w http.ResponseWriter, r *http.Request) {
		calls[r.Method] = append(calls[r.Method], r.URL.Path)
		fmt.Fprint(w, "{}")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(baseURL string) *Client {
	c := NewClient(config.GitHub{Repo: "ctsc/tracker", IntakeLabel: "new-internship", Token: "test-token"})
	c.BaseURL = baseURL
	return c
}

func TestIntakeSource_DiscoverAndResolve(t *testing.T) {
	issues := []Issue{
		{Number: 7, Title: "Stripe SWE Intern", Body: "Company: Stripe\nRole: SWE Intern\nURL: https://stripe.com/jobs/1"},
		{Number: 8, Title: "broken", Body: "no structured fields here"},
	}
	srv, calls := intakeServer(t, issues)
	src := NewIntakeSource(testClient(srv.URL))

	raws, err := src.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "Stripe", raws[0].Company)

	// Only the parsed issue gets commented and closed.
	src.Resolve(context.Background())
	assert.Equal(t, []string{"/repos/ctsc/tracker/issues/7/comments"}, (*calls)[http.MethodPost])
	assert.Equal(t, []string{"/repos/ctsc/tracker/issues/7"}, (*calls)[http.MethodPatch])

	// Resolve drains the pending set.
	src.Resolve(context.Background())
	assert.Len(t, (*calls)[http.MethodPost], 1)
}

func TestClient_ListIntakeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListIntake(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
