// Package github implements community submission intake: open issues
// labeled for intake are parsed into raw listings, then commented on and
// closed once a run has processed them.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const apiBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API for one repository.
type Client struct {
	Repo    string
	Label   string
	BaseURL string
	token   string
	client  *http.Client
}

// NewClient builds a client from config. A token is required for
// commenting and closing; intake listing works without one on public
// repos but is rate-limited hard.
func NewClient(cfg config.GitHub) *Client {
	return &Client{
		Repo:    cfg.Repo,
		Label:   cfg.IntakeLabel,
		BaseURL: apiBaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Issue is the subset of the issues API this package reads.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github API returned %d for %s %s: %s", resp.StatusCode, method, path, truncate(string(respBody), 200))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ListIntake returns the open issues carrying the intake label.
func (c *Client) ListIntake(ctx context.Context) ([]Issue, error) {
	path := fmt.Sprintf("/repos/%s/issues?state=open&labels=%s&per_page=100", c.Repo, c.Label)
	var issues []Issue
	if err := c.do(ctx, http.MethodGet, path, nil, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CloseWithComment leaves a comment on the issue and closes it.
func (c *Client) CloseWithComment(ctx context.Context, number int, comment string) error {
	commentPath := fmt.Sprintf("/repos/%s/issues/%d/comments", c.Repo, number)
	if err := c.do(ctx, http.MethodPost, commentPath, map[string]string{"body": comment}, nil); err != nil {
		return err
	}
	issuePath := fmt.Sprintf("/repos/%s/issues/%d", c.Repo, number)
	return c.do(ctx, http.MethodPatch, issuePath, map[string]string{"state": "closed"}, nil)
}

// ParseIssueBody extracts a raw listing from an intake issue body. The
// expected format is "Field: value" lines; both plain and markdown-bold
// field names are accepted. Returns an error when company, role, or URL
// is missing.
func ParseIssueBody(title, body string) (types.RawListing, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		// "Apply URL: https://..." splits at the first colon; rejoin
		// the scheme.
		if strings.HasPrefix(val, "//") {
			continue
		}
		if existing, dup := fields[key]; dup && existing != "" {
			continue
		}
		fields[key] = val
	}

	raw := types.RawListing{
		Company:   fields["company"],
		Title:     firstNonEmpty(fields["role"], fields["title"], title),
		Location:  firstNonEmpty(fields["location"], fields["locations"]),
		URL:       firstNonEmpty(fields["apply url"], fields["url"], fields["link"], extractURL(body)),
		Source:    types.SourceIssueIntake,
		FetchedAt: time.Now().UTC(),
	}
	if raw.Company == "" {
		return raw, fmt.Errorf("issue body missing company")
	}
	if raw.Title == "" {
		return raw, fmt.Errorf("issue body missing role")
	}
	if raw.URL == "" {
		return raw, fmt.Errorf("issue body missing apply url")
	}
	return raw, nil
}

// extractURL finds the first http(s) URL anywhere in the body.
func extractURL(body string) string {
	for _, f := range strings.Fields(body) {
		f = strings.Trim(f, "<>()")
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			return f
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// IntakeSource adapts issue intake to the discovery source interface.
// Discover remembers which issues produced listings; Resolve closes them
// after a run has committed its results.
type IntakeSource struct {
	client  *Client
	pending []int
}

func NewIntakeSource(client *Client) *IntakeSource {
	return &IntakeSource{client: client}
}

func (s *IntakeSource) Name() string { return "issue-intake" }

func (s *IntakeSource) Discover(ctx context.Context) ([]types.RawListing, error) {
	issues, err := s.client.ListIntake(ctx)
	if err != nil {
		return nil, err
	}

	s.pending = s.pending[:0]
	var out []types.RawListing
	for _, issue := range issues {
		raw, err := ParseIssueBody(issue.Title, issue.Body)
		if err != nil {
			log.Printf("[intake] issue #%d from %s skipped: %v", issue.Number, issue.User.Login, err)
			continue
		}
		out = append(out, raw)
		s.pending = append(s.pending, issue.Number)
	}
	return out, nil
}

// Resolve closes every issue whose listing made it through the run.
// Failures are logged per issue; an issue left open is picked up again
// next run and deduplicated then.
func (s *IntakeSource) Resolve(ctx context.Context) {
	for _, number := range s.pending {
		comment := "Thanks! This submission has been processed and will appear in the listings if it passed validation."
		if err := s.client.CloseWithComment(ctx, number, comment); err != nil {
			log.Printf("[intake] failed to close issue #%d: %v", number, err)
		}
	}
	s.pending = nil
}
