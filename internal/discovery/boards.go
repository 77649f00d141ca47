package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	leverBaseURL      = "https://api.lever.co/v0/postings"
	ashbyBaseURL      = "https://api.ashbyhq.com/posting-api/job-board"

	boardTimeout = 15 * time.Second
)

// fetchJSON performs one GET and decodes the body into out. Non-200
// responses are errors with the body included for diagnosis.
func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("board API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// GreenhouseSource polls the public Greenhouse job board API for a set
// of companies.
type GreenhouseSource struct {
	Boards  []config.Board
	BaseURL string // overridable for tests
	client  *http.Client
}

func NewGreenhouseSource(boards []config.Board) *GreenhouseSource {
	return &GreenhouseSource{
		Boards:  boards,
		BaseURL: greenhouseBaseURL,
		client:  &http.Client{Timeout: boardTimeout},
	}
}

func (s *GreenhouseSource) Name() string { return "greenhouse" }

// greenhouseResponse mirrors the boards-api jobs listing.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	UpdatedAt string `json:"updated_at"`
}

func (s *GreenhouseSource) Discover(ctx context.Context) ([]types.RawListing, error) {
	now := time.Now().UTC()
	var out []types.RawListing
	for _, b := range s.Boards {
		url := fmt.Sprintf("%s/%s/jobs", s.BaseURL, b.Slug)
		var resp greenhouseResponse
		if err := fetchJSON(ctx, s.client, url, &resp); err != nil {
			return out, fmt.Errorf("board %s: %w", b.Slug, err)
		}
		for _, j := range resp.Jobs {
			out = append(out, types.RawListing{
				Company:   b.Company,
				Title:     j.Title,
				Location:  j.Location.Name,
				URL:       j.AbsoluteURL,
				Source:    types.SourceGreenhouse,
				FetchedAt: now,
			})
		}
	}
	return out, nil
}

// LeverSource polls the public Lever postings API.
type LeverSource struct {
	Boards  []config.Board
	BaseURL string
	client  *http.Client
}

func NewLeverSource(boards []config.Board) *LeverSource {
	return &LeverSource{
		Boards:  boards,
		BaseURL: leverBaseURL,
		client:  &http.Client{Timeout: boardTimeout},
	}
}

func (s *LeverSource) Name() string { return "lever" }

// leverPosting mirrors one entry of the postings array.
type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	WorkplaceType string `json:"workplaceType"`
}

func (s *LeverSource) Discover(ctx context.Context) ([]types.RawListing, error) {
	now := time.Now().UTC()
	var out []types.RawListing
	for _, b := range s.Boards {
		url := fmt.Sprintf("%s/%s?mode=json", s.BaseURL, b.Slug)
		var postings []leverPosting
		if err := fetchJSON(ctx, s.client, url, &postings); err != nil {
			return out, fmt.Errorf("board %s: %w", b.Slug, err)
		}
		for _, p := range postings {
			raw := map[string]string{"commitment": p.Categories.Commitment}
			if strings.EqualFold(p.WorkplaceType, "remote") {
				raw["remote"] = "true"
			}
			out = append(out, types.RawListing{
				Company:   b.Company,
				Title:     p.Text,
				Location:  p.Categories.Location,
				URL:       p.HostedURL,
				Source:    types.SourceLever,
				RawData:   raw,
				FetchedAt: now,
			})
		}
	}
	return out, nil
}

// AshbySource polls the public Ashby posting API.
type AshbySource struct {
	Boards  []config.Board
	BaseURL string
	client  *http.Client
}

func NewAshbySource(boards []config.Board) *AshbySource {
	return &AshbySource{
		Boards:  boards,
		BaseURL: ashbyBaseURL,
		client:  &http.Client{Timeout: boardTimeout},
	}
}

func (s *AshbySource) Name() string { return "ashby" }

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

type ashbyJob struct {
	Title    string `json:"title"`
	JobURL   string `json:"jobUrl"`
	Location string `json:"location"`
	IsRemote bool   `json:"isRemote"`
}

func (s *AshbySource) Discover(ctx context.Context) ([]types.RawListing, error) {
	now := time.Now().UTC()
	var out []types.RawListing
	for _, b := range s.Boards {
		url := fmt.Sprintf("%s/%s", s.BaseURL, b.Slug)
		var resp ashbyResponse
		if err := fetchJSON(ctx, s.client, url, &resp); err != nil {
			return out, fmt.Errorf("board %s: %w", b.Slug, err)
		}
		for _, j := range resp.Jobs {
			var raw map[string]string
			if j.IsRemote {
				raw = map[string]string{"remote": "true"}
			}
			out = append(out, types.RawListing{
				Company:   b.Company,
				Title:     j.Title,
				Location:  j.Location,
				URL:       j.JobURL,
				Source:    types.SourceAshby,
				RawData:   raw,
				FetchedAt: now,
			})
		}
	}
	return out, nil
}
