package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const rawGitHubBaseURL = "https://raw.githubusercontent.com"

// continuationMarkers open a table row that inherits the company of the
// row above it, a convention several community trackers use.
var continuationMarkers = []string{"↳", "⮑", "»"}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^)\s]+)\)`)
	htmlAnchorRe   = regexp.MustCompile(`<a[^>]+href="(https?://[^"]+)"`)
)

// MonitorSource watches other repositories' README listing tables and
// emits rows it has not seen before. Seen apply URLs persist across runs
// in a state file so every run only surfaces genuinely new rows.
type MonitorSource struct {
	Monitors []config.GitHubMonitor
	// StatePath is the seen-URL state file, one JSON document for all
	// monitored repos.
	StatePath string
	BaseURL   string
	client    *http.Client
}

func NewMonitorSource(monitors []config.GitHubMonitor, dataDir string) *MonitorSource {
	return &MonitorSource{
		Monitors:  monitors,
		StatePath: filepath.Join(dataDir, "monitor_seen.json"),
		BaseURL:   rawGitHubBaseURL,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (s *MonitorSource) Name() string { return "github-monitor" }

// monitorState maps repo -> set of apply URLs already surfaced.
type monitorState map[string]map[string]bool

func (s *MonitorSource) Discover(ctx context.Context) ([]types.RawListing, error) {
	state, err := s.loadState()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []types.RawListing
	for _, m := range s.Monitors {
		rows, err := s.fetchRows(ctx, m)
		if err != nil {
			log.Printf("[monitor] %s: %v", m.Repo, err)
			continue
		}
		seen := state[m.Repo]
		if seen == nil {
			seen = make(map[string]bool)
			state[m.Repo] = seen
		}
		fresh := 0
		for _, r := range rows {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			fresh++
			out = append(out, types.RawListing{
				Company:   r.Company,
				Title:     r.Role,
				Location:  r.Location,
				URL:       r.URL,
				Source:    types.SourceGitHubMonitor,
				FetchedAt: now,
			})
		}
		log.Printf("[monitor] %s: %d rows, %d new", m.Repo, len(rows), fresh)
	}

	if err := s.saveState(state); err != nil {
		return out, err
	}
	return out, nil
}

// tableRow is one parsed listing row from a README table.
type tableRow struct {
	Company  string
	Role     string
	Location string
	URL      string
}

func (s *MonitorSource) fetchRows(ctx context.Context, m config.GitHubMonitor) ([]tableRow, error) {
	url := fmt.Sprintf("%s/%s/%s/%s", s.BaseURL, m.Repo, m.Branch, m.File)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("raw fetch returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return ParseListingTable(string(body)), nil
}

// ParseListingTable extracts listing rows from every markdown table in
// the document. A table qualifies when its header mentions a company
// column. Continuation rows (a marker like "↳" in the company cell)
// inherit the company of the preceding row. The apply URL is taken from
// the rightmost cell containing a link, since trackers vary in where
// they put it.
func ParseListingTable(markdown string) []tableRow {
	var rows []tableRow
	var header []string
	lastCompany := ""

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			header = nil
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) < 2 {
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			lastCompany = ""
			continue
		}
		if !headerHasCompany(header) {
			continue
		}

		company := cleanCell(cells[0])
		if isContinuation(company) {
			company = lastCompany
		} else {
			lastCompany = company
		}
		if company == "" {
			continue
		}

		url := rightmostLink(cells)
		if url == "" {
			continue
		}

		row := tableRow{Company: company, URL: url}
		if len(cells) > 1 {
			row.Role = cleanCell(cells[1])
		}
		if len(cells) > 2 {
			row.Location = cleanCell(cells[2])
		}
		if row.Role == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// splitRow breaks "| a | b | c |" into its cell strings.
func splitRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func headerHasCompany(header []string) bool {
	for _, h := range header {
		if strings.Contains(strings.ToLower(h), "company") {
			return true
		}
	}
	return false
}

func isContinuation(cell string) bool {
	for _, m := range continuationMarkers {
		if strings.HasPrefix(cell, m) {
			return true
		}
	}
	return false
}

// rightmostLink scans cells from the right and returns the first URL it
// finds, from either a markdown link or an inline HTML anchor.
func rightmostLink(cells []string) string {
	for i := len(cells) - 1; i >= 0; i-- {
		if m := markdownLinkRe.FindStringSubmatch(cells[i]); m != nil {
			return m[2]
		}
		if m := htmlAnchorRe.FindStringSubmatch(cells[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

// cleanCell strips markdown emphasis and link syntax, leaving the
// visible text.
func cleanCell(cell string) string {
	cell = markdownLinkRe.ReplaceAllString(cell, "$1")
	cell = strings.NewReplacer("**", "", "*", "", "`", "").Replace(cell)
	return strings.TrimSpace(cell)
}

func (s *MonitorSource) loadState() (monitorState, error) {
	data, err := os.ReadFile(s.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(monitorState), nil
		}
		return nil, fmt.Errorf("failed to read monitor state: %w", err)
	}
	var state monitorState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse monitor state %s: %w", s.StatePath, err)
	}
	return state, nil
}

func (s *MonitorSource) saveState(state monitorState) error {
	if err := os.MkdirAll(filepath.Dir(s.StatePath), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal monitor state: %w", err)
	}
	if err := os.WriteFile(s.StatePath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write monitor state: %w", err)
	}
	return nil
}
