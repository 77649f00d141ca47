package discovery

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const scraperUserAgent = "interntrack/1.0 (+https://github.com/ctsc/internship-tracker)"

// ScrapeSource fetches configured career pages and extracts anchor links
// whose text looks like an internship posting. It respects robots.txt
// and rate-limits per domain.
type ScrapeSource struct {
	Sources []config.ScrapeSource
	Filters config.Filters
	client  *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   float64
	robots   map[string][]string // host -> disallowed path prefixes
}

func NewScrapeSource(sources []config.ScrapeSource, filters config.Filters, perDomainPerSecond float64) *ScrapeSource {
	return &ScrapeSource{
		Sources:  sources,
		Filters:  filters,
		client:   &http.Client{Timeout: 20 * time.Second},
		limiters: make(map[string]*rate.Limiter),
		perSec:   perDomainPerSecond,
		robots:   make(map[string][]string),
	}
}

func (s *ScrapeSource) Name() string { return "scrape" }

func (s *ScrapeSource) Discover(ctx context.Context) ([]types.RawListing, error) {
	now := time.Now().UTC()
	var out []types.RawListing
	for _, src := range s.Sources {
		listings, err := s.scrapePage(ctx, src, now)
		if err != nil {
			// One bad page must not sink the rest of the batch.
			log.Printf("[scrape] %s (%s): %v", src.Company, src.URL, err)
			continue
		}
		out = append(out, listings...)
	}
	return out, nil
}

func (s *ScrapeSource) scrapePage(ctx context.Context, src config.ScrapeSource, now time.Time) ([]types.RawListing, error) {
	pageURL, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	allowed, err := s.robotsAllowed(ctx, pageURL)
	if err != nil {
		log.Printf("[scrape] robots.txt check failed for %s, proceeding: %v", pageURL.Host, err)
	} else if !allowed {
		log.Printf("[scrape] %s disallows %s, skipping", pageURL.Host, pageURL.Path)
		return nil, nil
	}

	if err := s.limiter(pageURL.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []types.RawListing
	for _, a := range collectAnchors(doc) {
		if !s.titleMatches(a.text) {
			continue
		}
		abs, err := pageURL.Parse(a.href)
		if err != nil || (abs.Scheme != "http" && abs.Scheme != "https") {
			continue
		}
		out = append(out, types.RawListing{
			Company:   src.Company,
			Title:     a.text,
			URL:       abs.String(),
			Source:    types.SourceScrape,
			FetchedAt: now,
		})
	}
	return out, nil
}

// titleMatches applies the include/exclude keyword filters to a link's
// visible text.
func (s *ScrapeSource) titleMatches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range s.Filters.KeywordsExclude {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	for _, kw := range s.Filters.KeywordsInclude {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (s *ScrapeSource) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.perSec), 1)
		s.limiters[host] = l
	}
	return l
}

// robotsAllowed fetches and caches the host's robots.txt and checks the
// wildcard agent's Disallow prefixes against the page path. Only the
// "User-agent: *" group is consulted; a missing or unreadable robots.txt
// means allowed.
func (s *ScrapeSource) robotsAllowed(ctx context.Context, page *url.URL) (bool, error) {
	s.mu.Lock()
	disallowed, cached := s.robots[page.Host]
	s.mu.Unlock()

	if !cached {
		robotsURL := page.Scheme + "://" + page.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true, err
		}
		req.Header.Set("User-Agent", scraperUserAgent)
		resp, err := s.client.Do(req)
		if err != nil {
			return true, err
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			disallowed = parseRobots(string(body))
		}
		s.mu.Lock()
		s.robots[page.Host] = disallowed
		s.mu.Unlock()
	}

	path := page.Path
	if path == "" {
		path = "/"
	}
	for _, prefix := range disallowed {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return false, nil
		}
	}
	return true, nil
}

// parseRobots extracts Disallow prefixes from the "User-agent: *" group.
func parseRobots(body string) []string {
	var disallowed []string
	inWildcard := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			inWildcard = val == "*"
		case "disallow":
			if inWildcard && val != "" {
				disallowed = append(disallowed, val)
			}
		}
	}
	return disallowed
}

type anchor struct {
	href string
	text string
}

// collectAnchors walks the parsed document and returns every <a href>
// with its flattened visible text.
func collectAnchors(doc *html.Node) []anchor {
	var out []anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					break
				}
			}
			if href != "" {
				text := strings.Join(strings.Fields(nodeText(n)), " ")
				out = append(out, anchor{href: href, text: text})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
