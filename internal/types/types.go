package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Listing represents one internship posting tracked by the pipeline.
//
// The ID is derived once from normalized (company, role, locations) and is
// never reassigned; two listings with equal IDs are the same entity.
type Listing struct {
	ID        string   `json:"id"`
	Company   string   `json:"company"`
	Role      string   `json:"role"`
	Locations []string `json:"locations"`

	Category Category `json:"category"`

	ApplyURL    string      `json:"apply_url"`
	Sponsorship Sponsorship `json:"sponsorship"`

	RequiresUSCitizenship  bool `json:"requires_us_citizenship"`
	IsNotableEmployer      bool `json:"is_notable_employer"`
	RequiresAdvancedDegree bool `json:"requires_advanced_degree"`
	RemoteFriendly         bool `json:"remote_friendly"`

	Status           ListingStatus `json:"status"`
	DateAdded        time.Time     `json:"date_added"`
	DateLastVerified time.Time     `json:"date_last_verified"`
	DateClosed       *time.Time    `json:"date_closed,omitempty"`
	Source           Source        `json:"source"`
}

// Validate checks the fields a candidate must carry before it may enter
// the store. Empty company/role are allowed (they still hash and dedupe);
// a missing or unparseable apply URL is not.
func (l *Listing) Validate() error {
	if l.ApplyURL == "" {
		return fmt.Errorf("apply_url is required")
	}
	u, err := url.Parse(l.ApplyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("apply_url %q is not an absolute URL", l.ApplyURL)
	}
	if !l.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", l.Category)
	}
	if !l.Sponsorship.IsValid() {
		return fmt.Errorf("invalid sponsorship: %s", l.Sponsorship)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", l.Status)
	}
	return nil
}

// Category classifies a listing into one of the fixed role families.
type Category string

const (
	CategorySoftwareEngineering Category = "software-engineering"
	CategoryMLAI                Category = "ml-ai"
	CategoryDataScience         Category = "data-science"
	CategoryQuant               Category = "quant"
	CategoryProductManagement   Category = "product-management"
	CategoryHardware            Category = "hardware"
	CategoryOther               Category = "other"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategorySoftwareEngineering, CategoryMLAI, CategoryDataScience,
		CategoryQuant, CategoryProductManagement, CategoryHardware, CategoryOther:
		return true
	}
	return false
}

// ParseCategory converts a raw string to a Category, returning an error
// for unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Sponsorship describes visa sponsorship as reported by the posting.
type Sponsorship string

const (
	SponsorshipSponsors      Sponsorship = "sponsors"
	SponsorshipNone          Sponsorship = "no-sponsorship"
	SponsorshipUSCitizenship Sponsorship = "us-citizenship-required"
	SponsorshipUnknown       Sponsorship = "unknown"
)

// IsValid checks if the sponsorship value is valid
func (s Sponsorship) IsValid() bool {
	switch s {
	case SponsorshipSponsors, SponsorshipNone, SponsorshipUSCitizenship, SponsorshipUnknown:
		return true
	}
	return false
}

// ParseSponsorship converts a raw string to a Sponsorship, returning an
// error for unknown values.
func ParseSponsorship(s string) (Sponsorship, error) {
	sp := Sponsorship(strings.ToLower(strings.TrimSpace(s)))
	if !sp.IsValid() {
		return "", fmt.Errorf("unknown sponsorship %q", s)
	}
	return sp, nil
}

// ListingStatus represents the lifecycle state of a listing.
//
// Valid transitions:
//
//	open --(2 consecutive not-found checks)--> closed
//
// closed never returns to open; a genuine re-post enters as a logically
// new active entry through the dedup engine.
type ListingStatus string

const (
	StatusOpen    ListingStatus = "open"
	StatusClosed  ListingStatus = "closed"
	StatusUnknown ListingStatus = "unknown"
)

// IsValid checks if the status value is valid
func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusUnknown:
		return true
	}
	return false
}

// Source tags where a candidate listing was discovered.
type Source string

const (
	SourceGreenhouse    Source = "greenhouse"
	SourceLever         Source = "lever"
	SourceAshby         Source = "ashby"
	SourceScrape        Source = "scrape"
	SourceGitHubMonitor Source = "github-monitor"
	SourceIssueIntake   Source = "issue-intake"
	SourceImport        Source = "import"
)

// IsFreshDiscovery reports whether the source independently verified the
// posting as currently live. Bulk imports are carryovers and do not
// count: they must not resurrect an archived listing.
func (s Source) IsFreshDiscovery() bool {
	switch s {
	case SourceGreenhouse, SourceLever, SourceAshby, SourceScrape,
		SourceGitHubMonitor, SourceIssueIntake:
		return true
	}
	return false
}

// LinkHealthRecord tracks the consecutive-failure streak for one
// listing's apply URL. It is created on the first check and never exists
// for a listing that has not been checked yet.
type LinkHealthRecord struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastChecked         time.Time `json:"last_checked"`
}

// CheckOutcome is the fully-resolved result of one link-health probe,
// handed to the reconciler by the link-check layer.
type CheckOutcome string

const (
	OutcomeOK             CheckOutcome = "ok"
	OutcomeNotFound       CheckOutcome = "not-found"
	OutcomeTransientError CheckOutcome = "transient-error"
	OutcomeUnknownError   CheckOutcome = "unknown-error"
)

// IsValid checks if the outcome value is valid
func (o CheckOutcome) IsValid() bool {
	switch o {
	case OutcomeOK, OutcomeNotFound, OutcomeTransientError, OutcomeUnknownError:
		return true
	}
	return false
}

// RawListing is a discovery result before AI validation. It carries only
// what a board API or scraped page reports.
type RawListing struct {
	Company   string            `json:"company"`
	Title     string            `json:"title"`
	Location  string            `json:"location"`
	URL       string            `json:"url"`
	Source    Source            `json:"source"`
	RawData   map[string]string `json:"raw_data,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}
