// Package match implements fuzzy near-duplicate detection for listings
// whose derived ids differ.
//
// It is a flagging heuristic, not an automatic merge: only an
// auto-suppress-grade match (exact company, near-identical role) is
// rejected outright by the dedup engine; lesser matches are logged for
// manual review.
package match

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ctsc/internship-tracker/internal/identity"
	"github.com/ctsc/internship-tracker/internal/types"
)

// Config holds the fuzzy-match thresholds.
type Config struct {
	// MaxCompanyDistance is the exclusive upper bound on edit distance
	// between normalized company names for a probable duplicate.
	// Default: 3 (distance must be < 3).
	MaxCompanyDistance int `yaml:"max_company_distance"`

	// MinRoleOverlap is the exclusive lower bound on role token-overlap
	// ratio (shared tokens / union of tokens) for a probable duplicate.
	// Default: 0.8 (overlap must be strictly greater).
	MinRoleOverlap float64 `yaml:"min_role_overlap"`

	// AutoSuppressOverlap is the inclusive role-overlap threshold at
	// which a match with identical company (distance 0) is suppressed
	// automatically instead of only flagged. Default: 0.95.
	AutoSuppressOverlap float64 `yaml:"auto_suppress_overlap"`
}

// DefaultConfig returns the standard thresholds. They are deliberately
// conservative: distinct roles at the same company must not auto-merge.
func DefaultConfig() Config {
	return Config{
		MaxCompanyDistance:  3,
		MinRoleOverlap:      0.8,
		AutoSuppressOverlap: 0.95,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxCompanyDistance < 1 {
		return fmt.Errorf("max_company_distance must be positive (got %d)", c.MaxCompanyDistance)
	}
	if c.MinRoleOverlap <= 0 || c.MinRoleOverlap > 1 {
		return fmt.Errorf("min_role_overlap must be in (0, 1] (got %.2f)", c.MinRoleOverlap)
	}
	if c.AutoSuppressOverlap < c.MinRoleOverlap || c.AutoSuppressOverlap > 1 {
		return fmt.Errorf("auto_suppress_overlap must be in [min_role_overlap, 1] (got %.2f)",
			c.AutoSuppressOverlap)
	}
	return nil
}

// Matcher compares listing pairs against the configured thresholds.
type Matcher struct {
	cfg Config
}

// New creates a Matcher, falling back to defaults for a zero Config.
func New(cfg Config) *Matcher {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Matcher{cfg: cfg}
}

// IsProbableDuplicate reports whether a and b look like the same posting.
// Meaningful only when a.ID != b.ID. Locations are ignored: the same
// posting often appears with different location phrasing.
func (m *Matcher) IsProbableDuplicate(a, b *types.Listing) bool {
	if CompanyDistance(a.Company, b.Company) >= m.cfg.MaxCompanyDistance {
		return false
	}
	return RoleOverlap(a.Role, b.Role) > m.cfg.MinRoleOverlap
}

// IsAutoSuppress reports whether the pair matches strongly enough for the
// dedup engine to reject the candidate without review: identical
// normalized company and role overlap at or above the suppress threshold.
func (m *Matcher) IsAutoSuppress(a, b *types.Listing) bool {
	if CompanyDistance(a.Company, b.Company) != 0 {
		return false
	}
	return RoleOverlap(a.Role, b.Role) >= m.cfg.AutoSuppressOverlap
}

// CompanyDistance is the Levenshtein distance between normalized company
// names.
func CompanyDistance(a, b string) int {
	return levenshtein(identity.Normalize(a), identity.Normalize(b))
}

// RoleOverlap is the token-set overlap ratio of two role strings:
// |shared| / |union| after lowercasing and stripping punctuation.
// Two empty roles overlap fully.
func RoleOverlap(a, b string) float64 {
	ta := roleTokens(a)
	tb := roleTokens(b)
	union := ta.Union(tb)
	if union.Cardinality() == 0 {
		return 1.0
	}
	shared := ta.Intersect(tb)
	return float64(shared.Cardinality()) / float64(union.Cardinality())
}

func roleTokens(role string) mapset.Set[string] {
	cleaned := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return ' '
	}, role)

	set := mapset.NewSet[string]()
	for _, tok := range strings.Fields(cleaned) {
		set.Add(tok)
	}
	return set
}

// levenshtein computes edit distance with the usual two-row rolling
// table. Operates on runes so non-ASCII company names measure correctly.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
