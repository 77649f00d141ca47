// Package identity derives the stable content-hash id for a listing.
//
// The id is a pure function of normalized (company, role, sorted
// locations): same logical posting, same id, across runs and restarts.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fieldSeparator joins normalized fields before hashing. The unit
// separator control byte never appears in scraped text, so "stripe"+"a"
// and "stripea" cannot collide across a field boundary.
const fieldSeparator = "\x1f"

// Normalize canonicalizes a single field: Unicode NFKC, lowercase, trim,
// and collapse internal whitespace runs to single spaces.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLocations normalizes each location and sorts the result
// lexicographically so ordering differences between sources do not change
// the id.
func NormalizeLocations(locations []string) []string {
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		out = append(out, Normalize(loc))
	}
	sort.Strings(out)
	return out
}

// DeriveID computes the 256-bit content hash identifying a listing.
// Empty company or role is permitted and hashes as the empty string.
func DeriveID(company, role string, locations []string) string {
	parts := append([]string{Normalize(company), Normalize(role)}, NormalizeLocations(locations)...)
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}
