// Package render produces the public README listing tables from the
// store. Output is deterministic: the same store always renders to the
// same bytes, so a run with no changes produces no diff.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctsc/internship-tracker/internal/types"
)

// section order in the rendered document. Categories with no open
// listings are omitted.
var categoryOrder = []types.Category{
	types.CategorySoftwareEngineering,
	types.CategoryMLAI,
	types.CategoryDataScience,
	types.CategoryQuant,
	types.CategoryProductManagement,
	types.CategoryHardware,
	types.CategoryOther,
}

var categoryHeadings = map[types.Category]string{
	types.CategorySoftwareEngineering: "Software Engineering",
	types.CategoryMLAI:                "Machine Learning & AI",
	types.CategoryDataScience:         "Data Science",
	types.CategoryQuant:               "Quantitative Finance",
	types.CategoryProductManagement:   "Product Management",
	types.CategoryHardware:            "Hardware Engineering",
	types.CategoryOther:               "Other",
}

// Render produces the full README markdown for the store's open
// listings. Closed listings stay out of the document even before the
// archiver sweeps them.
func Render(store *types.Store, now time.Time) string {
	open := openListings(store)

	var b strings.Builder
	b.WriteString("# Internship Listings\n\n")
	fmt.Fprintf(&b, "**%d open positions.** Last updated %s.\n\n", len(open), now.UTC().Format("January 2, 2006"))
	b.WriteString("Legend: 🛂 no visa sponsorship · 🇺🇸 requires U.S. citizenship · 🎓 advanced degree required · 🏠 remote friendly\n")

	for _, cat := range categoryOrder {
		group := open[cat]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", categoryHeadings[cat])
		b.WriteString("| Company | Role | Location | Application |\n")
		b.WriteString("| ------- | ---- | -------- | ----------- |\n")

		prevCompany := ""
		for _, l := range group {
			company := companyCell(l)
			if l.Company == prevCompany {
				company = "↳"
			} else {
				prevCompany = l.Company
			}
			fmt.Fprintf(&b, "| %s | %s | %s | [Apply](%s) |\n",
				company, roleCell(l), locationCell(l), l.ApplyURL)
		}
	}
	return b.String()
}

// WriteFile renders the store and writes the document atomically.
func WriteFile(path string, store *types.Store, now time.Time) error {
	content := Render(store, now)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// openListings groups the store's open listings by category, each group
// sorted notable-first, then company, then role.
func openListings(store *types.Store) map[types.Category][]*types.Listing {
	groups := make(map[types.Category][]*types.Listing)
	for _, l := range store.Active {
		if l.Status != types.StatusOpen {
			continue
		}
		groups[l.Category] = append(groups[l.Category], l)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.IsNotableEmployer != b.IsNotableEmployer {
				return a.IsNotableEmployer
			}
			if a.Company != b.Company {
				return a.Company < b.Company
			}
			if a.Role != b.Role {
				return a.Role < b.Role
			}
			return a.ID < b.ID
		})
	}
	return groups
}

func companyCell(l *types.Listing) string {
	if l.IsNotableEmployer {
		return "**" + escapeCell(l.Company) + "**"
	}
	return escapeCell(l.Company)
}

func roleCell(l *types.Listing) string {
	cell := escapeCell(l.Role)
	var badges []string
	if l.Sponsorship == types.SponsorshipNone {
		badges = append(badges, "🛂")
	}
	if l.RequiresUSCitizenship {
		badges = append(badges, "🇺🇸")
	}
	if l.RequiresAdvancedDegree {
		badges = append(badges, "🎓")
	}
	if l.RemoteFriendly {
		badges = append(badges, "🏠")
	}
	if len(badges) > 0 {
		cell += " " + strings.Join(badges, " ")
	}
	return cell
}

func locationCell(l *types.Listing) string {
	if len(l.Locations) == 0 {
		return "—"
	}
	// Long location lists collapse to keep rows readable.
	if len(l.Locations) > 3 {
		return fmt.Sprintf("%s + %d more", escapeCell(l.Locations[0]), len(l.Locations)-1)
	}
	escaped := make([]string, len(l.Locations))
	for i, loc := range l.Locations {
		escaped[i] = escapeCell(loc)
	}
	return strings.Join(escaped, "; ")
}

// escapeCell keeps cell text from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
