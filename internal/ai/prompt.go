package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ctsc/internship-tracker/internal/types"
)

const promptHeader = `You are reviewing scraped job postings for an internship tracker.
For each posting below, decide whether it is a genuine internship or co-op
position that a student could apply to right now. Reject full-time roles,
new-grad roles, expired or placeholder postings, and anything that is not
an actual job posting.

Respond with ONLY a JSON array, one object per posting, in the same order
as the input. Each object must have exactly these fields:

  valid                    boolean, true if this is a real open internship
  reason                   short string, why it was rejected (empty if valid)
  company                  cleaned-up company name
  role                     cleaned-up role title
  locations                array of strings, e.g. ["San Francisco, CA", "Remote"]
  category                 one of: software-engineering, ml-ai, data-science,
                           quant, product-management, hardware, other
  sponsorship              one of: sponsors, no-sponsorship,
                           us-citizenship-required, unknown
  requires_us_citizenship  boolean
  is_notable_employer      boolean, well-known or prestigious employer
  requires_advanced_degree boolean, MS/PhD required
  remote_friendly          boolean

Postings:

`

// buildPrompt renders the classification prompt for one batch. The
// postings are embedded as JSON so the model sees exactly what was
// scraped, including any raw metadata.
func buildPrompt(batch []types.RawListing) (string, error) {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, raw := range batch {
		data, err := json.Marshal(raw)
		if err != nil {
			return "", fmt.Errorf("failed to marshal listing %d: %w", i, err)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, data)
	}
	return b.String(), nil
}
