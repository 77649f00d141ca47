// Package ai validates and enriches raw discovery results with the
// Anthropic API. The classifier decides whether each row is a genuine,
// currently-open internship and fills in the structured fields the
// trackers downstream rely on.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

const (
	// ModelDefault is the cost-efficient model classification runs on.
	// Override with INTERNTRACK_MODEL or config.
	ModelDefault = "claude-3-5-haiku-20241022"

	// batchSize bounds listings per prompt so responses stay well under
	// the output token limit.
	batchSize = 10

	maxResponseTokens = 4096
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
)

// defaultModel returns the classification model, checking the
// INTERNTRACK_MODEL env var first.
func defaultModel() string {
	if m := os.Getenv("INTERNTRACK_MODEL"); m != "" {
		return m
	}
	return ModelDefault
}

// Decision is the model's verdict on one raw listing.
type Decision struct {
	Valid                  bool     `json:"valid"`
	Reason                 string   `json:"reason,omitempty"`
	Company                string   `json:"company"`
	Role                   string   `json:"role"`
	Locations              []string `json:"locations"`
	Category               string   `json:"category"`
	Sponsorship            string   `json:"sponsorship"`
	RequiresUSCitizenship  bool     `json:"requires_us_citizenship"`
	IsNotableEmployer      bool     `json:"is_notable_employer"`
	RequiresAdvancedDegree bool     `json:"requires_advanced_degree"`
	RemoteFriendly         bool     `json:"remote_friendly"`
}

// Validator turns raw discovery rows into listing candidates. Satisfied
// by Classifier and by test stubs.
type Validator interface {
	Validate(ctx context.Context, raws []types.RawListing) ([]*types.Listing, error)
}

// Classifier validates raw listings through the Anthropic messages API.
type Classifier struct {
	client     *anthropic.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

// NewClassifier builds a classifier from config. ANTHROPIC_API_KEY must
// be set.
func NewClassifier(cfg config.AI) (*Classifier, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Classifier{
		client:     &client,
		model:      model,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.RequestTimeout.Std(),
	}, nil
}

// Validate classifies the raw listings in batches and returns candidates
// for the rows the model accepted. Rejected rows are logged with the
// model's reason. A batch whose response cannot be parsed is skipped
// rather than failing the whole run.
func (c *Classifier) Validate(ctx context.Context, raws []types.RawListing) ([]*types.Listing, error) {
	var out []*types.Listing
	for start := 0; start < len(raws); start += batchSize {
		end := start + batchSize
		if end > len(raws) {
			end = len(raws)
		}
		batch := raws[start:end]

		decisions, err := c.classifyBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("[ai] batch %d-%d failed, skipping: %v", start, end, err)
			continue
		}
		if len(decisions) != len(batch) {
			log.Printf("[ai] batch %d-%d: expected %d decisions, got %d, skipping", start, end, len(batch), len(decisions))
			continue
		}
		for i, d := range decisions {
			if !d.Valid {
				log.Printf("[ai] rejected %q at %s: %s", batch[i].Title, batch[i].Company, d.Reason)
				continue
			}
			out = append(out, decisionToListing(d, batch[i]))
		}
	}
	return out, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, batch []types.RawListing) ([]Decision, error) {
	prompt, err := buildPrompt(batch)
	if err != nil {
		return nil, err
	}

	text, err := c.callAPI(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var decisions []Decision
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &decisions); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	return decisions, nil
}

// callAPI makes one messages call with retry and exponential backoff.
func (c *Classifier) callAPI(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: maxResponseTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		cancel()

		if err == nil {
			var text strings.Builder
			for _, block := range resp.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			if attempt > 0 {
				log.Printf("[ai] call succeeded after %d retries", attempt)
			}
			return text.String(), nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < c.maxRetries {
			log.Printf("[ai] call failed (attempt %d/%d), retrying in %v: %v", attempt+1, c.maxRetries+1, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return "", fmt.Errorf("anthropic API call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// decisionToListing converts an accepted decision into a candidate. The
// model's enum values are parsed leniently; anything unrecognized falls
// back to other/unknown.
func decisionToListing(d Decision, raw types.RawListing) *types.Listing {
	company := d.Company
	if company == "" {
		company = raw.Company
	}
	role := d.Role
	if role == "" {
		role = raw.Title
	}

	category, err := types.ParseCategory(d.Category)
	if err != nil {
		category = types.CategoryOther
	}
	sponsorship, err := types.ParseSponsorship(d.Sponsorship)
	if err != nil {
		sponsorship = types.SponsorshipUnknown
	}

	locations := d.Locations
	if len(locations) == 0 && raw.Location != "" {
		locations = []string{raw.Location}
	}

	return &types.Listing{
		Company:                company,
		Role:                   role,
		Locations:              locations,
		Category:               category,
		ApplyURL:               raw.URL,
		Sponsorship:            sponsorship,
		RequiresUSCitizenship:  d.RequiresUSCitizenship,
		IsNotableEmployer:      d.IsNotableEmployer,
		RequiresAdvancedDegree: d.RequiresAdvancedDegree,
		RemoteFriendly:         d.RemoteFriendly,
		Source:                 raw.Source,
	}
}

// ExtractJSON pulls the JSON payload out of a model response that may
// wrap it in markdown fences or surrounding prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}

	// Fall back to the outermost bracket pair.
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return text
	}
	var end int
	if text[start] == '[' {
		end = strings.LastIndex(text, "]")
	} else {
		end = strings.LastIndex(text, "}")
	}
	if end > start {
		return text[start : end+1]
	}
	return text
}
