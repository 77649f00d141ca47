package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctsc/internship-tracker/internal/config"
	"github.com/ctsc/internship-tracker/internal/types"
)

func configAI() config.AI {
	return config.AI{MaxRetries: 1, RequestTimeout: config.Duration(5 * time.Second)}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare array",
			input: `[{"valid":true}]`,
			want:  `[{"valid":true}]`,
		},
		{
			name:  "json fence",
			input: "Here are the results:\n```json\n[{\"valid\":true}]\n```\nDone.",
			want:  `[{"valid":true}]`,
		},
		{
			name:  "plain fence",
			input: "```\n[{\"valid\":false}]\n```",
			want:  `[{"valid":false}]`,
		},
		{
			name:  "prose around array",
			input: `Sure! [{"valid":true}] Hope that helps.`,
			want:  `[{"valid":true}]`,
		},
		{
			name:  "object payload",
			input: `The answer is {"valid":true} as requested.`,
			want:  `{"valid":true}`,
		},
		{
			name:  "no json at all",
			input: "I could not process that.",
			want:  "I could not process that.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	batch := []types.RawListing{
		{Company: "Stripe", Title: "SWE Intern", URL: "https://stripe.com/jobs/1", Source: types.SourceGreenhouse},
		{Company: "Figma", Title: "Design Intern", URL: "https://figma.com/jobs/2", Source: types.SourceLever},
	}
	prompt, err := buildPrompt(batch)
	require.NoError(t, err)

	assert.Contains(t, prompt, "JSON array")
	assert.Contains(t, prompt, `1. {"company":"Stripe"`)
	assert.Contains(t, prompt, `2. {"company":"Figma"`)
	assert.Contains(t, prompt, "requires_advanced_degree")
}

func TestDecisionToListing(t *testing.T) {
	raw := types.RawListing{
		Company:  "stripe inc",
		Title:    "swe intern (summer)",
		Location: "SF",
		URL:      "https://stripe.com/jobs/1",
		Source:   types.SourceGreenhouse,
	}
	d := Decision{
		Valid:             true,
		Company:           "Stripe",
		Role:              "Software Engineer Intern",
		Locations:         []string{"San Francisco, CA"},
		Category:          "software-engineering",
		Sponsorship:       "sponsors",
		IsNotableEmployer: true,
		RemoteFriendly:    true,
	}

	l := decisionToListing(d, raw)
	assert.Equal(t, "Stripe", l.Company)
	assert.Equal(t, "Software Engineer Intern", l.Role)
	assert.Equal(t, []string{"San Francisco, CA"}, l.Locations)
	assert.Equal(t, types.CategorySoftwareEngineering, l.Category)
	assert.Equal(t, types.SponsorshipSponsors, l.Sponsorship)
	assert.Equal(t, "https://stripe.com/jobs/1", l.ApplyURL)
	assert.Equal(t, types.SourceGreenhouse, l.Source)
	assert.True(t, l.IsNotableEmployer)
}

func TestDecisionToListing_FallbacksAndLenientEnums(t *testing.T) {
	raw := types.RawListing{
		Company:  "Acme",
		Title:    "Acme Intern",
		Location: "Austin, TX",
		URL:      "https://acme.test/1",
		Source:   types.SourceScrape,
	}
	// Model returned garbage enums and no cleaned fields.
	d := Decision{Valid: true, Category: "engineering??", Sponsorship: "maybe"}

	l := decisionToListing(d, raw)
	assert.Equal(t, "Acme", l.Company)
	assert.Equal(t, "Acme Intern", l.Role)
	assert.Equal(t, []string{"Austin, TX"}, l.Locations)
	assert.Equal(t, types.CategoryOther, l.Category)
	assert.Equal(t, types.SponsorshipUnknown, l.Sponsorship)
}

func TestNewClassifier_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewClassifier(configAI())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestNewClassifier_ModelSelection(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	t.Setenv("INTERNTRACK_MODEL", "")
	c, err := NewClassifier(configAI())
	require.NoError(t, err)
	assert.Equal(t, ModelDefault, c.model)

	t.Setenv("INTERNTRACK_MODEL", "claude-sonnet-4-5-20250929")
	c, err = NewClassifier(configAI())
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250929", c.model)

	cfg := configAI()
	cfg.Model = "explicit-model"
	c, err = NewClassifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, "explicit-model", c.model)
}
