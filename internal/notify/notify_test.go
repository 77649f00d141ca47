package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ctsc/internship-tracker/internal/types"
)

func sampleDigest() Digest {
	return Digest{
		RunID: "run-1",
		When:  time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		Added: []*types.Listing{
			{Company: "Stripe", Role: "SWE Intern", Locations: []string{"SF", "NYC"}, ApplyURL: "https://stripe.com/jobs/1"},
			{Company: "Acme", Role: "Data Intern", ApplyURL: "https://acme.test/2"},
		},
		Closed:   []string{"abc"},
		Archived: []string{"def", "ghi"},
	}
}

func TestDigestSubject(t *testing.T) {
	assert.Equal(t, "interntrack: 2 new, 1 closed, 2 archived", sampleDigest().Subject())
}

func TestDigestBody(t *testing.T) {
	body := sampleDigest().Body()
	assert.Contains(t, body, "New listings (2):")
	assert.Contains(t, body, "Stripe: SWE Intern (SF; NYC)")
	assert.Contains(t, body, "https://stripe.com/jobs/1")
	assert.Contains(t, body, "Acme: Data Intern (location unknown)")
	assert.Contains(t, body, "Closed after repeated dead-link checks: 1")
	assert.Contains(t, body, "Archived: 2")
}

func TestDigestEmpty(t *testing.T) {
	assert.True(t, Digest{RunID: "x"}.Empty())
	assert.False(t, sampleDigest().Empty())
}

type recordingSender struct {
	sent []Digest
	err  error
}

func (r *recordingSender) Send(d Digest) error {
	r.sent = append(r.sent, d)
	return r.err
}

func TestBroadcast_SkipsEmptyDigest(t *testing.T) {
	r := &recordingSender{}
	Broadcast([]Sender{r}, Digest{})
	assert.Empty(t, r.sent)
}

func TestBroadcast_ChannelIsolation(t *testing.T) {
	failing := &recordingSender{err: fmt.Errorf("smtp down")}
	healthy := &recordingSender{}

	Broadcast([]Sender{failing, healthy}, sampleDigest())
	assert.Len(t, failing.sent, 1)
	assert.Len(t, healthy.sent, 1)
}
