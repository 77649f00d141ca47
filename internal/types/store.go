package types

import (
	"fmt"
	"time"
)

// Store is the persisted collection of all tracked listings.
//
// Archived entries are terminal; a verified re-post of an archived id
// enters Active as a fresh entity while the archived copy stays for
// history.
type Store struct {
	Active     map[string]*Listing          `json:"active"`
	Archived   map[string]*Listing          `json:"archived"`
	LinkHealth map[string]*LinkHealthRecord `json:"link_health"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewStore returns an empty store with all maps initialized.
func NewStore() *Store {
	return &Store{
		Active:     make(map[string]*Listing),
		Archived:   make(map[string]*Listing),
		LinkHealth: make(map[string]*LinkHealthRecord),
	}
}

// Init ensures all maps are non-nil after a JSON round-trip of an older
// or partial document.
func (s *Store) Init() {
	if s.Active == nil {
		s.Active = make(map[string]*Listing)
	}
	if s.Archived == nil {
		s.Archived = make(map[string]*Listing)
	}
	if s.LinkHealth == nil {
		s.LinkHealth = make(map[string]*LinkHealthRecord)
	}
}

// Validate checks structural invariants across the three maps.
//
// An id normally appears in at most one of Active/Archived. The one
// exception is a verified re-post of an archived listing: the fresh open
// entry carries the same derived id while the archived copy is retained
// for history, until the re-post itself closes and supersedes it.
func (s *Store) Validate() error {
	for id, l := range s.Active {
		if l == nil {
			return fmt.Errorf("active listing %s is nil", id)
		}
		if l.ID != id {
			return fmt.Errorf("active listing keyed %s carries id %s", id, l.ID)
		}
	}
	for id, l := range s.Archived {
		if l == nil {
			return fmt.Errorf("archived listing %s is nil", id)
		}
		if l.ID != id {
			return fmt.Errorf("archived listing keyed %s carries id %s", id, l.ID)
		}
	}
	for id := range s.LinkHealth {
		if _, ok := s.Active[id]; !ok {
			// Health records for archived/unknown ids are a defect: the
			// archival sweep removes them with the listing.
			return fmt.Errorf("link health record for non-active listing %s", id)
		}
	}
	return nil
}
