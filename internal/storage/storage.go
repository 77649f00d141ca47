// Package storage persists the listing store as a single JSON document
// and guards runs with an exclusive lock file.
//
// Persistence is an explicit boundary: components mutate an in-memory
// Store snapshot and the pipeline writes it back exactly once per run.
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ctsc/internship-tracker/internal/types"
)

// Load reads the store document from path. A missing file yields an
// empty store: the first run starts from nothing.
func Load(path string) (*types.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[storage] %s not found, starting with an empty store", path)
			return types.NewStore(), nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	store := types.NewStore()
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("failed to parse store %s: %w", path, err)
	}
	store.Init()

	if err := store.Validate(); err != nil {
		return nil, fmt.Errorf("store %s failed validation: %w", path, err)
	}

	log.Printf("[storage] loaded store: %d active, %d archived, %d link-health record(s)",
		len(store.Active), len(store.Archived), len(store.LinkHealth))
	return store, nil
}

// Save writes the store atomically: the document goes to a temp file in
// the same directory, then replaces the target with a rename. An
// interrupted run leaves the previous document intact, never a partial
// write.
func Save(path string, store *types.Store) error {
	if err := store.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid store: %w", err)
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	log.Printf("[storage] saved store to %s (%d active, %d archived)",
		path, len(store.Active), len(store.Archived))
	return nil
}
