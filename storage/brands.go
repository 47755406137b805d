package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"carousel/model"

	"github.com/google/uuid"
)

// BrandMetadata is a lightweight view of a brand for listing.
type BrandMetadata struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// BrandStore keeps one JSON file per brand.
type BrandStore struct {
	dir string
}

func NewBrandStore(dataDir string) (*BrandStore, error) {
	dir := filepath.Join(dataDir, "brands")

	// 0700 - user-only access
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create brands directory: %w", err)
	}
	return &BrandStore{dir: dir}, nil
}

func (s *BrandStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes a brand, assigning an ID when it has none.
func (s *BrandStore) Save(brand *model.BrandRecord) error {
	if brand.ID == "" {
		brand.ID = uuid.New().String()
	}
	if strings.ContainsAny(brand.ID, `/\`) {
		return fmt.Errorf("invalid brand id %q", brand.ID)
	}

	data, err := json.MarshalIndent(brand, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal brand: %w", err)
	}

	// 0600 - user read/write only
	if err := os.WriteFile(s.path(brand.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write brand file: %w", err)
	}
	return nil
}

// Load reads a brand by ID.
func (s *BrandStore) Load(id string) (*model.BrandRecord, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid brand id %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("brand %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read brand file: %w", err)
	}

	var brand model.BrandRecord
	if err := json.Unmarshal(data, &brand); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brand: %w", err)
	}
	if brand.ID == "" {
		brand.ID = id
	}
	return &brand, nil
}

// Get implements the orchestrator's brand lookup.
func (s *BrandStore) Get(_ context.Context, id string) (*model.BrandRecord, error) {
	return s.Load(id)
}

// List returns every stored brand sorted by name.
func (s *BrandStore) List() ([]BrandMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read brands directory: %w", err)
	}

	var out []BrandMetadata
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		brand, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip corrupted files
			continue
		}
		out = append(out, BrandMetadata{ID: brand.ID, Name: brand.Name, Sector: brand.Sector})
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Find returns brands whose name or sector contains query, case-insensitively.
func (s *BrandStore) Find(query string) ([]BrandMetadata, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	var out []BrandMetadata
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Name), q) || strings.Contains(strings.ToLower(b.Sector), q) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BrandStore) Delete(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid brand id %q", id)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("brand %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	return nil
}
