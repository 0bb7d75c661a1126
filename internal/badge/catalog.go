package badge

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogEntry struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Icon        string   `yaml:"icon"`
	Category    string   `yaml:"category"`
	Rarity      string   `yaml:"rarity"`
	Criteria    Criteria `yaml:"criteria"`
	Inactive    bool     `yaml:"inactive"`
}

// LoadCatalog parses a YAML badge catalog. A nil src reads the embedded one.
func LoadCatalog(src []byte) ([]Badge, error) {
	if src == nil {
		src = catalogYAML
	}
	var doc struct {
		Badges []catalogEntry `yaml:"badges"`
	}
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("parse badge catalog: %w", err)
	}
	out := make([]Badge, 0, len(doc.Badges))
	seen := make(map[string]bool, len(doc.Badges))
	for i, e := range doc.Badges {
		if e.Key == "" || e.Name == "" {
			return nil, fmt.Errorf("badge catalog entry %d: key and name are required", i)
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("badge catalog: duplicate key %q", e.Key)
		}
		seen[e.Key] = true
		if e.Rarity == "" {
			e.Rarity = "common"
		}
		out = append(out, Badge{
			Key:         e.Key,
			Name:        e.Name,
			Description: e.Description,
			Icon:        e.Icon,
			Category:    e.Category,
			Rarity:      e.Rarity,
			Criteria:    e.Criteria,
			IsActive:    !e.Inactive,
		})
	}
	return out, nil
}

// Seeder writes catalog entries; *repo.BadgeRepo implements it.
type Seeder interface {
	Upsert(ctx context.Context, b *Badge) error
}

// SeedCatalog upserts every badge of the catalog and returns how many were written.
func SeedCatalog(ctx context.Context, s Seeder, src []byte) (int, error) {
	badges, err := LoadCatalog(src)
	if err != nil {
		return 0, err
	}
	for i := range badges {
		if err := s.Upsert(ctx, &badges[i]); err != nil {
			return i, fmt.Errorf("seed badge %s: %w", badges[i].Key, err)
		}
	}
	return len(badges), nil
}
