package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"finanzas/internal/core"
)

// SeedData is the reference data every installation needs before import:
// currencies and category groups.
type SeedData struct {
	Badges []core.Badge `yaml:"badges"`
	Groups []core.Group `yaml:"groups"`
}

// LoadSeedFile reads a YAML seed file such as:
//
//	badges:
//	  - {code: EUR, symbol: "€", flag: "🇪🇺", description: Euro}
//	groups:
//	  - {name: Fixed costs}
func LoadSeedFile(path string) (SeedData, error) {
	var data SeedData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("read seed file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for _, b := range data.Badges {
		if err := b.Validate(); err != nil {
			return data, fmt.Errorf("seed badge %q: %w", b.Code, err)
		}
	}
	for _, g := range data.Groups {
		if err := g.Validate(); err != nil {
			return data, fmt.Errorf("seed group %q: %w", g.Name, err)
		}
	}
	return data, nil
}

// Seed inserts seed rows, skipping the ones already present.
func (r *SQLiteRepository) Seed(ctx context.Context, data SeedData) (badges, groups int, err error) {
	badges, err = r.Badges.InsertIgnore(ctx, data.Badges)
	if err != nil {
		return 0, 0, fmt.Errorf("seed badges: %w", err)
	}
	groups, err = r.Groups.InsertIgnore(ctx, data.Groups)
	if err != nil {
		return badges, 0, fmt.Errorf("seed groups: %w", err)
	}
	slog.InfoContext(ctx, "Seed data applied",
		"badges_inserted", badges,
		"groups_inserted", groups)
	return badges, groups, nil
}
