package sqlstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/campus-yoga/internal/persistence"
)

// BuildingSeed is one entry of the locations file.
type BuildingSeed struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Address   string   `yaml:"address"`
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
}

type locationsFile struct {
	Buildings []BuildingSeed `yaml:"buildings"`
}

// LoadBuildingSeeds reads a YAML locations file of the form
//
//	buildings:
//	  - id: rec-center
//	    name: Recreation Center
//	    address: 100 Campus Dr
func LoadBuildingSeeds(path string) ([]persistence.Building, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	return ParseBuildingSeeds(data)
}

// ParseBuildingSeeds decodes YAML locations. Entries without an id or name are rejected.
func ParseBuildingSeeds(data []byte) ([]persistence.Building, error) {
	var file locationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode locations file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Buildings))
	buildings := make([]persistence.Building, 0, len(file.Buildings))
	for i, seed := range file.Buildings {
		id := strings.TrimSpace(seed.ID)
		name := strings.TrimSpace(seed.Name)
		if id == "" || name == "" {
			return nil, fmt.Errorf("locations file: entry %d needs id and name", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("locations file: duplicate building id %q", id)
		}
		seen[id] = struct{}{}
		buildings = append(buildings, persistence.Building{
			ID:        id,
			Name:      name,
			Address:   strings.TrimSpace(seed.Address),
			Latitude:  seed.Latitude,
			Longitude: seed.Longitude,
		})
	}
	return buildings, nil
}

// SeedBuildings upserts every building and returns how many were written.
func (s *Store) SeedBuildings(ctx context.Context, buildings []persistence.Building) (int, error) {
	for i, building := range buildings {
		if err := s.UpsertBuilding(ctx, building); err != nil {
			return i, err
		}
	}
	s.log(ctx).Info("buildings seeded", "count", len(buildings))
	return len(buildings), nil
}
