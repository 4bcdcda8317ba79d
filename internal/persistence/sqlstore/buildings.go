package sqlstore

import (
	"context"
	"fmt"

	"github.com/example/campus-yoga/internal/persistence"
)

var _ persistence.BuildingRepository = (*Store)(nil)

// UpsertBuilding inserts the building or replaces the stored details of an existing id.
func (s *Store) UpsertBuilding(ctx context.Context, building persistence.Building) error {
	row := buildingRow{
		ID:        building.ID,
		Name:      building.Name,
		Address:   building.Address,
		Latitude:  nullFloat(building.Latitude),
		Longitude: nullFloat(building.Longitude),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO buildings (id, name, address, latitude, longitude)
		VALUES (:id, :name, :address, :latitude, :longitude)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			latitude = excluded.latitude,
			longitude = excluded.longitude`, row)
	if err != nil {
		return fmt.Errorf("upsert building %s: %w", building.ID, mapError(err))
	}
	return nil
}

// GetBuilding loads a building by id.
func (s *Store) GetBuilding(ctx context.Context, id string) (persistence.Building, error) {
	var row buildingRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, name, address, latitude, longitude FROM buildings WHERE id = ?`), id)
	if err != nil {
		return persistence.Building{}, fmt.Errorf("get building %s: %w", id, mapError(err))
	}
	return row.model(), nil
}

// ListBuildings returns every building ordered by name.
func (s *Store) ListBuildings(ctx context.Context) ([]persistence.Building, error) {
	var rows []buildingRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, address, latitude, longitude FROM buildings ORDER BY name ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list buildings: %w", mapError(err))
	}
	buildings := make([]persistence.Building, 0, len(rows))
	for _, row := range rows {
		buildings = append(buildings, row.model())
	}
	return buildings, nil
}
