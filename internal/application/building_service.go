package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// BuildingInput captures the admin form for a campus location.
type BuildingInput struct {
	ID        string   `json:"id" validate:"required,max=64"`
	Name      string   `json:"name" validate:"required,max=120"`
	Address   string   `json:"address" validate:"max=240"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// BuildingService exposes the location catalog and lets administrators maintain it.
type BuildingService struct {
	buildings BuildingRepository
	logger    *slog.Logger
}

// NewBuildingService constructs a building service.
func NewBuildingService(buildings BuildingRepository) *BuildingService {
	return NewBuildingServiceWithLogger(buildings, nil)
}

// NewBuildingServiceWithLogger constructs a building service with a specified logger.
func NewBuildingServiceWithLogger(buildings BuildingRepository, logger *slog.Logger) *BuildingService {
	return &BuildingService{buildings: buildings, logger: defaultLogger(logger)}
}

func (s *BuildingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BuildingService", operation, attrs...)
}

// SaveBuilding creates or replaces a building for administrators.
func (s *BuildingService) SaveBuilding(ctx context.Context, principal Principal, input BuildingInput) (building Building, err error) {
	if s == nil {
		err = fmt.Errorf("BuildingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SaveBuilding",
		"principal_id", principal.UserID,
		"building_id", input.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save building", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "building saved")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.buildings == nil {
		err = fmt.Errorf("building repository not configured")
		return
	}

	vErr := validateStruct(input)
	if strings.TrimSpace(input.ID) == "" {
		vErr.add("id", "is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	building = Building{
		ID:        strings.TrimSpace(input.ID),
		Name:      strings.TrimSpace(input.Name),
		Address:   strings.TrimSpace(input.Address),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}
	if err = s.buildings.UpsertBuilding(ctx, building); err != nil {
		err = mapRepoError(err)
		building = Building{}
	}
	return
}

// GetBuilding returns a single building.
func (s *BuildingService) GetBuilding(ctx context.Context, id string) (Building, error) {
	if s == nil || s.buildings == nil {
		return Building{}, fmt.Errorf("building repository not configured")
	}
	building, err := s.buildings.GetBuilding(ctx, id)
	if err != nil {
		return Building{}, mapRepoError(err)
	}
	return building, nil
}

// ListBuildings returns the catalog ordered by name.
func (s *BuildingService) ListBuildings(ctx context.Context) (buildings []Building, err error) {
	if s == nil {
		err = fmt.Errorf("BuildingService is nil")
		return
	}
	if s.buildings == nil {
		return nil, nil
	}

	var raw []Building
	raw, err = s.buildings.ListBuildings(ctx)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListBuildings").ErrorContext(ctx, "failed to list buildings", "error", err)
		return
	}

	buildings = make([]Building, len(raw))
	copy(buildings, raw)
	sort.Slice(buildings, func(i, j int) bool {
		if strings.EqualFold(buildings[i].Name, buildings[j].Name) {
			return buildings[i].ID < buildings[j].ID
		}
		return strings.ToLower(buildings[i].Name) < strings.ToLower(buildings[j].Name)
	})
	return
}
