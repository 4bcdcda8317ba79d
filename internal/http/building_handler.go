package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/campus-yoga/internal/application"
)

type buildingService interface {
	SaveBuilding(ctx context.Context, principal application.Principal, input application.BuildingInput) (application.Building, error)
	GetBuilding(ctx context.Context, id string) (application.Building, error)
	ListBuildings(ctx context.Context) ([]application.Building, error)
}

// BuildingHandler serves the campus location catalog.
type BuildingHandler struct {
	service   buildingService
	responder responder
}

// NewBuildingHandler builds the handler for the building catalog.
func NewBuildingHandler(service buildingService, logger *slog.Logger) *BuildingHandler {
	return &BuildingHandler{service: service, responder: newResponder(logger)}
}

type buildingRequest struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *BuildingHandler) List(c *gin.Context) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	buildings, err := h.service.ListBuildings(c.Request.Context())
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	out := make([]buildingDTO, 0, len(buildings))
	for _, b := range buildings {
		out = append(out, toBuildingDTO(b))
	}
	h.responder.writeJSON(c, http.StatusOK, gin.H{"buildings": out})
}

func (h *BuildingHandler) Get(c *gin.Context) {
	id, ok := h.buildingID(c)
	if !ok {
		return
	}

	building, err := h.service.GetBuilding(c.Request.Context(), id)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toBuildingDTO(building))
}

// Put serves PUT /admin/buildings/:id, creating or replacing the building.
func (h *BuildingHandler) Put(c *gin.Context) {
	id, ok := h.buildingID(c)
	if !ok {
		return
	}

	var req buildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}

	building, err := h.service.SaveBuilding(c.Request.Context(), principalOf(c), application.BuildingInput{
		ID:        id,
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toBuildingDTO(building))
}

func (h *BuildingHandler) buildingID(c *gin.Context) (string, bool) {
	if h == nil || h.service == nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return "", false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidBuildingID)
		return "", false
	}
	return id, true
}
