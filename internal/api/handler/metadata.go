package handler

import (
	"net/http"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Modes: []string{
			string(routing.ModeFoot),
			string(routing.ModeBike),
			string(routing.ModeCar),
			string(routing.ModeBus),
		},
		Priorities: []string{
			string(safety.PrioritySafety),
			string(safety.PrioritySpeed),
			string(safety.PriorityBalanced),
		},
		RiskLevels: []string{
			string(safety.RiskVerySafe),
			string(safety.RiskSafe),
			string(safety.RiskModerate),
			string(safety.RiskCaution),
			string(safety.RiskAvoid),
		},
		IncidentTypes: []string{
			string(safety.IncidentTheft),
			string(safety.IncidentAssault),
			string(safety.IncidentVandalism),
			string(safety.IncidentOther),
		},
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, enums)
}
