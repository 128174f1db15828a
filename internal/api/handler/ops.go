// Package handler provides HTTP handlers for the SafeRoute API.
package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        *pgxpool.Pool
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. db and registry are optional; a nil
// dependency is skipped in readiness checks.
func NewOpsHandler(version, buildTime string, db *pgxpool.Pool, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Fails when the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	details := map[string]interface{}{}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			status = models.HealthStatusFail
			details["database"] = err.Error()
		} else {
			details["database"] = "ok"
		}
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())

	overall := models.HealthStatusOK
	var subsystems []models.SubsystemStatus
	if h.db != nil {
		dbStatus := models.HealthStatusOK
		if err := h.db.Ping(r.Context()); err != nil {
			dbStatus = models.HealthStatusFail
			overall = models.HealthStatusDegraded
		}
		subsystems = append(subsystems, models.SubsystemStatus{Name: "postgres", Status: dbStatus})
	}

	var providers []models.ProviderStatus
	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider: health.Name,
				Status:   providerStatus(health),
			}
			if health.LastSuccessAt != nil {
				ts := models.Timestamp(*health.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if health.LastFailureAt != nil {
				ts := models.Timestamp(*health.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			if health.LastError != "" {
				msg := health.LastError
				ps.Message = &msg
			}
			if ps.Status != models.HealthStatusOK && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
			providers = append(providers, ps)
		}
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       now,
		Subsystems: subsystems,
		Providers:  providers,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(health *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case health.IsUnhealthy():
		return models.HealthStatusFail
	case health.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
