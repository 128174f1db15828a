package models

// Enums describes the enum values accepted and returned by the API.
type Enums struct {
	Modes         []string `json:"modes"`
	Priorities    []string `json:"priorities"`
	RiskLevels    []string `json:"risk_levels"`
	IncidentTypes []string `json:"incident_types"`
}
