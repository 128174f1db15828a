// Package featureflags provides runtime kill switches for the risk factors
// and the external geocoder fallback.
package featureflags

import (
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableLightingFactor excludes lighting coverage from risk scores.
	FlagDisableLightingFactor = "disable_lighting_factor"

	// FlagDisablePatrolFactor excludes patrol coverage from risk scores.
	FlagDisablePatrolFactor = "disable_patrol_factor"

	// FlagDisableGeocodeFallback prevents falling back to the external
	// geocoder when the campus directory has no match.
	FlagDisableGeocodeFallback = "disable_geocode_fallback"

	// FlagDisableSafetyTips suppresses contextual tips in responses.
	FlagDisableSafetyTips = "disable_safety_tips"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil, not found, or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// StringValue returns the flag value as a string.
// Returns the default value if the flag is nil, not found, or not a string.
func (f *Flag) StringValue(defaultValue string) string {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case string:
		return v
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
// Returns the default value if the flag is nil, not found, or not a number.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		// JSON unmarshals numbers as float64
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// Float64Value returns the flag value as a float64.
// Returns the default value if the flag is nil, not found, or not a number.
func (f *Flag) Float64Value(defaultValue float64) float64 {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// DefaultFlags returns the built-in flags with every kill switch off.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisableLightingFactor: {
			Key:       FlagDisableLightingFactor,
			Value:     false,
			UpdatedAt: now,
		},
		FlagDisablePatrolFactor: {
			Key:       FlagDisablePatrolFactor,
			Value:     false,
			UpdatedAt: now,
		},
		FlagDisableGeocodeFallback: {
			Key:       FlagDisableGeocodeFallback,
			Value:     false,
			UpdatedAt: now,
		},
		FlagDisableSafetyTips: {
			Key:       FlagDisableSafetyTips,
			Value:     false,
			UpdatedAt: now,
		},
	}
}
