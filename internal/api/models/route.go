package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// TimeCurrent is the sentinel request time meaning "now".
const TimeCurrent = "current"

// Destination is either a coordinate object or a free-text place name.
type Destination struct {
	Coordinate *Point
	Text       string
}

// UnmarshalJSON accepts `"Ellis Library"` or `{"latitude":..., "longitude":...}`.
func (d *Destination) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		d.Text = text
		return nil
	}
	var point Point
	if err := json.Unmarshal(data, &point); err != nil {
		return err
	}
	d.Coordinate = &point
	return nil
}

// MarshalJSON mirrors UnmarshalJSON for round-tripping.
func (d Destination) MarshalJSON() ([]byte, error) {
	if d.Coordinate != nil {
		return json.Marshal(d.Coordinate)
	}
	if d.Text != "" {
		return json.Marshal(d.Text)
	}
	return nil, errors.New("destination is empty")
}

// RecommendRequest is the request body for route recommendations.
type RecommendRequest struct {
	Origin      *Point       `json:"origin" validate:"required"`
	Destination *Destination `json:"destination" validate:"required"`
	Mode        string       `json:"mode,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Time        string       `json:"time,omitempty"`
	Concerns    []string     `json:"concerns,omitempty"`
}

// Response type discriminators for the recommend endpoint.
const (
	ResponseTypeRecommendation = "recommendation"
	ResponseTypeDisambiguation = "disambiguation"
)
