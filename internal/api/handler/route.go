package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/internal/api/response"
	"github.com/saferoute/saferoute/internal/geocoding"
	"github.com/saferoute/saferoute/internal/recommend"
	"github.com/saferoute/saferoute/internal/routing"
	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

// RouteHandler handles the route recommendation endpoint.
type RouteHandler struct {
	service *recommend.Service
	logger  zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *recommend.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{service: service, logger: logger}
}

// recommendationEnvelope wraps a successful recommendation with its
// discriminator.
type recommendationEnvelope struct {
	ResponseType string `json:"response_type"`
	*recommend.Recommendation
}

// disambiguationEnvelope wraps a pending disambiguation outcome.
type disambiguationEnvelope struct {
	ResponseType string             `json:"response_type"`
	Category     string             `json:"category,omitempty"`
	Question     string             `json:"question"`
	Options      []geocoding.Option `json:"options"`
}

// RecommendRoutes handles POST /v1/routes:recommend.
func (h *RouteHandler) RecommendRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	req, fieldErrs := buildRequest(input)
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid request", fieldErrs)
		return
	}

	outcome, err := h.service.RankRoutes(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if outcome.Disambiguation != nil {
		amb := outcome.Disambiguation
		response.JSON(w, r, http.StatusOK, disambiguationEnvelope{
			ResponseType: models.ResponseTypeDisambiguation,
			Category:     string(amb.Category),
			Question:     amb.Question,
			Options:      amb.Options,
		})
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, recommendationEnvelope{
		ResponseType:   models.ResponseTypeRecommendation,
		Recommendation: outcome.Recommendation,
	})
}

// buildRequest maps the wire request onto the pipeline request, collecting
// field errors for the validation problem response.
func buildRequest(input models.RecommendRequest) (recommend.Request, []models.FieldError) {
	var fieldErrs []models.FieldError

	req := recommend.Request{
		Mode:     routing.Mode(input.Mode),
		Priority: safety.Priority(input.Priority),
		Concerns: input.Concerns,
	}

	if input.Origin == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "origin", Message: "required"})
	} else {
		req.Origin = geo.Coordinate{Lat: input.Origin.Lat, Lon: input.Origin.Lon}
	}

	if input.Destination == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "destination", Message: "required"})
	} else if input.Destination.Coordinate != nil {
		req.Destination.Coordinate = &geo.Coordinate{
			Lat: input.Destination.Coordinate.Lat,
			Lon: input.Destination.Coordinate.Lon,
		}
	} else {
		req.Destination.Text = input.Destination.Text
	}

	if input.Time != "" && input.Time != models.TimeCurrent {
		at, err := time.Parse(time.RFC3339, input.Time)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{
				Field:   "time",
				Message: "must be \"current\" or an RFC 3339 timestamp",
			})
		} else {
			req.At = at
		}
	}

	return req, fieldErrs
}

// writeError maps pipeline errors onto the problem taxonomy. Internal detail
// never reaches the client.
func (h *RouteHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidRequest):
		response.BadRequest(w, r, "couldn't understand that request", nil)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "couldn't find a path; try a different mode")
	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		response.BadGateway(w, r, "a required upstream service is unavailable")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("recommendation failed")
		response.InternalError(w, r, "something went wrong computing routes")
	}
}
