package osrm

// osrmResponse is the top-level OSRM route service response.
type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

// osrmRoute is a single route in an OSRM response with GeoJSON geometry.
type osrmRoute struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry osrmGeometry `json:"geometry"`
}

// osrmGeometry is a GeoJSON LineString: coordinates are [lon, lat] pairs.
type osrmGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// OSRM result codes this client distinguishes.
const (
	osrmCodeOK            = "Ok"
	osrmCodeNoRoute       = "NoRoute"
	osrmCodeNoSegment     = "NoSegment"
	osrmCodeInvalidQuery  = "InvalidQuery"
	osrmCodeInvalidValue  = "InvalidValue"
	osrmCodeTooBig        = "TooBig"
	osrmCodeInvalidOption = "InvalidOptions"
)
