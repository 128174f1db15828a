// Package polyline implements Google's encoded polyline format, used to ship
// route geometries to map clients as compact strings.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

// precision is 1e5, the standard 5-decimal-place Google format.
const precision = 1e5

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes a polyline-encoded string into a slice of coordinates.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	var lat, lon int

	for i := 0; i < len(encoded); {
		var delta int
		delta, i = readDelta(encoded, i)
		lat += delta
		delta, i = readDelta(encoded, i)
		lon += delta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

// readDelta decodes one zigzag-encoded delta starting at i and returns it
// with the index of the next delta.
func readDelta(encoded string, i int) (int, int) {
	var result, shift int

	for i < len(encoded) {
		chunk := int(encoded[i]) - 63
		i++
		result |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			break
		}
	}

	// The low bit carries the sign
	if result&1 != 0 {
		return ^(result >> 1), i
	}
	return result >> 1, i
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*4)
	var prevLat, prevLon int

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * precision))
		lon := int(math.Round(coord.Lon * precision))

		buf = appendDelta(buf, lat-prevLat)
		buf = appendDelta(buf, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(buf)
}

// appendDelta zigzag-encodes one delta into 5-bit chunks.
func appendDelta(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
