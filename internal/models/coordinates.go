package models

// Coordinates represents a geographical point in degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"` // Latitude of the geographical point.
	Longitude float64 `json:"lon"` // Longitude of the geographical point.
}

// CoordinateSource tells where the coordinates of an order came from.
type CoordinateSource string

const (
	// SourceNone marks an order that has not been geocoded yet.
	SourceNone CoordinateSource = ""
	// SourceGeocoded marks coordinates returned by the geocoding provider.
	SourceGeocoded CoordinateSource = "geocoded"
	// SourceFallback marks the configured default point used when geocoding failed.
	SourceFallback CoordinateSource = "fallback"
)
