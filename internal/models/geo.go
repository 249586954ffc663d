package models

// BaseStation is one row of the location map table
type BaseStation struct {
	ID        int64   `json:"id" db:"id"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Latitude  float64 `json:"latitude" db:"latitude"`
}

// RoadSegment is a road polyline stored as a GeoJSON LineString
type RoadSegment struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name,omitempty" db:"name"`
	Geometry string `json:"geometry" db:"geometry"`
}
