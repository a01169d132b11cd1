package models

import (
	"time"
)

type Coordinates struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"gte=-180,lte=180"`
	Timestamp time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// NewCoordinates stamps a fresh position with the current time.
func NewCoordinates(lat, lng float64) Coordinates {
	return Coordinates{Latitude: lat, Longitude: lng, Timestamp: time.Now()}
}

// IsZero reports whether the coordinates carry the "unknown" default (0,0).
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}
