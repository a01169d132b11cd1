package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceStatus string

const (
	AmbulanceStatusAvailable AmbulanceStatus = "available"
	AmbulanceStatusEnRoute   AmbulanceStatus = "en route"
	AmbulanceStatusBusy      AmbulanceStatus = "busy"
)

func (s AmbulanceStatus) Valid() bool {
	switch s {
	case AmbulanceStatusAvailable, AmbulanceStatusEnRoute, AmbulanceStatusBusy:
		return true
	}
	return false
}

// Ambulance is the registry record for one unit. Exactly one record may
// exist per driver; status "available" implies no assigned emergency.
type Ambulance struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	DriverID          primitive.ObjectID  `json:"driver_id" bson:"driver_id" validate:"required"`
	Hospital          string              `json:"hospital,omitempty" bson:"hospital,omitempty"`
	Status            AmbulanceStatus     `json:"status" bson:"status" default:"available"`
	CurrentLocation   Coordinates         `json:"current_location" bson:"current_location"`
	AssignedEmergency *primitive.ObjectID `json:"assigned_emergency" bson:"assigned_emergency"`
	LastUpdated       time.Time           `json:"last_updated" bson:"last_updated"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
}

// AmbulanceWithDriver joins a unit with its driver identity for hospital
// dispatch views.
type AmbulanceWithDriver struct {
	Ambulance `bson:",inline"`
	Driver    *User `json:"driver,omitempty" bson:"driver,omitempty"`
}
