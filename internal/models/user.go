package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RolePatient         Role = "patient"
	RolePolice          Role = "police"
	RoleHospitalStaff   Role = "hospital_staff"
	RoleAmbulanceDriver Role = "ambulance_driver"
	RoleAdmin           Role = "admin"
)

// ParseRole maps a raw role string onto the closed role set. Unknown
// values are rejected at the boundary instead of deep in transition logic.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePatient, RolePolice, RoleHospitalStaff, RoleAmbulanceDriver, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User is owned by the identity provider; the coordinator only reads it,
// e.g. to check that a dispatch target really is an ambulance driver.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Role      Role               `json:"role" bson:"role" validate:"required"`
	Hospital  string             `json:"hospital,omitempty" bson:"hospital,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
