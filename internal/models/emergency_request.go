package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string
type EmergencyType string
type Priority string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusVerified   RequestStatus = "verified"
	RequestStatusDispatched RequestStatus = "dispatched"
	RequestStatusCompleted  RequestStatus = "completed"

	EmergencyTypeAccident    EmergencyType = "accident"
	EmergencyTypeBurns       EmergencyType = "burns"
	EmergencyTypePregnancy   EmergencyType = "pregnancy"
	EmergencyTypeInjury      EmergencyType = "injury"
	EmergencyTypeMedical     EmergencyType = "medical"
	EmergencyTypeUnspecified EmergencyType = "unspecified"

	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// statusRank orders the forward-only lifecycle. Transitions may only move
// to a strictly higher rank.
var statusRank = map[RequestStatus]int{
	RequestStatusPending:    0,
	RequestStatusVerified:   1,
	RequestStatusDispatched: 2,
	RequestStatusCompleted:  3,
}

func (s RequestStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next keeps the
// lifecycle strictly forward.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[next]
	return okA && okB && b > a
}

func (t EmergencyType) Valid() bool {
	switch t {
	case EmergencyTypeAccident, EmergencyTypeBurns, EmergencyTypePregnancy,
		EmergencyTypeInjury, EmergencyTypeMedical, EmergencyTypeUnspecified:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type EmergencyRequest struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RequesterID         *primitive.ObjectID `json:"requester_id" bson:"requester_id"` // nil for guest submissions
	Location            string              `json:"location" bson:"location"`
	Coordinates         Coordinates         `json:"coordinates" bson:"coordinates"`
	PlusCode            string              `json:"plus_code,omitempty" bson:"plus_code,omitempty"`
	EmergencyType       EmergencyType       `json:"emergency_type" bson:"emergency_type" validate:"required"`
	VictimName          string              `json:"victim_name" bson:"victim_name"`
	VictimAge           string              `json:"victim_age,omitempty" bson:"victim_age,omitempty"`
	VictimSex           string              `json:"victim_sex,omitempty" bson:"victim_sex,omitempty"`
	IncidentDescription string              `json:"incident_description" bson:"incident_description"`
	PoliceCaseNo        string              `json:"police_case_no,omitempty" bson:"police_case_no,omitempty"`
	Notes               string              `json:"notes,omitempty" bson:"notes,omitempty"`
	Status              RequestStatus       `json:"status" bson:"status" default:"pending"`
	PoliceVerified      bool                `json:"police_verified" bson:"police_verified" default:"false"`
	Priority            Priority            `json:"priority" bson:"priority" default:"Medium"`
	AssignedAmbulance   *primitive.ObjectID `json:"assigned_ambulance" bson:"assigned_ambulance"`
	IsGuest             bool                `json:"is_guest" bson:"is_guest" default:"false"`
	VerifiedAt          *time.Time          `json:"verified_at" bson:"verified_at"`
	DispatchedAt        *time.Time          `json:"dispatched_at" bson:"dispatched_at"`
	CompletedAt         *time.Time          `json:"completed_at" bson:"completed_at"`
	CreatedAt           time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" bson:"updated_at"`
}
