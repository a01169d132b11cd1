package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitionsAreForwardOnly(t *testing.T) {
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusVerified))
	assert.True(t, RequestStatusPending.CanTransitionTo(RequestStatusCompleted))
	assert.True(t, RequestStatusVerified.CanTransitionTo(RequestStatusDispatched))
	assert.True(t, RequestStatusDispatched.CanTransitionTo(RequestStatusCompleted))

	assert.False(t, RequestStatusVerified.CanTransitionTo(RequestStatusPending))
	assert.False(t, RequestStatusDispatched.CanTransitionTo(RequestStatusVerified))
	assert.False(t, RequestStatusCompleted.CanTransitionTo(RequestStatusDispatched))
	assert.False(t, RequestStatusPending.CanTransitionTo(RequestStatusPending))
}

func TestStatusTransitionRejectsUnknown(t *testing.T) {
	assert.False(t, RequestStatus("archived").CanTransitionTo(RequestStatusCompleted))
	assert.False(t, RequestStatusPending.CanTransitionTo(RequestStatus("archived")))
}

func TestEmergencyTypeValid(t *testing.T) {
	assert.True(t, EmergencyTypeAccident.Valid())
	assert.True(t, EmergencyTypeUnspecified.Valid())
	assert.False(t, EmergencyType("tsunami").Valid())
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("Critical").Valid())
	assert.False(t, Priority("high").Valid())
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("ambulance_driver")
	assert.True(t, ok)
	assert.Equal(t, RoleAmbulanceDriver, role)

	_, ok = ParseRole("dispatcher")
	assert.False(t, ok)
}
