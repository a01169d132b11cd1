package models

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestRequestInputBindingAcceptsZeroCoordinate(t *testing.T) {
	var input GuestRequestInput
	body := []byte(`{"latitude":0.0,"longitude":79.8612,"emergency_type":"medical"}`)

	err := binding.JSON.BindBody(body, &input)

	require.NoError(t, err)
	assert.Equal(t, 0.0, input.Latitude)
	assert.Equal(t, 79.8612, input.Longitude)
}

func TestGuestRequestInputBindingRequiresEmergencyType(t *testing.T) {
	var input GuestRequestInput
	body := []byte(`{"latitude":6.9271,"longitude":79.8612}`)

	err := binding.JSON.BindBody(body, &input)

	assert.Error(t, err)
}
