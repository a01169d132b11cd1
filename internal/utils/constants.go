package utils

import "time"

// Application Constants
const (
	AppName    = "Lifeline"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Persistence
	// Every store call runs under this bound; on expiry the operation
	// fails and is surfaced to the caller as retryable.
	DefaultPersistenceTimeout = 5 * time.Second

	// Geocoding
	GeocodeTimeout = 3 * time.Second
	// Placeholder used when the lookup service is down or returns nothing.
	GuestLocationPlaceholder = "Unknown (Guest Request)"

	// Realtime
	DriverLocationUpdateInterval = 30 * time.Second

	// Response status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Common error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Authentication required"
	ErrForbidden        = "Access denied"
)

// Broadcast topics consumed by the dashboards.
const (
	TopicNewAccidentReport    = "new_accident_report"
	TopicAccidentVerified     = "accident_verified"
	TopicNewVerifiedEmergency = "new_verified_emergency"
	TopicAmbulanceDispatched  = "ambulance_dispatched"
	TopicAmbulanceAssigned    = "ambulance_assigned"
	TopicPatientArrived       = "patient_arrived"
	TopicEmergencyCompleted   = "emergency_completed"
	TopicAmbulanceLocation    = "ambulance_location_updated"

	// Per-requester topic prefix; the requester id is appended.
	TopicPatientUpdatePrefix = "patient_update_"
)
