package validators

import (
	"strings"

	"lifeline/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("latitude", validateLatitude)
	validate.RegisterValidation("longitude", validateLongitude)
}

func validateLatitude(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= -90 && v <= 90
}

func validateLongitude(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= -180 && v <= 180
}

// ValidateEmergencyRequest checks the authenticated (patient) create
// path. Every violation is reported; nothing is written when the map is
// non-empty.
func ValidateEmergencyRequest(input *models.EmergencyRequestInput) map[string]string {
	violations := make(map[string]string)

	hasLocation := strings.TrimSpace(input.Location) != ""
	hasCoordinates := input.Latitude != 0 || input.Longitude != 0
	if !hasLocation && !hasCoordinates {
		violations["location"] = "location or coordinates are required"
	}

	if err := validateEmergencyType(input.EmergencyType); err != "" {
		violations["emergency_type"] = err
	}

	if strings.TrimSpace(input.VictimName) == "" {
		violations["victim_name"] = "victim name is required"
	}

	if strings.TrimSpace(input.IncidentDescription) == "" {
		violations["incident_description"] = "incident description is required"
	}

	if msg := validateCoordinateRange(input.Latitude, input.Longitude); msg != "" {
		violations["coordinates"] = msg
	}

	return violations
}

// ValidateGuestRequest checks the unauthenticated path: coordinates and
// emergency type only.
func ValidateGuestRequest(input *models.GuestRequestInput) map[string]string {
	violations := make(map[string]string)

	if input.Latitude == 0 && input.Longitude == 0 {
		violations["coordinates"] = "latitude and longitude are required"
	}

	if err := validateEmergencyType(input.EmergencyType); err != "" {
		violations["emergency_type"] = err
	}

	if msg := validateCoordinateRange(input.Latitude, input.Longitude); msg != "" {
		violations["coordinates"] = msg
	}

	return violations
}

func ValidateLocationUpdate(input *models.LocationUpdateInput) map[string]string {
	violations := make(map[string]string)

	if msg := validateCoordinateRange(input.Latitude, input.Longitude); msg != "" {
		violations["coordinates"] = msg
	}

	if input.Status != "" && !models.AmbulanceStatus(input.Status).Valid() {
		violations["status"] = "status must be one of: available, en route, busy"
	}

	return violations
}

func validateEmergencyType(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "emergency type is required"
	}
	if !models.EmergencyType(raw).Valid() {
		return "unknown emergency type"
	}
	return ""
}

func validateCoordinateRange(lat, lng float64) string {
	if err := validate.Var(lat, "latitude"); err != nil {
		return "latitude must be between -90 and 90"
	}
	if err := validate.Var(lng, "longitude"); err != nil {
		return "longitude must be between -180 and 180"
	}
	return ""
}
