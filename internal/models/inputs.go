package models

// Request bodies bound by the handlers. Validation beyond tag checks
// lives in internal/validators.

type EmergencyRequestInput struct {
	Location            string  `json:"location"`
	EmergencyType       string  `json:"emergency_type" binding:"required"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	PlusCode            string  `json:"plus_code"`
	VictimName          string  `json:"victim_name"`
	VictimAge           string  `json:"victim_age"`
	VictimSex           string  `json:"victim_sex"`
	IncidentDescription string  `json:"incident_description"`
	PoliceCaseNo        string  `json:"police_case_no"`
	Notes               string  `json:"notes"`
}

type GuestRequestInput struct {
	// No binding tags on the floats: "required" treats a legitimate 0
	// coordinate (equator, prime meridian) as missing. The validator owns
	// the coordinate rules, rejecting only the unknown (0,0) pair.
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	EmergencyType string  `json:"emergency_type" binding:"required"`
}

type VerifyInput struct {
	Priority     string `json:"priority"`
	PoliceCaseNo string `json:"police_case_no"`
}

type DispatchInput struct {
	AmbulanceID string `json:"ambulanceId" binding:"required"`
}

type AssignEmergencyInput struct {
	EmergencyID string `json:"emergencyId" binding:"required"`
}

type RegisterAmbulanceInput struct {
	Hospital string `json:"hospital"`
}

type LocationUpdateInput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Status    string  `json:"status"`
}
