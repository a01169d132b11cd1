package maps

import "context"

// Geocoder resolves coordinates to human-readable addresses. The lookup
// is best-effort; callers degrade to a placeholder when it fails.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"formatted_address"`
	Coordinates Location `json:"geometry"`
	Types       []string `json:"types"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BestAddress returns the first formatted address, or "" when the lookup
// produced nothing usable.
func (r *GeocodeResponse) BestAddress() string {
	if r == nil || len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Address
}
