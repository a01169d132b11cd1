package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type GoogleMapsProvider struct {
	client *maps.Client
}

func NewGoogleMapsProvider(apiKey string) (*GoogleMapsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{
		client: client,
	}, nil
}

func (g *GoogleMapsProvider) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	req := &maps.GeocodingRequest{
		Address: address,
	}

	resp, err := g.client.Geocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}

	return convertGeocodeResults(resp), nil
}

func (g *GoogleMapsProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	}

	resp, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}

	return convertGeocodeResults(resp), nil
}

func convertGeocodeResults(resp []maps.GeocodingResult) *GeocodeResponse {
	results := make([]GeocodeResult, len(resp))
	for i, result := range resp {
		results[i] = GeocodeResult{
			PlaceID: result.PlaceID,
			Address: result.FormattedAddress,
			Coordinates: Location{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
			Types: result.Types,
		}
	}

	return &GeocodeResponse{Results: results}
}
