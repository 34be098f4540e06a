package location

import (
	"context"
	"fmt"
	"math"

	"googlemaps.github.io/maps"
)

const (
	// Radius in meters used when searching for nearby emergency services
	NEARBY_SEARCH_RADIUS = 5000

	earthRadiusKm = 6371.0
)

type NearbyService struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
	Open       *bool   `json:"open,omitempty"`
	Rating     float32 `json:"rating,omitempty"`
}

type RouteSummary struct {
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Summary  string `json:"summary"`
}

// Service answers geo queries via the google maps APIs. A Service
// built without an API key still works: geocoding falls back to raw
// coordinates & searches return empty results.
type Service struct {
	client *maps.Client
}

func NewService(apiKey string) (*Service, error) {
	if apiKey == "" {
		return &Service{}, nil
	}

	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Service{client: client}, nil
}

// AddressFromCoordinates reverse-geocodes a point into a readable
// address. It never fails an emergency flow: on any error the raw
// "lat, lon" string is returned instead.
func (s *Service) AddressFromCoordinates(ctx context.Context, latitude, longitude float64) string {
	fallback := fmt.Sprintf("%v, %v", latitude, longitude)
	if s.client == nil {
		return fallback
	}

	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: latitude, Lng: longitude},
	})
	if err != nil || len(results) == 0 {
		return fallback
	}

	return results[0].FormattedAddress
}

// NearbyEmergencyServices finds hospitals/police/fire stations etc.
// around the given point. 'placeType' is a google place type e.g.
// "hospital".
func (s *Service) NearbyEmergencyServices(ctx context.Context, latitude, longitude float64, placeType string) ([]NearbyService, error) {
	if s.client == nil {
		return []NearbyService{}, nil
	}

	mapsPlaceType, err := maps.ParsePlaceType(placeType)
	if err != nil {
		return nil, fmt.Errorf("unknown place type %q", placeType)
	}

	response, err := s.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: latitude, Lng: longitude},
		Radius:   NEARBY_SEARCH_RADIUS,
		Type:     mapsPlaceType,
	})
	if err != nil {
		return nil, err
	}

	services := []NearbyService{}
	for _, result := range response.Results {
		service := NearbyService{
			Name:       result.Name,
			Address:    result.Vicinity,
			Latitude:   result.Geometry.Location.Lat,
			Longitude:  result.Geometry.Location.Lng,
			DistanceKm: Distance(latitude, longitude, result.Geometry.Location.Lat, result.Geometry.Location.Lng),
			Rating:     result.Rating,
		}
		if result.OpeningHours != nil {
			service.Open = result.OpeningHours.OpenNow
		}
		services = append(services, service)
	}

	return services, nil
}

// Directions returns a driving route summary from origin to destination
func (s *Service) Directions(ctx context.Context, fromLat, fromLon, toLat, toLon float64) (*RouteSummary, error) {
	if s.client == nil {
		return nil, fmt.Errorf("maps client is not configured")
	}

	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%v,%v", fromLat, fromLon),
		Destination: fmt.Sprintf("%v,%v", toLat, toLon),
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return &RouteSummary{
		Distance: leg.Distance.HumanReadable,
		Duration: leg.Duration.String(),
		Summary:  routes[0].Summary,
	}, nil
}

// Distance returns the great-circle distance between two points in km
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
