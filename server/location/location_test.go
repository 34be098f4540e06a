package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFromCoordinatesFallsBack(t *testing.T) {
	service, err := NewService("")
	require.NoError(t, err)

	// Without a maps client the raw coordinates come back instead of
	// an error, so an alert is never blocked on geocoding
	address := service.AddressFromCoordinates(context.Background(), 43.6532, -79.3832)
	assert.Equal(t, "43.6532, -79.3832", address)
}

func TestNearbyEmergencyServicesWithoutClient(t *testing.T) {
	service, err := NewService("")
	require.NoError(t, err)

	services, err := service.NearbyEmergencyServices(context.Background(), 43.65, -79.38, "hospital")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestDistance(t *testing.T) {
	// Toronto -> Montreal is ~504km
	distance := Distance(43.6532, -79.3832, 45.5019, -73.5674)
	assert.InDelta(t, 504, distance, 5)

	assert.InDelta(t, 0, Distance(43.65, -79.38, 43.65, -79.38), 0.0001)
}
