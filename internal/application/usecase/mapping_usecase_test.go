package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
)

// stubMaps implementación en memoria de ports.MappingService.
type stubMaps struct {
	enabled bool
	err     error
	profile string
	radius  float64
	geo     *dto.GeocodeResult
}

func (s *stubMaps) Enabled() bool { return s.enabled }

func (s *stubMaps) Geocode(context.Context, string) (*dto.GeocodeResult, error) {
	return s.geo, s.err
}

func (s *stubMaps) ReverseGeocode(context.Context, float64, float64) (*dto.GeocodeResult, error) {
	return s.geo, s.err
}

func (s *stubMaps) Route(_ context.Context, _ []dto.Coordinate, profile string) (*dto.RouteResult, error) {
	s.profile = profile
	if s.err != nil {
		return nil, s.err
	}
	return &dto.RouteResult{Distance: 1200, Duration: 180}, nil
}

func (s *stubMaps) OptimizeDeliveryRoute(_ context.Context, _ dto.Coordinate, dests []dto.Coordinate, profile string) (*dto.OptimizedRoute, error) {
	s.profile = profile
	return &dto.OptimizedRoute{OptimizedOrder: make([]dto.OptimizedStop, len(dests))}, s.err
}

func (s *stubMaps) DeliveryZones(_ context.Context, _ dto.Coordinate, radiusKm float64) ([]dto.DeliveryZone, error) {
	s.radius = radiusKm
	if s.err != nil {
		return nil, s.err
	}
	return []dto.DeliveryZone{{DriveTimeMinutes: 15}, {DriveTimeMinutes: 30}}, nil
}

func (s *stubMaps) DistanceMatrix(context.Context, []dto.Coordinate, []dto.Coordinate, string) (*dto.DistanceMatrix, error) {
	return nil, s.err
}

func assertNotFound(t *testing.T, err error, msg string) {
	t.Helper()
	de, ok := domain.AsError(err)
	require.True(t, ok, "se esperaba *domain.Error, llegó %v", err)
	assert.Equal(t, http.StatusNotFound, de.Status)
	assert.Equal(t, msg, de.Message)
}

func TestEstimateDelivery(t *testing.T) {
	tests := []struct {
		name    string
		meters  float64
		hour    int
		minutes int
		hours   int
		factor  float64
	}{
		{"hora valle", 20000, 10, 45, 1, 1},
		{"punta mañana", 12000, 8, 45, 1, 0.6},
		{"punta tarde", 28000, 18, 75, 2, 0.7},
		{"almuerzo", 0, 13, 15, 1, 0.8},
		{"madrugada", 1, 3, 16, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateDelivery(tt.meters, tt.hour)
			assert.Equal(t, tt.minutes, got.EstimatedMinutes)
			assert.Equal(t, tt.hours, got.EstimatedHours)
			assert.InDelta(t, tt.factor, got.TrafficFactor, 1e-9)
			assert.InDelta(t, 40*tt.factor, got.BaseSpeed, 1e-9)
		})
	}
}

func TestMappingUseCase_EstimateDeliveryTime(t *testing.T) {
	uc := NewMappingUseCase(nil, zerolog.Nop()).
		WithClock(func() time.Time { return time.Date(2025, 5, 2, 8, 30, 0, 0, time.UTC) })

	d := 12000.0
	got, err := uc.EstimateDeliveryTime(dto.DeliveryEstimateRequest{DistanceMeters: &d})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.TrafficFactor, 1e-9, "sin currentHour se usa la hora actual")

	h := 11
	got, err = uc.EstimateDeliveryTime(dto.DeliveryEstimateRequest{DistanceMeters: &d, CurrentHour: &h})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.TrafficFactor, 1e-9)

	neg := -1.0
	_, err = uc.EstimateDeliveryTime(dto.DeliveryEstimateRequest{DistanceMeters: &neg})
	require.Error(t, err)
	bad := 24
	_, err = uc.EstimateDeliveryTime(dto.DeliveryEstimateRequest{DistanceMeters: &d, CurrentHour: &bad})
	require.Error(t, err)
}

func TestMappingUseCase_ValidateAddress(t *testing.T) {
	uc := NewMappingUseCase(nil, zerolog.Nop())

	ok := uc.ValidateAddress(dto.ValidateAddressRequest{Address: map[string]string{
		"street": "Calle 10 #5-20", "city": "Bogotá", "region": " ", "postcode": "110111", "country": "CO",
	}})
	assert.True(t, ok.IsValid)
	assert.Equal(t, "Calle 10 #5-20, Bogotá, 110111, CO", ok.FormattedAddress)

	bad := uc.ValidateAddress(dto.ValidateAddressRequest{Address: map[string]string{"street": "x", "city": "y"}})
	assert.False(t, bad.IsValid)
	assert.Equal(t, "Invalid Address", bad.FormattedAddress)
}

func TestMappingUseCase_NoResultIsNotFound(t *testing.T) {
	ctx := context.Background()
	lon, lat := -74.08, 4.6

	disabled := NewMappingUseCase(&stubMaps{enabled: false}, zerolog.Nop())
	_, err := disabled.Geocode(ctx, dto.GeocodeRequest{Address: "Calle 1"})
	assertNotFound(t, err, "Address not found")
	assert.False(t, disabled.Status().MapboxConnected)
	assert.Len(t, disabled.Status().AvailableFeatures, 7)

	empty := NewMappingUseCase(&stubMaps{enabled: true}, zerolog.Nop())
	_, err = empty.ReverseGeocode(ctx, dto.ReverseGeocodeRequest{Longitude: &lon, Latitude: &lat})
	assertNotFound(t, err, "Location not found")
	_, err = empty.DistanceMatrix(ctx, dto.DistanceMatrixRequest{
		Origins: []dto.Coordinate{{Longitude: lon, Latitude: lat}}, Destinations: []dto.Coordinate{{}},
	})
	assertNotFound(t, err, "Could not calculate distance matrix")
	_, err = empty.Route(ctx, dto.RouteRequest{Coordinates: []dto.Coordinate{{}}})
	assertNotFound(t, err, "Route not found")

	failing := NewMappingUseCase(&stubMaps{enabled: true, err: errors.New("upstream 500")}, zerolog.Nop())
	_, err = failing.DeliveryZones(ctx, dto.DeliveryZonesRequest{CenterPoint: &dto.Coordinate{}})
	assertNotFound(t, err, "Could not calculate delivery zones")
	_, err = failing.OptimizeDeliveryRoute(ctx, dto.OptimizeRouteRequest{Depot: &dto.Coordinate{}, Destinations: []dto.Coordinate{{}}})
	assertNotFound(t, err, "Could not optimize route")
}

func TestMappingUseCase_Defaults(t *testing.T) {
	ctx := context.Background()
	maps := &stubMaps{enabled: true, geo: &dto.GeocodeResult{Address: "Bogotá, Colombia"}}
	uc := NewMappingUseCase(maps, zerolog.Nop())

	geo, err := uc.Geocode(ctx, dto.GeocodeRequest{Address: "Bogotá"})
	require.NoError(t, err)
	assert.Equal(t, "Bogotá, Colombia", geo.Address)

	route, err := uc.Route(ctx, dto.RouteRequest{Coordinates: []dto.Coordinate{{}, {Longitude: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, route.Distance)
	assert.Equal(t, "driving", maps.profile)

	zones, err := uc.DeliveryZones(ctx, dto.DeliveryZonesRequest{CenterPoint: &dto.Coordinate{}})
	require.NoError(t, err)
	assert.Len(t, zones, 2)
	assert.Equal(t, 10.0, maps.radius)

	opt, err := uc.OptimizeDeliveryRoute(ctx, dto.OptimizeRouteRequest{
		Depot: &dto.Coordinate{}, Destinations: []dto.Coordinate{{}, {}}, Profile: "driving-traffic",
	})
	require.NoError(t, err)
	assert.Len(t, opt.OptimizedOrder, 2)
	assert.Equal(t, "driving-traffic", maps.profile)
}

func TestModuleService(t *testing.T) {
	s := NewModuleService()
	assert.Equal(t, []string{"customer-service", "financial", "logistics", "reports", "representatives", "warehouse"}, s.Names())

	info, err := s.Describe("customer-service")
	require.NoError(t, err)
	assert.Equal(t, "Customer Service module - Coming soon", info.Message)
	assert.Contains(t, info.Features, "Live Chat")

	info.Features[0] = "mutado"
	again, _ := s.Describe("customer-service")
	assert.Equal(t, "Contact Center", again.Features[0])

	_, err = s.Describe("payroll")
	assertNotFound(t, err, "Module not found")
}
