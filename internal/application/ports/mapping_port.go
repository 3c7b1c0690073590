package ports

import (
	"context"

	"github.com/jhoicas/productivity-api/internal/application/dto"
)

// MappingService puerto hacia el proveedor de geocodificación y rutas.
// Un resultado nil sin error significa "sin resultado" (404 para el cliente).
type MappingService interface {
	Enabled() bool
	Geocode(ctx context.Context, address string) (*dto.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, longitude, latitude float64) (*dto.GeocodeResult, error)
	Route(ctx context.Context, coords []dto.Coordinate, profile string) (*dto.RouteResult, error)
	OptimizeDeliveryRoute(ctx context.Context, depot dto.Coordinate, destinations []dto.Coordinate, profile string) (*dto.OptimizedRoute, error)
	DeliveryZones(ctx context.Context, center dto.Coordinate, radiusKm float64) ([]dto.DeliveryZone, error)
	DistanceMatrix(ctx context.Context, origins, destinations []dto.Coordinate, profile string) (*dto.DistanceMatrix, error)
}
