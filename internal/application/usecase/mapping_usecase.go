package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
)

const (
	// MappingTimeout tope de cada llamada al proveedor de mapas.
	MappingTimeout = 10 * time.Second

	defaultProfile  = "driving"
	defaultRadiusKm = 10

	baseSpeedKmh        = 40.0
	loadingBufferMinute = 15
)

// MappingFeatures funcionalidades que anuncia GET /api/mapping/status.
var MappingFeatures = []string{
	"geocoding",
	"reverse-geocoding",
	"route-calculation",
	"route-optimization",
	"delivery-zones",
	"distance-matrix",
	"delivery-time-estimation",
}

// MappingUseCase geocodificación, rutas y estimaciones de reparto.
// Un fallo del proveedor se registra y se responde como "sin resultado".
type MappingUseCase struct {
	maps ports.MappingService
	log  zerolog.Logger
	now  func() time.Time
}

// NewMappingUseCase construye el caso de uso. maps puede ser nil.
func NewMappingUseCase(maps ports.MappingService, log zerolog.Logger) *MappingUseCase {
	return &MappingUseCase{maps: maps, log: log, now: time.Now}
}

// WithClock reemplaza el reloj usado para la hora por defecto de las estimaciones.
func (uc *MappingUseCase) WithClock(now func() time.Time) *MappingUseCase {
	uc.now = now
	return uc
}

func (uc *MappingUseCase) enabled() bool {
	return uc.maps != nil && uc.maps.Enabled()
}

// Status estado del proveedor de mapas.
func (uc *MappingUseCase) Status() dto.MappingStatus {
	on := uc.enabled()
	return dto.MappingStatus{MappingServiceEnabled: on, MapboxConnected: on, AvailableFeatures: MappingFeatures}
}

// Geocode convierte una dirección en coordenadas.
func (uc *MappingUseCase) Geocode(ctx context.Context, in dto.GeocodeRequest) (*dto.GeocodeResult, error) {
	return lookup(ctx, uc, "geocode", "Address not found", func(ctx context.Context) (*dto.GeocodeResult, error) {
		return uc.maps.Geocode(ctx, strings.TrimSpace(in.Address))
	})
}

// ReverseGeocode convierte coordenadas en una dirección.
func (uc *MappingUseCase) ReverseGeocode(ctx context.Context, in dto.ReverseGeocodeRequest) (*dto.GeocodeResult, error) {
	if in.Longitude == nil || in.Latitude == nil {
		return nil, domain.NewValidationError("Validation failed",
			domain.FieldError{Field: "longitude", Message: "Valid longitude and latitude are required"})
	}
	return lookup(ctx, uc, "reverse-geocode", "Location not found", func(ctx context.Context) (*dto.GeocodeResult, error) {
		return uc.maps.ReverseGeocode(ctx, *in.Longitude, *in.Latitude)
	})
}

// Route calcula la ruta que une las coordenadas en orden.
func (uc *MappingUseCase) Route(ctx context.Context, in dto.RouteRequest) (*dto.RouteResult, error) {
	if len(in.Coordinates) < 2 {
		return nil, domain.NewNotFoundError("Route not found")
	}
	return lookup(ctx, uc, "route", "Route not found", func(ctx context.Context) (*dto.RouteResult, error) {
		return uc.maps.Route(ctx, in.Coordinates, profileOr(in.Profile))
	})
}

// OptimizeDeliveryRoute ordena los destinos para un viaje que sale y vuelve al depósito.
func (uc *MappingUseCase) OptimizeDeliveryRoute(ctx context.Context, in dto.OptimizeRouteRequest) (*dto.OptimizedRoute, error) {
	if in.Depot == nil || len(in.Destinations) == 0 {
		return nil, domain.NewNotFoundError("Could not optimize route")
	}
	return lookup(ctx, uc, "optimize-delivery-route", "Could not optimize route", func(ctx context.Context) (*dto.OptimizedRoute, error) {
		return uc.maps.OptimizeDeliveryRoute(ctx, *in.Depot, in.Destinations, profileOr(in.Profile))
	})
}

// DeliveryZones isócronas alrededor de un punto.
func (uc *MappingUseCase) DeliveryZones(ctx context.Context, in dto.DeliveryZonesRequest) ([]dto.DeliveryZone, error) {
	if in.CenterPoint == nil {
		return nil, domain.NewNotFoundError("Could not calculate delivery zones")
	}
	radius := in.RadiusKm
	if radius == 0 {
		radius = defaultRadiusKm
	}
	zones, err := lookup(ctx, uc, "delivery-zones", "Could not calculate delivery zones", func(ctx context.Context) (*[]dto.DeliveryZone, error) {
		z, err := uc.maps.DeliveryZones(ctx, *in.CenterPoint, radius)
		if err != nil || z == nil {
			return nil, err
		}
		return &z, nil
	})
	if err != nil {
		return nil, err
	}
	return *zones, nil
}

// DistanceMatrix duraciones y distancias entre orígenes y destinos.
func (uc *MappingUseCase) DistanceMatrix(ctx context.Context, in dto.DistanceMatrixRequest) (*dto.DistanceMatrix, error) {
	if len(in.Origins) == 0 || len(in.Destinations) == 0 {
		return nil, domain.NewNotFoundError("Could not calculate distance matrix")
	}
	return lookup(ctx, uc, "distance-matrix", "Could not calculate distance matrix", func(ctx context.Context) (*dto.DistanceMatrix, error) {
		return uc.maps.DistanceMatrix(ctx, in.Origins, in.Destinations, profileOr(in.Profile))
	})
}

// EstimateDeliveryTime estima el tiempo de reparto con 40 km/h de base,
// reducida en horas punta, más 15 minutos de carga y descarga.
func (uc *MappingUseCase) EstimateDeliveryTime(in dto.DeliveryEstimateRequest) (dto.DeliveryEstimate, error) {
	if in.DistanceMeters == nil || *in.DistanceMeters < 0 {
		return dto.DeliveryEstimate{}, domain.NewValidationError("Validation failed",
			domain.FieldError{Field: "distanceMeters", Message: "Valid distance in meters is required"})
	}
	hour := uc.now().Hour()
	if in.CurrentHour != nil {
		hour = *in.CurrentHour
	}
	if hour < 0 || hour > 23 {
		return dto.DeliveryEstimate{}, domain.NewValidationError("Validation failed",
			domain.FieldError{Field: "currentHour", Message: "Current hour must be between 0 and 23", Value: hour})
	}
	return EstimateDelivery(*in.DistanceMeters, hour), nil
}

// EstimateDelivery aplica el factor de tráfico de la franja horaria.
func EstimateDelivery(distanceMeters float64, hour int) dto.DeliveryEstimate {
	speed := baseSpeedKmh
	switch {
	case hour >= 7 && hour <= 9:
		speed *= 0.6
	case hour >= 17 && hour <= 19:
		speed *= 0.7
	case hour >= 12 && hour <= 14:
		speed *= 0.8
	}
	travel := int(math.Ceil(distanceMeters / 1000 / speed * 60))
	total := travel + loadingBufferMinute
	return dto.DeliveryEstimate{
		EstimatedMinutes: total,
		EstimatedHours:   int(math.Ceil(float64(total) / 60)),
		BaseSpeed:        speed,
		TrafficFactor:    speed / baseSpeedKmh,
	}
}

// ValidateAddress comprueba street, city y country y arma la dirección legible.
func (uc *MappingUseCase) ValidateAddress(in dto.ValidateAddressRequest) dto.AddressValidation {
	out := dto.AddressValidation{IsValid: validAddress(in.Address), Address: in.Address}
	if !out.IsValid {
		out.FormattedAddress = "Invalid Address"
		return out
	}
	parts := make([]string, 0, 5)
	for _, k := range []string{"street", "city", "region", "postcode", "country"} {
		if v := strings.TrimSpace(in.Address[k]); v != "" {
			parts = append(parts, in.Address[k])
		}
	}
	out.FormattedAddress = strings.Join(parts, ", ")
	return out
}

func validAddress(a map[string]string) bool {
	if a == nil {
		return false
	}
	for _, k := range []string{"street", "city", "country"} {
		if strings.TrimSpace(a[k]) == "" {
			return false
		}
	}
	return true
}

func profileOr(p string) string {
	if p == "" {
		return defaultProfile
	}
	return p
}

// lookup aplica timeout y traduce "sin resultado" o fallo del proveedor en 404.
func lookup[T any](ctx context.Context, uc *MappingUseCase, op, notFound string, fn func(context.Context) (*T, error)) (*T, error) {
	if !uc.enabled() {
		return nil, domain.NewNotFoundError(notFound)
	}
	ctx, cancel := context.WithTimeout(ctx, MappingTimeout)
	defer cancel()

	out, err := fn(ctx)
	if err != nil {
		uc.log.Warn().Err(err).Str("op", op).Msg("proveedor de mapas falló")
		return nil, domain.NewNotFoundError(notFound)
	}
	if out == nil {
		return nil, domain.NewNotFoundError(notFound)
	}
	return out, nil
}
