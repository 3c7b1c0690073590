package dto

// Coordinate punto geográfico.
type Coordinate struct {
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
}

// AddressComponents partes de una dirección geocodificada.
type AddressComponents struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

// GeocodeResult resultado de geocodificación directa o inversa.
type GeocodeResult struct {
	Address     string            `json:"address"`
	Coordinates Coordinate        `json:"coordinates"`
	Confidence  *float64          `json:"confidence,omitempty"`
	Components  AddressComponents `json:"components"`
}

// RouteResult ruta entre varios puntos; distancia en metros y duración en segundos.
type RouteResult struct {
	Distance  float64          `json:"distance"`
	Duration  float64          `json:"duration"`
	Geometry  map[string]any   `json:"geometry"`
	Steps     []map[string]any `json:"steps"`
	Waypoints []map[string]any `json:"waypoints"`
}

// OptimizedStop posición de un destino tras optimizar.
type OptimizedStop struct {
	OriginalIndex  int        `json:"originalIndex"`
	OptimizedIndex int        `json:"optimizedIndex"`
	Coordinates    Coordinate `json:"coordinates"`
}

// OptimizedRoute viaje de reparto optimizado que sale y vuelve al depósito.
type OptimizedRoute struct {
	Distance       float64          `json:"distance"`
	Duration       float64          `json:"duration"`
	Geometry       map[string]any   `json:"geometry"`
	Waypoints      []map[string]any `json:"waypoints"`
	OptimizedOrder []OptimizedStop  `json:"optimizedOrder"`
}

// DeliveryZone isócrona de reparto.
type DeliveryZone struct {
	DriveTimeMinutes int            `json:"driveTimeMinutes"`
	Geometry         map[string]any `json:"geometry"`
	Properties       map[string]any `json:"properties"`
}

// DistanceMatrix duraciones (s) y distancias (m) origen x destino.
type DistanceMatrix struct {
	Durations    [][]*float64     `json:"durations"`
	Distances    [][]*float64     `json:"distances"`
	Sources      []map[string]any `json:"sources"`
	Destinations []map[string]any `json:"destinations"`
}

// GeocodeRequest entrada de POST /api/mapping/geocode.
type GeocodeRequest struct {
	Address string `json:"address" validate:"required,min=1,max=500"`
}

// ReverseGeocodeRequest entrada de POST /api/mapping/reverse-geocode.
type ReverseGeocodeRequest struct {
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
}

// RouteRequest entrada de POST /api/mapping/route.
type RouteRequest struct {
	Coordinates []Coordinate `json:"coordinates" validate:"required,min=2,max=25,dive"`
	Profile     string       `json:"profile" validate:"omitempty,oneof=driving walking cycling"`
}

// OptimizeRouteRequest entrada de POST /api/mapping/optimize-delivery-route.
type OptimizeRouteRequest struct {
	Depot        *Coordinate  `json:"depot" validate:"required"`
	Destinations []Coordinate `json:"destinations" validate:"required,min=1,max=25,dive"`
	Profile      string       `json:"profile" validate:"omitempty,oneof=driving driving-traffic"`
}

// DeliveryZonesRequest entrada de POST /api/mapping/delivery-zones.
type DeliveryZonesRequest struct {
	CenterPoint *Coordinate `json:"centerPoint" validate:"required"`
	RadiusKm    float64     `json:"radiusKm" validate:"omitempty,gte=1,lte=100"`
}

// DistanceMatrixRequest entrada de POST /api/mapping/distance-matrix.
type DistanceMatrixRequest struct {
	Origins      []Coordinate `json:"origins" validate:"required,min=1,max=25,dive"`
	Destinations []Coordinate `json:"destinations" validate:"required,min=1,max=25,dive"`
	Profile      string       `json:"profile" validate:"omitempty,oneof=driving walking cycling"`
}

// DeliveryEstimateRequest entrada de POST /api/mapping/estimate-delivery-time.
type DeliveryEstimateRequest struct {
	DistanceMeters *float64 `json:"distanceMeters" validate:"required,gte=0"`
	CurrentHour    *int     `json:"currentHour" validate:"omitempty,gte=0,lte=23"`
}

// DeliveryEstimate estimación con factor de tráfico por franja horaria.
type DeliveryEstimate struct {
	EstimatedMinutes int     `json:"estimatedMinutes"`
	EstimatedHours   int     `json:"estimatedHours"`
	BaseSpeed        float64 `json:"baseSpeed"`
	TrafficFactor    float64 `json:"trafficFactor"`
}

// ValidateAddressRequest entrada de POST /api/mapping/validate-address.
type ValidateAddressRequest struct {
	Address map[string]string `json:"address" validate:"required"`
}

// AddressValidation salida de validate-address.
type AddressValidation struct {
	IsValid          bool              `json:"isValid"`
	FormattedAddress string            `json:"formattedAddress"`
	Address          map[string]string `json:"address"`
}

// MappingStatus salida de GET /api/mapping/status.
type MappingStatus struct {
	MappingServiceEnabled bool     `json:"mappingServiceEnabled"`
	MapboxConnected       bool     `json:"mapboxConnected"`
	AvailableFeatures     []string `json:"availableFeatures"`
}
