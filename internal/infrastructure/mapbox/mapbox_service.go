// Package mapbox implementa ports.MappingService sobre las APIs REST de Mapbox
// (geocoding v5, directions v5, optimized-trips v1, isochrone v1, matrix v1).
package mapbox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/infrastructure/breaker"
)

var _ ports.MappingService = (*Service)(nil)

const defaultBaseURL = "https://api.mapbox.com"

// zoneMinutes contornos de las isócronas de reparto.
var zoneMinutes = []int{15, 30, 45, 60}

// Service adaptador de Mapbox. Queda deshabilitado hasta que Init valide el token.
type Service struct {
	token   string
	baseURL string
	client  *breaker.Client
	log     zerolog.Logger
	ready   atomic.Bool
}

// NewService construye el adaptador.
func NewService(token, baseURL string, client *http.Client, log zerolog.Logger) *Service {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Service{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  breaker.New("mapbox", client, breaker.Settings{}, log),
		log:     log,
	}
}

// Init valida el token con una geocodificación de prueba.
func (s *Service) Init(ctx context.Context) error {
	if s.token == "" {
		s.log.Warn().Msg("MAPBOX_ACCESS_TOKEN no configurado, funciones de mapas deshabilitadas")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, breaker.DefaultTimeout)
	defer cancel()
	if err := s.get(ctx, "/geocoding/v5/mapbox.places/test.json", url.Values{"limit": {"1"}}, nil); err != nil {
		s.log.Warn().Err(err).Msg("no se pudo conectar con Mapbox, funciones de mapas deshabilitadas")
		return fmt.Errorf("mapbox: verificar token: %w", err)
	}
	s.ready.Store(true)
	s.log.Info().Msg("Mapbox conectado")
	return nil
}

// Enabled implementa ports.MappingService.
func (s *Service) Enabled() bool { return s.ready.Load() }

// get ejecuta un GET autenticado y decodifica la respuesta en out (si no es nil).
func (s *Service) get(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("access_token", s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("mapbox: crear request: %w", err)
	}
	raw, err := s.client.Do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mapbox: deserializar respuesta: %w", err)
	}
	return nil
}

// ── Geocoding ─────────────────────────────────────────────────────────────────

type placesResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
		Relevance *float64  `json:"relevance"`
		Address   string    `json:"address"`
		Context   []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"context"`
	} `json:"features"`
}

func (r placesResponse) first(withConfidence bool) *dto.GeocodeResult {
	if len(r.Features) == 0 || len(r.Features[0].Center) < 2 {
		return nil
	}
	f := r.Features[0]
	ctxText := func(kind string) string {
		for _, c := range f.Context {
			if strings.Contains(c.ID, kind) {
				return c.Text
			}
		}
		return ""
	}
	out := &dto.GeocodeResult{
		Address:     f.PlaceName,
		Coordinates: dto.Coordinate{Longitude: f.Center[0], Latitude: f.Center[1]},
		Components: dto.AddressComponents{
			Street:   f.Address,
			City:     ctxText("place"),
			Region:   ctxText("region"),
			Country:  ctxText("country"),
			Postcode: ctxText("postcode"),
		},
	}
	if withConfidence {
		out.Confidence = f.Relevance
	}
	return out
}

// Geocode implementa ports.MappingService.
func (s *Service) Geocode(ctx context.Context, address string) (*dto.GeocodeResult, error) {
	var r placesResponse
	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(address) + ".json"
	if err := s.get(ctx, path, url.Values{"limit": {"1"}, "types": {"address,poi"}}, &r); err != nil {
		return nil, err
	}
	return r.first(true), nil
}

// ReverseGeocode implementa ports.MappingService.
func (s *Service) ReverseGeocode(ctx context.Context, longitude, latitude float64) (*dto.GeocodeResult, error) {
	var r placesResponse
	path := "/geocoding/v5/mapbox.places/" + coord(dto.Coordinate{Longitude: longitude, Latitude: latitude}) + ".json"
	if err := s.get(ctx, path, url.Values{"limit": {"1"}}, &r); err != nil {
		return nil, err
	}
	return r.first(false), nil
}

// ── Rutas ─────────────────────────────────────────────────────────────────────

// Route implementa ports.MappingService.
func (s *Service) Route(ctx context.Context, coords []dto.Coordinate, profile string) (*dto.RouteResult, error) {
	if len(coords) < 2 {
		return nil, nil
	}
	var r struct {
		Routes []struct {
			Distance float64        `json:"distance"`
			Duration float64        `json:"duration"`
			Geometry map[string]any `json:"geometry"`
			Legs     []struct {
				Steps []map[string]any `json:"steps"`
			} `json:"legs"`
		} `json:"routes"`
		Waypoints []map[string]any `json:"waypoints"`
	}
	q := url.Values{
		"geometries":  {"geojson"},
		"overview":    {"full"},
		"steps":       {"true"},
		"annotations": {"duration,distance"},
	}
	if err := s.get(ctx, "/directions/v5/mapbox/"+profile+"/"+coordList(coords), q, &r); err != nil {
		return nil, err
	}
	if len(r.Routes) == 0 {
		return nil, nil
	}
	route := r.Routes[0]
	steps := []map[string]any{}
	if len(route.Legs) > 0 && route.Legs[0].Steps != nil {
		steps = route.Legs[0].Steps
	}
	return &dto.RouteResult{
		Distance:  route.Distance,
		Duration:  route.Duration,
		Geometry:  route.Geometry,
		Steps:     steps,
		Waypoints: r.Waypoints,
	}, nil
}

// OptimizeDeliveryRoute implementa ports.MappingService. El depósito es origen y destino del viaje.
func (s *Service) OptimizeDeliveryRoute(ctx context.Context, depot dto.Coordinate, destinations []dto.Coordinate, profile string) (*dto.OptimizedRoute, error) {
	if len(destinations) == 0 {
		return nil, nil
	}
	var r struct {
		Trips []struct {
			Distance float64        `json:"distance"`
			Duration float64        `json:"duration"`
			Geometry map[string]any `json:"geometry"`
		} `json:"trips"`
		Waypoints []struct {
			WaypointIndex int       `json:"waypoint_index"`
			Location      []float64 `json:"location"`
			Name          string    `json:"name"`
		} `json:"waypoints"`
	}
	q := url.Values{
		"source":      {"first"},
		"destination": {"first"},
		"roundtrip":   {"true"},
		"geometries":  {"geojson"},
		"overview":    {"full"},
	}
	all := append([]dto.Coordinate{depot}, destinations...)
	if err := s.get(ctx, "/optimized-trips/v1/mapbox/"+profile+"/"+coordList(all), q, &r); err != nil {
		return nil, err
	}
	if len(r.Trips) == 0 {
		return nil, nil
	}
	trip := r.Trips[0]
	out := &dto.OptimizedRoute{
		Distance:       trip.Distance,
		Duration:       trip.Duration,
		Geometry:       trip.Geometry,
		Waypoints:      make([]map[string]any, 0, len(r.Waypoints)),
		OptimizedOrder: make([]dto.OptimizedStop, 0, len(r.Waypoints)),
	}
	for i, wp := range r.Waypoints {
		var c dto.Coordinate
		if len(wp.Location) >= 2 {
			c = dto.Coordinate{Longitude: wp.Location[0], Latitude: wp.Location[1]}
		}
		out.Waypoints = append(out.Waypoints, map[string]any{
			"waypoint_index": wp.WaypointIndex,
			"location":       wp.Location,
			"name":           wp.Name,
		})
		out.OptimizedOrder = append(out.OptimizedOrder, dto.OptimizedStop{
			OriginalIndex:  wp.WaypointIndex,
			OptimizedIndex: i,
			Coordinates:    c,
		})
	}
	return out, nil
}

// DeliveryZones implementa ports.MappingService con isócronas de 15/30/45/60 minutos.
// El radio solo acota la petición del cliente; Mapbox calcula por tiempo de manejo.
func (s *Service) DeliveryZones(ctx context.Context, center dto.Coordinate, _ float64) ([]dto.DeliveryZone, error) {
	var r struct {
		Features []struct {
			Geometry   map[string]any `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	minutes := make([]string, len(zoneMinutes))
	for i, m := range zoneMinutes {
		minutes[i] = strconv.Itoa(m)
	}
	q := url.Values{
		"contours_minutes": {strings.Join(minutes, ",")},
		"polygons":         {"true"},
		"denoise":          {"1"},
	}
	if err := s.get(ctx, "/isochrone/v1/mapbox/driving/"+coord(center), q, &r); err != nil {
		return nil, err
	}
	if r.Features == nil {
		return nil, nil
	}
	zones := make([]dto.DeliveryZone, 0, len(r.Features))
	for i, f := range r.Features {
		z := dto.DeliveryZone{Geometry: f.Geometry, Properties: f.Properties}
		if i < len(zoneMinutes) {
			z.DriveTimeMinutes = zoneMinutes[i]
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// DistanceMatrix implementa ports.MappingService.
func (s *Service) DistanceMatrix(ctx context.Context, origins, destinations []dto.Coordinate, profile string) (*dto.DistanceMatrix, error) {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, nil
	}
	sources := make([]string, len(origins))
	for i := range origins {
		sources[i] = strconv.Itoa(i)
	}
	dests := make([]string, len(destinations))
	for i := range destinations {
		dests[i] = strconv.Itoa(len(origins) + i)
	}
	q := url.Values{
		"sources":      {strings.Join(sources, ";")},
		"destinations": {strings.Join(dests, ";")},
		"annotations":  {"duration,distance"},
	}
	all := append(append([]dto.Coordinate{}, origins...), destinations...)
	var m dto.DistanceMatrix
	if err := s.get(ctx, "/directions-matrix/v1/mapbox/"+profile+"/"+coordList(all), q, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func coord(c dto.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}

func coordList(cs []dto.Coordinate) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = coord(c)
	}
	return strings.Join(parts, ";")
}
