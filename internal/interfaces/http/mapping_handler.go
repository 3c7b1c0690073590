package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/usecase"
)

// MappingHandler maneja geocodificación, rutas y estimaciones de entrega.
type MappingHandler struct {
	uc *usecase.MappingUseCase
}

// NewMappingHandler construye el handler.
func NewMappingHandler(uc *usecase.MappingUseCase) *MappingHandler {
	return &MappingHandler{uc: uc}
}

func (h *MappingHandler) Geocode(c *fiber.Ctx) error {
	var in dto.GeocodeRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Geocode(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"geocoding": out})
}

func (h *MappingHandler) ReverseGeocode(c *fiber.Ctx) error {
	var in dto.ReverseGeocodeRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.ReverseGeocode(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"address": out})
}

func (h *MappingHandler) Route(c *fiber.Ctx) error {
	var in dto.RouteRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Route(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"route": out})
}

// OptimizeDeliveryRoute ordena las paradas desde el depósito (capacidad logistics:routing).
func (h *MappingHandler) OptimizeDeliveryRoute(c *fiber.Ctx) error {
	var in dto.OptimizeRouteRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.OptimizeDeliveryRoute(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"optimizedRoute": out})
}

func (h *MappingHandler) DeliveryZones(c *fiber.Ctx) error {
	var in dto.DeliveryZonesRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.DeliveryZones(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"deliveryZones": out})
}

func (h *MappingHandler) DistanceMatrix(c *fiber.Ctx) error {
	var in dto.DistanceMatrixRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.DistanceMatrix(c.UserContext(), in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"distanceMatrix": out})
}

// EstimateDeliveryTime no consulta al proveedor: aplica el factor de tráfico por hora.
func (h *MappingHandler) EstimateDeliveryTime(c *fiber.Ctx) error {
	var in dto.DeliveryEstimateRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.EstimateDeliveryTime(in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"deliveryTimeEstimate": out})
}

func (h *MappingHandler) ValidateAddress(c *fiber.Ctx) error {
	var in dto.ValidateAddressRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, h.uc.ValidateAddress(in))
}

func (h *MappingHandler) Status(c *fiber.Ctx) error {
	return ok(c, h.uc.Status())
}
