package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/application/billing"
	"github.com/jhoicas/productivity-api/internal/application/dto"
)

// OrderHandler maneja /api/orders.
type OrderHandler struct {
	uc *billing.OrderUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *billing.OrderUseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// List godoc
// @Summary      Listar pedidos
// @Tags         orders
// @Security     Bearer
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	var q dto.OrderListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	out, err := h.uc.List(c.UserContext(), GetPrincipal(c), q)
	if err != nil {
		return err
	}
	return ok(c, out)
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	out, err := h.uc.Get(c.UserContext(), GetPrincipal(c), id)
	if err != nil {
		return err
	}
	return ok(c, out)
}

// Create godoc
// @Summary      Crear pedido (totales calculados en servidor)
// @Tags         orders
// @Security     Bearer
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Create(c.UserContext(), GetPrincipal(c), in)
	if err != nil {
		return err
	}
	return created(c, "Order created successfully", out)
}

func (h *OrderHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var in dto.UpdateOrderRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Update(c.UserContext(), GetPrincipal(c), id, in)
	if err != nil {
		return err
	}
	return okMessage(c, "Order updated successfully", out)
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.uc.Delete(c.UserContext(), GetPrincipal(c), id); err != nil {
		return err
	}
	return okMessage(c, "Order deleted successfully", nil)
}

// Slip devuelve el albarán en PDF como adjunto.
// GET /api/orders/:id/slip
func (h *OrderHandler) Slip(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	pdf, filename, err := h.uc.Slip(c.UserContext(), GetPrincipal(c), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
