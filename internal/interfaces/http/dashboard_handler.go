package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/productivity-api/internal/application/analytics"
	"github.com/jhoicas/productivity-api/internal/application/dto"
)

// DashboardHandler maneja los endpoints del Dashboard.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve las métricas del período y la actividad reciente.
// GET /api/dashboard?period=today|week|month|quarter|year (month por defecto)
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	var q dto.DashboardQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	out, err := h.uc.Summary(c.UserContext(), GetPrincipal(c), q)
	if err != nil {
		return err
	}
	return ok(c, out)
}

// GetAnalytics carga de trabajo y tendencias. GET /api/dashboard/analytics
func (h *DashboardHandler) GetAnalytics(c *fiber.Ctx) error {
	out, err := h.uc.Analytics(c.UserContext(), GetPrincipal(c))
	if err != nil {
		return err
	}
	return ok(c, out)
}
