package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/usecase"
)

// AIHandler maneja los endpoints asistidos por IA. Sin proveedor configurado
// responden igual de forma exitosa: enhance devuelve la entrada y el resto null.
type AIHandler struct {
	uc *usecase.AIUseCase
}

// NewAIHandler construye el handler.
func NewAIHandler(uc *usecase.AIUseCase) *AIHandler {
	return &AIHandler{uc: uc}
}

// EnhanceTask godoc
// @Summary      Mejorar título y descripción de una tarea
// @Tags         ai
// @Security     Bearer
// @Router       /api/ai/enhance-task [post]
func (h *AIHandler) EnhanceTask(c *fiber.Ctx) error {
	var in dto.EnhanceTaskRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"enhancement": h.uc.EnhanceTask(c.UserContext(), in)})
}

func (h *AIHandler) GenerateTicketResponse(c *fiber.Ctx) error {
	var in dto.TicketResponseRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"response": h.uc.GenerateTicketResponse(c.UserContext(), in)})
}

func (h *AIHandler) AnalyzeOrderPattern(c *fiber.Ctx) error {
	var in dto.OrderPatternRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"analysis": h.uc.AnalyzeOrderPattern(c.UserContext(), in)})
}

func (h *AIHandler) OptimizeInventory(c *fiber.Ctx) error {
	var in dto.InventoryOptimizationRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"optimization": h.uc.OptimizeInventory(c.UserContext(), in)})
}

func (h *AIHandler) PerformanceInsights(c *fiber.Ctx) error {
	var in dto.PerformanceInsightsRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	return ok(c, fiber.Map{"insights": h.uc.PerformanceInsights(c.UserContext(), in)})
}

func (h *AIHandler) Status(c *fiber.Ctx) error {
	return ok(c, h.uc.Status())
}
