package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/application/usecase"
)

// ModuleHandler responde por los módulos aún no implementados.
type ModuleHandler struct {
	modules *usecase.ModuleService
}

// NewModuleHandler construye el handler.
func NewModuleHandler(modules *usecase.ModuleService) *ModuleHandler {
	return &ModuleHandler{modules: modules}
}

// Describe devuelve el handler de GET /api/<name>.
func (h *ModuleHandler) Describe(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := h.modules.Describe(name)
		if err != nil {
			return err
		}
		return ok(c, info)
	}
}
