package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/pkg/validator"
)

// bindBody decodifica el cuerpo JSON en out y lo valida.
func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.NewValidationError("Invalid request body", domain.FieldError{
			Field: "body", Message: err.Error(),
		})
	}
	return validator.Struct(out)
}

// bindQuery decodifica los parámetros de consulta en out y los valida.
func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return domain.NewValidationError("Invalid query parameters", domain.FieldError{
			Field: "query", Message: err.Error(),
		})
	}
	return validator.Struct(out)
}

// idParam devuelve :id o un ValidationError si no es un UUID.
func idParam(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if err := validator.Get().Var(id, "required,uuid"); err != nil {
		return "", domain.NewValidationError("Invalid id", domain.FieldError{
			Field: "id", Message: "id must be a valid UUID", Value: id,
		})
	}
	return id, nil
}
