package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/domain"
)

// Envelope forma común de todas las respuestas JSON.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody detalle del error; Stack solo se rellena en desarrollo.
type ErrorBody struct {
	Type      domain.ErrorType    `json:"type"`
	Details   []domain.FieldError `json:"details,omitempty"`
	Timestamp string              `json:"timestamp"`
	Stack     string              `json:"stack,omitempty"`
}

// ok responde 200 con datos.
func ok(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

// okMessage responde 200 con datos y mensaje.
func okMessage(c *fiber.Ctx, message string, data any) error {
	return c.JSON(Envelope{Success: true, Message: message, Data: data})
}

// created responde 201.
func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Message: message, Data: data})
}

// ErrorHandler traduce los errores devueltos por handlers y middleware al envelope.
// En producción los 5xx llevan un mensaje genérico.
func ErrorHandler(log zerolog.Logger, development bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		errType := domain.TypeApp
		message := "Internal server error"
		var details []domain.FieldError

		var fe *fiber.Error
		if de, found := domain.AsError(err); found {
			status, errType, message, details = de.Status, de.Type, de.Message, de.Details
			if status == 0 {
				status = http.StatusInternalServerError
			}
		} else if errors.As(err, &fe) {
			status, message = fe.Code, fe.Message
			errType = fiberErrorType(fe.Code)
		}

		ev := log.Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
			if !development {
				message = "Internal server error"
			}
		}
		ev.Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("user_id", principalID(c)).
			Int("status", status).
			Msg("request failed")

		body := &ErrorBody{
			Type:      errType,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if development && status >= http.StatusInternalServerError {
			body.Stack = string(debug.Stack())
		}
		return c.Status(status).JSON(Envelope{Success: false, Message: message, Error: body})
	}
}

// NotFound responde a cualquier ruta no registrada.
func NotFound(c *fiber.Ctx) error {
	return &fiber.Error{Code: fiber.StatusNotFound, Message: "Endpoint not found"}
}

func fiberErrorType(code int) domain.ErrorType {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return domain.TypeValidation
	case fiber.StatusUnauthorized:
		return domain.TypeUnauthorized
	case fiber.StatusForbidden:
		return domain.TypeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return domain.TypeNotFound
	case fiber.StatusConflict:
		return domain.TypeConflict
	case fiber.StatusTooManyRequests:
		return domain.TypeTooManyRequests
	default:
		return domain.TypeApp
	}
}
