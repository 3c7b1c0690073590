package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType discriminante estable que viaja en el envelope de error.
type ErrorType string

const (
	TypeValidation      ErrorType = "ValidationError"
	TypeUnauthorized    ErrorType = "UnauthorizedError"
	TypeForbidden       ErrorType = "ForbiddenError"
	TypeNotFound        ErrorType = "NotFoundError"
	TypeConflict        ErrorType = "ConflictError"
	TypeTooManyRequests ErrorType = "TooManyRequestsError"
	TypeDataAccess      ErrorType = "DataAccessError"
	TypeApp             ErrorType = "AppError"
)

// FieldError detalle de un campo inválido.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error de dominio con tipo, status HTTP, mensaje para el cliente y causa opcional.
type Error struct {
	Type    ErrorType
	Status  int
	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is permite errors.Is(err, domain.ErrNotFound) comparando por tipo.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// Centinelas por tipo, para errors.Is.
var (
	ErrValidation      = &Error{Type: TypeValidation}
	ErrUnauthorized    = &Error{Type: TypeUnauthorized}
	ErrForbidden       = &Error{Type: TypeForbidden}
	ErrNotFound        = &Error{Type: TypeNotFound}
	ErrConflict        = &Error{Type: TypeConflict}
	ErrTooManyRequests = &Error{Type: TypeTooManyRequests}
	ErrDataAccess      = &Error{Type: TypeDataAccess}
)

func NewValidationError(message string, details ...FieldError) *Error {
	return &Error{Type: TypeValidation, Status: http.StatusBadRequest, Message: message, Details: details}
}

func NewUnauthorizedError(message string) *Error {
	return &Error{Type: TypeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func NewForbiddenError(message string) *Error {
	return &Error{Type: TypeForbidden, Status: http.StatusForbidden, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Status: http.StatusNotFound, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Type: TypeConflict, Status: http.StatusConflict, Message: message}
}

func NewTooManyRequestsError(message string) *Error {
	return &Error{Type: TypeTooManyRequests, Status: http.StatusTooManyRequests, Message: message}
}

// NewDataAccessError envuelve fallos del almacén que no tienen traducción específica.
func NewDataAccessError(op string, err error) *Error {
	return &Error{Type: TypeDataAccess, Status: http.StatusInternalServerError, Message: "Database operation failed: " + op, Err: err}
}

// NewAppError error genérico 500.
func NewAppError(message string, err error) *Error {
	return &Error{Type: TypeApp, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// AsError extrae el *Error de una cadena de errores.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
