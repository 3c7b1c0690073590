package dto

import (
	"strings"
	"time"

	"github.com/jhoicas/productivity-api/internal/domain"
)

// ParseDate acepta 2006-01-02 o RFC3339 en un parámetro de consulta. Vacío → nil.
// endOfDay lleva una fecha sin hora hasta el último instante del día.
func ParseDate(field, value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, domain.NewValidationError("Invalid query parameters", domain.FieldError{
			Field: field, Message: "must be an ISO 8601 date", Value: value,
		})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
