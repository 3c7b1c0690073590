// Package validator envuelve go-playground/validator con una instancia única
// que reporta los campos por su nombre JSON.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/productivity-api/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Get devuelve el validador compartido.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = f.Tag.Get("query")
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct valida s y traduce todas las violaciones a un ValidationError con detalle por campo.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err.Error())
	}
	details := make([]domain.FieldError, len(verrs))
	for i, fe := range verrs {
		details[i] = domain.FieldError{
			Field:   fe.Field(),
			Message: translate(fe),
			Value:   fe.Value(),
		}
	}
	return domain.NewValidationError("Validation failed", details...)
}

var messages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"uuid":     "%s must be a valid UUID",
	"uuid4":    "%s must be a valid UUID",
	"username": "%s may only contain letters, numbers and underscores",
	"datetime": "%s must be a valid date",
}

var withParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()
	if t, ok := messages[tag]; ok {
		return fmt.Sprintf(t, field)
	}
	if t, ok := withParam[tag]; ok {
		return fmt.Sprintf(t, field, param)
	}
	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
