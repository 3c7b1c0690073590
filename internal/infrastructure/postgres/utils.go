package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/productivity-api/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
	codeCheckViolation      = "23514"
)

// translate convierte errores del driver a la taxonomía de dominio.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if de, ok := domain.AsError(err); ok {
		return de
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.NewConflictError(duplicateMessage(pgErr))
		case codeForeignKeyViolation:
			return domain.NewValidationError("Referenced record does not exist", domain.FieldError{
				Field: constraintField(pgErr.TableName, pgErr.ConstraintName, "_fkey"), Message: "unknown reference",
			})
		case codeInvalidText:
			return domain.NewValidationError("Invalid identifier format")
		case codeCheckViolation:
			return domain.NewValidationError("Value violates constraint " + pgErr.ConstraintName)
		}
	}
	return domain.NewDataAccessError(op, err)
}

func duplicateMessage(pgErr *pgconn.PgError) string {
	field := constraintField(pgErr.TableName, pgErr.ConstraintName, "_key")
	if field == "" {
		return "Resource already exists"
	}
	return "Resource with this " + field + " already exists"
}

// constraintField deduce la columna a partir del nombre convencional del constraint (users_email_key -> email).
func constraintField(table, constraint, suffix string) string {
	name := strings.TrimSuffix(constraint, suffix)
	if table != "" {
		name = strings.TrimPrefix(name, table+"_")
	}
	return name
}
