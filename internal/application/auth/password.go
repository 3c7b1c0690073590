package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/productivity-api/internal/domain"
)

// DefaultBcryptCost costo usado en producción.
const DefaultBcryptCost = 12

const (
	minPasswordLength = 8
	passwordSymbols   = `!@#$%^&*(),.?":{}|<>`
	passwordPolicyMsg = "Password must be at least 8 characters with uppercase, lowercase, numbers, and special characters"
)

// ValidatePassword aplica la única política de contraseña del sistema.
func ValidatePassword(password string) error {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	var missing []string
	if len([]rune(password)) < minPasswordLength {
		missing = append(missing, "at least 8 characters")
	}
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a number")
	}
	if !symbol {
		missing = append(missing, "a special character")
	}
	if len(missing) == 0 {
		return nil
	}
	details := make([]domain.FieldError, len(missing))
	for i, m := range missing {
		details[i] = domain.FieldError{Field: "password", Message: "must contain " + m}
	}
	return domain.NewValidationError(passwordPolicyMsg, details...)
}

// HashPassword valida la política y devuelve el hash bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", domain.NewAppError("Failed to hash password", err)
	}
	return string(hash), nil
}

// VerifyPassword compara en tiempo constante; un hash vacío nunca verifica.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
