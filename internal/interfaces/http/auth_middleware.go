package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/domain"
)

// LocalPrincipal clave de c.Locals con el *domain.Principal autenticado.
const LocalPrincipal = "principal"

// HeaderOrganization selecciona la organización activa por petición.
const HeaderOrganization = "X-Organization-ID"

// Authenticator resuelve un access token a su Principal. Lo implementa *auth.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, token, orgHeader string) (*domain.Principal, error)
}

// Authenticate valida el Bearer Token, recarga el usuario y deja el Principal en c.Locals.
func Authenticate(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		p, err := a.Authenticate(c.UserContext(), token, c.Get(HeaderOrganization))
		if err != nil {
			return err
		}
		c.Locals(LocalPrincipal, p)
		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.NewUnauthorizedError("Access token required")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", domain.NewUnauthorizedError("Invalid authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.NewUnauthorizedError("Access token required")
	}
	return token, nil
}

// Authorize exige uno de los roles, global o en la organización actual.
func Authorize(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return domain.NewUnauthorizedError("Authentication required")
		}
		if !p.HasAnyRole(roles...) {
			return domain.NewForbiddenError("Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireCapability exige una capacidad de la tabla de roles.
func RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return domain.NewUnauthorizedError("Authentication required")
		}
		if !p.Can(capability) {
			return domain.NewForbiddenError("Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireOrganization falla cerrado si no hay organización activa a la que pertenezca el usuario.
func RequireOrganization() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil {
			return domain.NewUnauthorizedError("Authentication required")
		}
		if p.CurrentOrganizationID == "" {
			return domain.NewForbiddenError("Organization context required")
		}
		if !p.InActiveOrganization() {
			return domain.NewForbiddenError("Access denied to this organization")
		}
		return c.Next()
	}
}

// GetPrincipal devuelve el Principal del contexto (después de Authenticate) o nil.
func GetPrincipal(c *fiber.Ctx) *domain.Principal {
	p, _ := c.Locals(LocalPrincipal).(*domain.Principal)
	return p
}

func principalID(c *fiber.Ctx) string {
	if p := GetPrincipal(c); p != nil {
		return p.UserID
	}
	return ""
}
