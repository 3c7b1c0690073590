package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/application/auth"
	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
)

// AuthHandler maneja registro, login, tokens y perfil.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary      Registrar usuario
// @Tags         auth
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return created(c, "User registered successfully", out)
}

// Login godoc
// @Summary      Iniciar sesión con username o email
// @Tags         auth
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return okMessage(c, "Login successful", out)
}

// Refresh emite un nuevo access token a partir del refresh token guardado.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var in dto.RefreshRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Refresh(c.UserContext(), in.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, out)
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	out, err := h.svc.Profile(c.UserContext(), GetPrincipal(c).UserID)
	if err != nil {
		return err
	}
	return ok(c, out)
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var in dto.UpdateProfileRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	out, err := h.svc.UpdateProfile(c.UserContext(), GetPrincipal(c).UserID, in)
	if err != nil {
		return err
	}
	return okMessage(c, "Profile updated successfully", out)
}

// ChangePassword exige la contraseña actual; la nueva pasa por la política única.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var in dto.ChangePasswordRequest
	if err := bindBody(c, &in); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.UserContext(), GetPrincipal(c).UserID, in); err != nil {
		return err
	}
	return okMessage(c, "Password changed successfully", nil)
}

// Logout revoca el refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.svc.Logout(c.UserContext(), GetPrincipal(c).UserID)
	return okMessage(c, "Logout successful", nil)
}

// VerifyToken devuelve la identidad ya verificada por el middleware.
func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	p := GetPrincipal(c)
	if p == nil {
		return domain.NewUnauthorizedError("Authentication required")
	}
	return okMessage(c, "Token is valid", dto.PrincipalResponse{
		ID:             p.UserID,
		Username:       p.Username,
		Email:          p.Email,
		Role:           string(p.Role),
		OrganizationID: p.CurrentOrganizationID,
	})
}
