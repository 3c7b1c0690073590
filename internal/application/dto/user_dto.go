package dto

import (
	"time"

	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

// RegisterRequest entrada de POST /api/auth/register. La política de contraseña se aplica en auth.
type RegisterRequest struct {
	Username       string  `json:"username" validate:"required,min=3,max=30,username"`
	Email          string  `json:"email" validate:"required,email,max=255"`
	Password       string  `json:"password" validate:"required"`
	FirstName      string  `json:"firstName" validate:"required,min=1,max=100"`
	LastName       string  `json:"lastName" validate:"required,min=1,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,max=40"`
	Role           string  `json:"role" validate:"omitempty,oneof=admin manager agent representative customer warehouse_manager financial_manager logistics_coordinator"`
	OrganizationID string  `json:"organizationId" validate:"omitempty,uuid"`
	Department     *string `json:"department" validate:"omitempty,max=100"`
	Position       *string `json:"position" validate:"omitempty,max=100"`
}

// LoginRequest acepta username o email.
type LoginRequest struct {
	Username       string `json:"username" validate:"omitempty,min=3,max=30"`
	Email          string `json:"email" validate:"omitempty,email"`
	Password       string `json:"password" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"omitempty,uuid"`
}

// RefreshRequest entrada de POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UpdateProfileRequest campos editables del perfil; nil = no se toca.
type UpdateProfileRequest struct {
	FirstName  *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=40"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	Language   *string `json:"language" validate:"omitempty,oneof=en ar"`
}

// ChangePasswordRequest entrada de POST /api/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// UserResponse salida de un usuario (sin credenciales).
type UserResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Phone      *string    `json:"phone"`
	Role       string     `json:"role"`
	Department *string    `json:"department"`
	Position   *string    `json:"position"`
	Language   string     `json:"language"`
	AvatarURL  *string    `json:"avatar_url"`
	IsActive   bool       `json:"is_active"`
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewUserResponse copia los campos públicos de la entidad.
func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		Role:       u.Role,
		Department: u.Department,
		Position:   u.Position,
		Language:   u.Language,
		AvatarURL:  u.AvatarURL,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// OrganizationSummary organización del usuario con su rol en ella.
type OrganizationSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// ProfileResponse usuario con sus organizaciones.
type ProfileResponse struct {
	UserResponse
	Organizations []OrganizationSummary `json:"organizations"`
}

// AuthResponse salida de register y login.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// TokenResponse salida de refresh.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// PrincipalResponse identidad verificada (verify-token).
type PrincipalResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}
