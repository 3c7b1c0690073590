package entity

import "time"

// User usuario del sistema. PasswordHash nunca se serializa: se lee aparte de la fila (columna password_hash).
type User struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Phone         *string    `json:"phone"`
	Role          string     `json:"role"`
	Department    *string    `json:"department"`
	Position      *string    `json:"position"`
	Language      string     `json:"language"`
	AvatarURL     *string    `json:"avatar_url"`
	IsActive      bool       `json:"is_active"`
	LoginAttempts int        `json:"login_attempts"`
	LockedUntil   *time.Time `json:"locked_until"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsLocked indica si el bloqueo por intentos fallidos sigue vigente en now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Membership relación usuario-organización con rol propio (tabla user_organizations).
type Membership struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	OrganizationID string        `json:"organization_id"`
	Role           string        `json:"role"`
	IsActive       bool          `json:"is_active"`
	JoinedAt       time.Time     `json:"joined_at"`
	Organization   *Organization `json:"organization,omitempty"`
}
