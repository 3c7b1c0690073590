// Package auth implementa registro, login con bloqueo por intentos, tokens y perfil.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/pkg/jwt"
)

const (
	// MaxLoginAttempts fallos consecutivos que bloquean la cuenta.
	MaxLoginAttempts = 5
	// LockDuration ventana fija de bloqueo.
	LockDuration = 30 * time.Minute

	refreshKeyPrefix = "refresh_token:"
)

const (
	errInvalidCredentials = "Invalid credentials"
	errInvalidRefresh     = "Invalid refresh token"
)

// Service casos de uso de autenticación. Es seguro para uso concurrente.
type Service struct {
	store  repository.DataStore
	cache  ports.Cache
	tokens *jwt.Manager
	log    zerolog.Logger
	now    func() time.Time
	cost   int
}

// NewService construye el servicio de auth.
func NewService(store repository.DataStore, cache ports.Cache, tokens *jwt.Manager, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		cost:   DefaultBcryptCost,
	}
}

// WithClock reemplaza el reloj (tests de bloqueo).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithBcryptCost permite un costo menor en tests.
func (s *Service) WithBcryptCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register crea el usuario (y su membresía si indica organización) y emite tokens.
func (s *Service) Register(ctx context.Context, in dto.RegisterRequest) (*dto.AuthResponse, error) {
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	username := fold(in.Username)
	email := fold(in.Email)

	if existing, err := s.store.FindByField(ctx, "users", "username", username); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, domain.NewConflictError("Username already exists")
	}
	if existing, err := s.store.FindByField(ctx, "users", "email", email); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return nil, domain.NewConflictError("Email already exists")
	}

	if in.OrganizationID != "" {
		org, err := s.store.FindByID(ctx, "organizations", in.OrganizationID)
		if err != nil {
			return nil, err
		}
		if org == nil || org["is_active"] != true {
			return nil, domain.NewValidationError("Invalid organization", domain.FieldError{
				Field: "organizationId", Message: "organization not found or inactive", Value: in.OrganizationID,
			})
		}
	}

	role := in.Role
	if role == "" {
		role = string(domain.RoleAgent)
	}
	now := s.now().UTC()
	data := repository.Record{
		"username":       username,
		"email":          email,
		"password_hash":  hash,
		"first_name":     strings.TrimSpace(in.FirstName),
		"last_name":      strings.TrimSpace(in.LastName),
		"phone":          in.Phone,
		"role":           role,
		"department":     in.Department,
		"position":       in.Position,
		"is_active":      true,
		"login_attempts": 0,
		"created_at":     now,
		"updated_at":     now,
	}

	var created repository.Record
	err = s.store.WithinTx(ctx, func(tx repository.DataStore) error {
		rec, err := tx.Create(ctx, "users", data)
		if err != nil {
			return err
		}
		created = rec
		if in.OrganizationID == "" {
			return nil
		}
		_, err = tx.Create(ctx, "user_organizations", repository.Record{
			"user_id":         rec.ID(),
			"organization_id": in.OrganizationID,
			"role":            role,
			"is_active":       true,
			"joined_at":       now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	user, err := decodeUser(created)
	if err != nil {
		return nil, err
	}
	access, refresh, err := s.issueTokens(ctx, user, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("usuario registrado")
	return &dto.AuthResponse{User: dto.NewUserResponse(user), AccessToken: access, RefreshToken: refresh}, nil
}

// Login verifica credenciales aplicando el bloqueo tras MaxLoginAttempts fallos.
func (s *Service) Login(ctx context.Context, in dto.LoginRequest) (*dto.AuthResponse, error) {
	field, identifier := "username", fold(in.Username)
	if identifier == "" {
		field, identifier = "email", fold(in.Email)
	}
	if identifier == "" {
		return nil, domain.NewValidationError("Username or email is required")
	}

	rows, err := s.store.FindByField(ctx, "users", field, identifier)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewUnauthorizedError(errInvalidCredentials)
	}
	user, err := decodeUser(rows[0])
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if !user.IsActive {
		return nil, domain.NewForbiddenError("Account is deactivated")
	}
	if user.IsLocked(now) {
		return nil, domain.NewForbiddenError("Account is temporarily locked due to multiple failed login attempts")
	}

	attempts := user.LoginAttempts
	if user.LockedUntil != nil {
		// bloqueo vencido: el contador vuelve a empezar
		attempts = 0
	}

	if !VerifyPassword(in.Password, user.PasswordHash) {
		attempts++
		patch := repository.Record{"login_attempts": attempts, "updated_at": now}
		if attempts >= MaxLoginAttempts {
			patch["locked_until"] = now.Add(LockDuration)
			s.log.Warn().Str("user_id", user.ID).Int("attempts", attempts).Msg("cuenta bloqueada por intentos fallidos")
		} else if user.LockedUntil != nil {
			patch["locked_until"] = nil
		}
		if _, err := s.store.Update(ctx, "users", user.ID, patch); err != nil {
			return nil, err
		}
		return nil, domain.NewUnauthorizedError(errInvalidCredentials)
	}

	updated, err := s.store.Update(ctx, "users", user.ID, repository.Record{
		"login_attempts": 0,
		"locked_until":   nil,
		"last_login":     now,
		"updated_at":     now,
	})
	if err != nil {
		return nil, err
	}
	if user, err = decodeUser(updated); err != nil {
		return nil, err
	}

	memberships, err := s.memberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	orgID := in.OrganizationID
	if orgID != "" {
		if m, ok := findMembership(memberships, orgID); !ok || !m.IsActive {
			return nil, domain.NewForbiddenError("User does not have access to this organization")
		}
	} else {
		orgID = defaultOrganization(memberships)
	}

	access, refresh, err := s.issueTokens(ctx, user, orgID)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{User: dto.NewUserResponse(user), AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh emite un nuevo access token; el refresh token no rota.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, domain.NewUnauthorizedError(errInvalidRefresh)
	}
	stored, ok, err := s.cache.Get(ctx, refreshKeyPrefix+claims.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", claims.UserID).Msg("caché no disponible al validar refresh token")
		return nil, domain.NewUnauthorizedError(errInvalidRefresh)
	}
	if !ok || stored != refreshToken {
		return nil, domain.NewUnauthorizedError(errInvalidRefresh)
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.NewUnauthorizedError(errInvalidRefresh)
	}
	memberships, err := s.memberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.GenerateAccess(user.ID, user.Username, user.Email, user.Role, defaultOrganization(memberships))
	if err != nil {
		return nil, domain.NewAppError("Failed to issue token", err)
	}
	return &dto.TokenResponse{AccessToken: access}, nil
}

// Logout revoca el refresh token guardado. Un fallo de caché solo se registra.
func (s *Service) Logout(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, refreshKeyPrefix+userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("no se pudo revocar el refresh token")
	}
}

// Profile devuelve el usuario con sus organizaciones activas.
func (s *Service) Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewNotFoundError("User not found")
	}
	memberships, err := s.memberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	orgs := make([]dto.OrganizationSummary, 0, len(memberships))
	for _, m := range memberships {
		orgs = append(orgs, dto.OrganizationSummary{
			ID: m.ID, Name: m.Name, Slug: m.Slug, Role: string(m.Role), IsActive: m.IsActive,
		})
	}
	return &dto.ProfileResponse{UserResponse: dto.NewUserResponse(user), Organizations: orgs}, nil
}

// UpdateProfile aplica solo los campos presentes.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	patch := repository.Record{}
	setIf := func(col string, v *string) {
		if v != nil {
			patch[col] = strings.TrimSpace(*v)
		}
	}
	setIf("first_name", in.FirstName)
	setIf("last_name", in.LastName)
	setIf("phone", in.Phone)
	setIf("department", in.Department)
	setIf("position", in.Position)
	setIf("language", in.Language)
	if len(patch) == 0 {
		return nil, domain.NewValidationError("No fields to update")
	}
	patch["updated_at"] = s.now().UTC()

	rec, err := s.store.Update(ctx, "users", userID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("User not found")
		}
		return nil, err
	}
	user, err := decodeUser(rec)
	if err != nil {
		return nil, err
	}
	out := dto.NewUserResponse(user)
	return &out, nil
}

// ChangePassword exige la contraseña actual y aplica la política a la nueva.
func (s *Service) ChangePassword(ctx context.Context, userID string, in dto.ChangePasswordRequest) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.NewNotFoundError("User not found")
	}
	if !VerifyPassword(in.CurrentPassword, user.PasswordHash) {
		return domain.NewUnauthorizedError("Current password is incorrect")
	}
	hash, err := HashPassword(in.NewPassword, s.cost)
	if err != nil {
		return err
	}
	_, err = s.store.Update(ctx, "users", userID, repository.Record{
		"password_hash": hash,
		"updated_at":    s.now().UTC(),
	})
	return err
}

// Authenticate resuelve el Principal de un access token. orgHeader (X-Organization-ID) tiene prioridad sobre el claim.
func (s *Service) Authenticate(ctx context.Context, token, orgHeader string) (*domain.Principal, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewUnauthorizedError("Token expired")
		}
		return nil, domain.NewUnauthorizedError("Invalid token")
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.NewUnauthorizedError("Invalid or expired token")
	}
	if user.IsLocked(s.now()) {
		return nil, domain.NewForbiddenError("Account is temporarily locked")
	}

	memberships, err := s.memberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	orgID := strings.TrimSpace(orgHeader)
	if orgID == "" {
		orgID = claims.OrganizationID
	}
	if orgID != "" {
		if _, ok := findMembership(memberships, orgID); !ok {
			return nil, domain.NewForbiddenError("Access denied to this organization")
		}
	}

	return &domain.Principal{
		UserID:                user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		FirstName:             user.FirstName,
		LastName:              user.LastName,
		Role:                  domain.Role(user.Role),
		Organizations:         memberships,
		CurrentOrganizationID: orgID,
	}, nil
}

// issueTokens firma ambos tokens y guarda el refresh para su verificación posterior.
func (s *Service) issueTokens(ctx context.Context, user *entity.User, orgID string) (string, string, error) {
	access, err := s.tokens.GenerateAccess(user.ID, user.Username, user.Email, user.Role, orgID)
	if err != nil {
		return "", "", domain.NewAppError("Failed to issue token", err)
	}
	refresh, _, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return "", "", domain.NewAppError("Failed to issue token", err)
	}
	if err := s.cache.Set(ctx, refreshKeyPrefix+user.ID, refresh, s.tokens.RefreshTTL()); err != nil {
		// sin caché el refresh fallará y el cliente volverá a hacer login
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("no se pudo guardar el refresh token")
	}
	return access, refresh, nil
}

func (s *Service) loadUser(ctx context.Context, id string) (*entity.User, error) {
	rec, err := s.store.FindByID(ctx, "users", id)
	if err != nil || rec == nil {
		return nil, err
	}
	return decodeUser(rec)
}

// memberships membresías activas del usuario, en orden de alta, con los datos de la organización.
func (s *Service) memberships(ctx context.Context, userID string) ([]domain.OrgMembership, error) {
	rows, err := s.store.FindWithJoins(ctx, "user_organizations",
		[]repository.JoinSpec{{
			Collection: "organizations",
			As:         "organization",
			LocalKey:   "organization_id",
			ForeignKey: "id",
			Columns:    []string{"id", "name", "slug", "is_active"},
		}},
		[]repository.Filter{repository.Eq("user_id", userID), repository.Eq("is_active", true)},
		repository.Options{OrderBy: "joined_at"},
	)
	if err != nil {
		return nil, err
	}
	ms, err := repository.DecodeAll[entity.Membership](rows)
	if err != nil {
		return nil, domain.NewDataAccessError("decode user_organizations", err)
	}
	out := make([]domain.OrgMembership, 0, len(ms))
	for _, m := range ms {
		if m.Organization == nil {
			continue
		}
		out = append(out, domain.OrgMembership{
			ID:       m.OrganizationID,
			Name:     m.Organization.Name,
			Slug:     m.Organization.Slug,
			Role:     domain.Role(m.Role),
			IsActive: m.IsActive && m.Organization.IsActive,
		})
	}
	return out, nil
}

func decodeUser(rec repository.Record) (*entity.User, error) {
	user, err := repository.Decode[entity.User](rec)
	if err != nil {
		return nil, domain.NewDataAccessError("decode users", err)
	}
	user.PasswordHash = rec.String("password_hash")
	return user, nil
}

func findMembership(ms []domain.OrgMembership, orgID string) (domain.OrgMembership, bool) {
	for _, m := range ms {
		if m.ID == orgID {
			return m, true
		}
	}
	return domain.OrgMembership{}, false
}

func defaultOrganization(ms []domain.OrgMembership) string {
	for _, m := range ms {
		if m.IsActive {
			return m.ID
		}
	}
	return ""
}

// fold normaliza username/email para comparaciones sin distinguir mayúsculas.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
