package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Errores de verificación; el llamador los traduce a 401.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims del access token: identidad, rol global y organización activa.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// RefreshClaims del refresh token: solo el usuario y un identificador aleatorio.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID  string `json:"id"`
	TokenID string `json:"tokenId"`
}

// Config parámetros de firma.
type Config struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
}

// Manager firma y valida tokens de acceso y refresh con secretos distintos.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager construye el gestor de tokens.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// RefreshTTL vida útil del refresh token.
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// GenerateAccess firma un access token HS256.
func (m *Manager) GenerateAccess(userID, username, email, role, organizationID string) (string, error) {
	if m.cfg.Secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
		},
		UserID:         userID,
		Username:       username,
		Email:          email,
		Role:           role,
		OrganizationID: organizationID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.Secret))
}

// GenerateRefresh firma un refresh token y devuelve también su tokenId.
func (m *Manager) GenerateRefresh(userID string) (token string, tokenID string, err error) {
	if m.cfg.RefreshSecret == "" {
		return "", "", fmt.Errorf("jwt: refresh secret vacío")
	}
	now := m.now()
	tokenID = uuid.NewString()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.RefreshTTL)),
		},
		UserID:  userID,
		TokenID: tokenID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.cfg.RefreshSecret))
	return token, tokenID, err
}

// ParseAccess valida firma, expiración, emisor y audiencia del access token.
func (m *Manager) ParseAccess(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(tokenString, m.cfg.Secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh valida el refresh token con su propio secreto.
func (m *Manager) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenString, m.cfg.RefreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) parse(tokenString, secret string, claims jwt.Claims) error {
	if secret == "" {
		return fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
