package http

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/pkg/config"
)

const rateLimitKeyPrefix = "rate_limit:"

// Policy cuota de peticiones por ventana fija de reloj.
type Policy struct {
	Name   string
	Window time.Duration
	// Max límite para la petición; permite cuotas por rol.
	Max func(c *fiber.Ctx) int
	// Scope clave del contador (IP, usuario, organización). ok=false omite la política.
	Scope func(c *fiber.Ctx) (key string, ok bool)
	// SkipSuccessful descuenta las respuestas < 400.
	SkipSuccessful bool
	Message        string
}

// roleLimits cuota por rol en la ventana de 15 minutos.
var roleLimits = map[domain.Role]int{
	domain.RoleAdmin:                5000,
	domain.RoleManager:              2000,
	domain.RoleAgent:                1000,
	domain.RoleRepresentative:       800,
	domain.RoleCustomer:             200,
	domain.RoleWarehouseManager:     1500,
	domain.RoleFinancialManager:     1200,
	domain.RoleLogisticsCoordinator: 1000,
}

const anonymousRoleLimit = 100

// Policies conjunto de políticas que usa el router.
type Policies struct {
	API          Policy
	Auth         Policy
	Strict       Policy
	Search       Policy
	User         Policy
	Organization Policy
	Role         Policy
}

// DefaultPolicies construye las políticas a partir de la configuración.
func DefaultPolicies(cfg config.RateLimitConfig) Policies {
	window := cfg.Window
	if window <= 0 {
		window = 15 * time.Minute
	}
	return Policies{
		API: Policy{
			Name: "api", Window: window, Max: fixed(orDefault(cfg.Max, 1000)), Scope: byIP,
			Message: "Too many requests from this IP, please try again later.",
		},
		Auth: Policy{
			Name: "auth", Window: 15 * time.Minute, Max: fixed(orDefault(cfg.AuthMax, 10)), Scope: byIP,
			SkipSuccessful: true,
			Message:        "Too many authentication attempts, please try again later.",
		},
		Strict: Policy{
			Name: "strict", Window: time.Hour, Max: fixed(5), Scope: byUserOrIP,
			SkipSuccessful: true,
			Message:        "Too many attempts, please try again later.",
		},
		Search: Policy{
			Name: "search", Window: time.Minute, Max: fixed(60),
			Scope: func(c *fiber.Ctx) (string, bool) {
				if c.Query("search") == "" {
					return "", false
				}
				return byUserOrIP(c)
			},
			Message: "Too many search requests, please slow down.",
		},
		User: Policy{
			Name: "user", Window: time.Minute, Max: fixed(120),
			Scope: func(c *fiber.Ctx) (string, bool) {
				p := GetPrincipal(c)
				if p == nil || p.Can(domain.CapRateLimitExempt) {
					return "", false
				}
				return p.UserID, true
			},
			Message: "User rate limit exceeded",
		},
		Organization: Policy{
			Name: "organization", Window: time.Minute, Max: fixed(1000),
			Scope: func(c *fiber.Ctx) (string, bool) {
				p := GetPrincipal(c)
				if p == nil || p.CurrentOrganizationID == "" {
					return "", false
				}
				return p.CurrentOrganizationID, true
			},
			Message: "Organization rate limit exceeded",
		},
		Role: Policy{
			Name: "role", Window: 15 * time.Minute,
			Max: func(c *fiber.Ctx) int {
				if p := GetPrincipal(c); p != nil {
					if n, found := roleLimits[p.Role]; found {
						return n
					}
				}
				return anonymousRoleLimit
			},
			Scope:   byUserOrIP,
			Message: "Rate limit exceeded for your role",
		},
	}
}

func fixed(n int) func(*fiber.Ctx) int { return func(*fiber.Ctx) int { return n } }

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func byIP(c *fiber.Ctx) (string, bool) { return "ip:" + c.IP(), true }

func byUserOrIP(c *fiber.Ctx) (string, bool) {
	if p := GetPrincipal(c); p != nil {
		return "user:" + p.UserID, true
	}
	return byIP(c)
}

// RateLimiter cuenta peticiones en la caché compartida. Si la caché falla deja pasar.
type RateLimiter struct {
	cache ports.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewRateLimiter construye el limitador.
func NewRateLimiter(cache ports.Cache, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{cache: cache, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Limit devuelve el middleware de la política.
func (l *RateLimiter) Limit(p Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isHealthPath(c.Path()) {
			return c.Next()
		}
		scope, apply := p.Scope(c)
		if !apply {
			return c.Next()
		}

		now := l.now()
		start := now.Truncate(p.Window)
		reset := start.Add(p.Window)
		ttl := reset.Sub(now)
		key := rateLimitKeyPrefix + p.Name + ":" + scope + ":" + strconv.FormatInt(start.Unix(), 10)
		limit := p.Max(c)

		count, err := l.cache.Increment(c.UserContext(), key, 1, ttl)
		if err != nil {
			l.log.Warn().Err(err).Str("policy", p.Name).Msg("rate limiter sin caché, se permite la petición")
			return c.Next()
		}

		resetSeconds := int(math.Ceil(ttl.Seconds()))
		if resetSeconds < 1 {
			resetSeconds = 1
		}
		c.Set("RateLimit-Limit", strconv.Itoa(limit))
		c.Set("RateLimit-Remaining", strconv.FormatInt(max(int64(limit)-count, 0), 10))
		c.Set("RateLimit-Reset", strconv.Itoa(resetSeconds))

		if count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resetSeconds))
			return domain.NewTooManyRequestsError(p.Message)
		}

		err = c.Next()
		if p.SkipSuccessful && err == nil && c.Response().StatusCode() < fiber.StatusBadRequest {
			if _, derr := l.cache.Increment(c.UserContext(), key, -1, ttl); derr != nil {
				l.log.Warn().Err(derr).Str("policy", p.Name).Msg("no se pudo descontar la petición exitosa")
			}
		}
		return err
	}
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/api/health"
}
