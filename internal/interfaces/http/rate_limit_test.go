package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/infrastructure/cache"
	apphttp "github.com/jhoicas/productivity-api/internal/interfaces/http"
	"github.com/jhoicas/productivity-api/pkg/config"
)

// brokenCache falla en Increment; el resto del puerto no se usa.
type brokenCache struct{ ports.Cache }

func (brokenCache) Increment(context.Context, string, int64, time.Duration) (int64, error) {
	return 0, errors.New("redis: connection refused")
}

func limitedApp(c ports.Cache, now func() time.Time, policy apphttp.Policy) *fiber.App {
	limiter := apphttp.NewRateLimiter(c, zerolog.Nop()).WithClock(now)
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(zerolog.Nop(), false)})
	app.Use(limiter.Limit(policy))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/fail", func(c *fiber.Ctx) error { return fiber.ErrBadRequest })
	return app
}

func hit(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	return hitAs(t, app, path, "")
}

// hitAs envía el token como Bearer y, si se indica, el header de organización.
func hitAs(t *testing.T, app *fiber.App, path, token string, headers ...string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp
}

// authedLimitedApp autentica con el stub antes de aplicar la política en /ok.
// /public aplica la política sin autenticación.
func authedLimitedApp(auth apphttp.Authenticator, now func() time.Time, policy apphttp.Policy) *fiber.App {
	limiter := apphttp.NewRateLimiter(cache.NewMemory(), zerolog.Nop()).WithClock(now)
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(zerolog.Nop(), false)})
	ok := func(c *fiber.Ctx) error { return c.SendString("ok") }
	app.Get("/ok", apphttp.Authenticate(auth), limiter.Limit(policy), ok)
	app.Get("/public", limiter.Limit(policy), ok)
	return app
}

func member(userID string, role domain.Role, orgID string) *domain.Principal {
	return &domain.Principal{
		UserID:                userID,
		Username:              userID,
		Role:                  role,
		Organizations:         []domain.OrgMembership{{ID: orgID, Name: orgID, Role: role, IsActive: true}},
		CurrentOrganizationID: orgID,
	}
}

func TestRateLimit_BloqueaAlSuperarElLimite(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 1, 0, 0, time.UTC)
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{Max: 3, Window: 15 * time.Minute}).API
	app := limitedApp(cache.NewMemory(), func() time.Time { return now }, policy)

	for i := 0; i < 3; i++ {
		resp := hit(t, app, "/ok")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "3", resp.Header.Get("RateLimit-Limit"))
	}
	resp := hit(t, app, "/ok")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("RateLimit-Remaining"))
	// ventana alineada a 12:00, reinicia a las 12:15
	assert.Equal(t, "840", resp.Header.Get("Retry-After"))
}

func TestRateLimit_NuevaVentanaReinicia(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 14, 0, 0, time.UTC)
	mem := cache.NewMemory().WithClock(func() time.Time { return now })
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{Max: 1}).API
	app := limitedApp(mem, func() time.Time { return now }, policy)

	assert.Equal(t, http.StatusOK, hit(t, app, "/ok").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, app, "/ok").StatusCode)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, hit(t, app, "/ok").StatusCode)
}

func TestRateLimit_SkipSuccessfulSoloCuentaFallos(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{AuthMax: 2}).Auth
	app := limitedApp(cache.NewMemory(), func() time.Time { return now }, policy)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(t, app, "/ok").StatusCode)
	}
	assert.Equal(t, http.StatusBadRequest, hit(t, app, "/fail").StatusCode)
	assert.Equal(t, http.StatusBadRequest, hit(t, app, "/fail").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, hit(t, app, "/fail").StatusCode)
}

func TestRateLimit_HealthExento(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{Max: 1}).API
	app := limitedApp(cache.NewMemory(), func() time.Time { return now }, policy)

	for i := 0; i < 3; i++ {
		resp := hit(t, app, "/health")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("RateLimit-Limit"))
	}
}

func TestRateLimit_CacheCaidaDejaPasar(t *testing.T) {
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{Max: 1}).API
	app := limitedApp(brokenCache{}, time.Now, policy)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(t, app, "/ok").StatusCode)
	}
}

func TestRateLimit_SearchSoloConParametro(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	policy := apphttp.DefaultPolicies(config.RateLimitConfig{}).Search
	app := limitedApp(cache.NewMemory(), func() time.Time { return now }, policy)

	resp := hit(t, app, "/ok")
	assert.Empty(t, resp.Header.Get("RateLimit-Limit"))

	resp = hit(t, app, "/ok?search=abc")
	assert.Equal(t, "60", resp.Header.Get("RateLimit-Limit"))
}

func TestRateLimit_RolePolicyQuotas(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	quotas := map[domain.Role]string{
		domain.RoleAdmin:                "5000",
		domain.RoleManager:              "2000",
		domain.RoleAgent:                "1000",
		domain.RoleRepresentative:       "800",
		domain.RoleCustomer:             "200",
		domain.RoleWarehouseManager:     "1500",
		domain.RoleFinancialManager:     "1200",
		domain.RoleLogisticsCoordinator: "1000",
	}
	stub := &stubAuthenticator{principals: map[string]*domain.Principal{}}
	for role := range quotas {
		stub.principals[string(role)] = member("u-"+string(role), role, testOrgID)
	}
	app := authedLimitedApp(stub, func() time.Time { return now }, apphttp.DefaultPolicies(config.RateLimitConfig{}).Role)

	for role, want := range quotas {
		t.Run(string(role), func(t *testing.T) {
			resp := hitAs(t, app, "/ok", string(role))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, want, resp.Header.Get("RateLimit-Limit"))
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		resp := hit(t, app, "/public")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "100", resp.Header.Get("RateLimit-Limit"))
		assert.Equal(t, "99", resp.Header.Get("RateLimit-Remaining"))
	})
}

func TestRateLimit_RolePolicyCountsPerUser(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	stub := &stubAuthenticator{principals: map[string]*domain.Principal{
		"ana":  member("u-ana", domain.RoleCustomer, testOrgID),
		"beto": member("u-beto", domain.RoleCustomer, testOrgID),
	}}
	app := authedLimitedApp(stub, func() time.Time { return now }, apphttp.DefaultPolicies(config.RateLimitConfig{}).Role)

	hitAs(t, app, "/ok", "ana")
	resp := hitAs(t, app, "/ok", "ana")
	assert.Equal(t, "198", resp.Header.Get("RateLimit-Remaining"))

	resp = hitAs(t, app, "/ok", "beto")
	assert.Equal(t, "199", resp.Header.Get("RateLimit-Remaining"), "mismo IP, contador distinto por usuario")
}

func TestRateLimit_UserPolicy(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	stub := &stubAuthenticator{principals: map[string]*domain.Principal{
		"admin": member("u-admin", domain.RoleAdmin, testOrgID),
		"agent": member("u-agent", domain.RoleAgent, testOrgID),
	}}
	app := authedLimitedApp(stub, func() time.Time { return now }, apphttp.DefaultPolicies(config.RateLimitConfig{}).User)

	for i := 0; i < 130; i++ {
		resp := hitAs(t, app, "/ok", "admin")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Header.Get("RateLimit-Limit"), "los administradores no cuentan")
	}

	for i := 0; i < 120; i++ {
		resp := hitAs(t, app, "/ok", "agent")
		require.Equal(t, http.StatusOK, resp.StatusCode, "petición %d", i+1)
		assert.Equal(t, "120", resp.Header.Get("RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hitAs(t, app, "/ok", "agent").StatusCode)

	resp := hit(t, app, "/public")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("RateLimit-Limit"), "sin usuario la política no aplica")
}

func TestRateLimit_OrganizationPolicySharesCounter(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	stub := &stubAuthenticator{principals: map[string]*domain.Principal{
		"ana":  member("u-ana", domain.RoleAgent, "org-a"),
		"beto": member("u-beto", domain.RoleAgent, "org-a"),
		"caro": member("u-caro", domain.RoleAgent, "org-b"),
	}}
	app := authedLimitedApp(stub, func() time.Time { return now }, apphttp.DefaultPolicies(config.RateLimitConfig{}).Organization)

	resp := hitAs(t, app, "/ok", "ana")
	assert.Equal(t, "1000", resp.Header.Get("RateLimit-Limit"))
	assert.Equal(t, "999", resp.Header.Get("RateLimit-Remaining"))

	resp = hitAs(t, app, "/ok", "beto")
	assert.Equal(t, "998", resp.Header.Get("RateLimit-Remaining"), "misma organización comparte cuota")

	resp = hitAs(t, app, "/ok", "caro")
	assert.Equal(t, "999", resp.Header.Get("RateLimit-Remaining"))

	resp = hit(t, app, "/public")
	assert.Empty(t, resp.Header.Get("RateLimit-Limit"))
}
