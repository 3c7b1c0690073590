package http_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appanalytics "github.com/jhoicas/productivity-api/internal/application/analytics"
	"github.com/jhoicas/productivity-api/internal/application/auth"
	"github.com/jhoicas/productivity-api/internal/application/billing"
	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/application/usecase"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/internal/domain/repository/repotest"
	"github.com/jhoicas/productivity-api/internal/infrastructure/cache"
	"github.com/jhoicas/productivity-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/productivity-api/internal/interfaces/http"
	"github.com/jhoicas/productivity-api/pkg/config"
	"github.com/jhoicas/productivity-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testPassword = "Aa1!aaaa"

type testEnv struct {
	app   *fiber.App
	store *repotest.Store
	cache *cache.Memory
	auth  *auth.Service
}

// newTestEnv arma la API completa sobre el almacén y la caché en memoria.
func newTestEnv(t *testing.T, rl config.RateLimitConfig) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	store := repotest.New()
	mem := cache.NewMemory()
	tokens := jwt.NewManager(jwt.Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "productivity-app",
		Audience:      "productivity-app-users",
	})
	svc := auth.NewService(store, mem, tokens, log).WithBcryptCost(bcrypt.MinCost)

	app := fiber.New(fiber.Config{
		ErrorHandler: apphttp.ErrorHandler(log, false),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	apphttp.Router(app, apphttp.RouterDeps{
		AuthSvc:     svc,
		TaskUC:      usecase.NewTaskUseCase(store, ports.NopNotifier{}, log),
		OrderUC:     billing.NewOrderUseCase(store, ports.NopNotifier{}, pdf.NewOrderSlipGenerator(), log),
		CustomerUC:  usecase.NewCustomerUseCase(store, ports.NopNotifier{}, log),
		DashboardUC: appanalytics.NewDashboardUseCase(store, log),
		AIUC:        usecase.NewAIUseCase(nil, log),
		MappingUC:   usecase.NewMappingUseCase(nil, log),
		Modules:     usecase.NewModuleService(),
		Health:      apphttp.NewHealthHandler(store, mem, "test", "1.0.0"),
		Limiter:     apphttp.NewRateLimiter(mem, log),
		Policies:    apphttp.DefaultPolicies(rl),
	})
	return &testEnv{app: app, store: store, cache: mem, auth: svc}
}

// seedOrg crea una organización activa.
func (e *testEnv) seedOrg(name string) string {
	return e.store.Seed("organizations", repository.Record{"name": name, "slug": name})[0]
}

// register crea un usuario (miembro de orgID si no está vacío) y devuelve su access token.
func (e *testEnv) register(t *testing.T, username, role, orgID string) *dto.AuthResponse {
	t.Helper()
	res, err := e.auth.Register(context.Background(), dto.RegisterRequest{
		Username:       username,
		Email:          username + "@example.com",
		Password:       testPassword,
		FirstName:      "Test",
		LastName:       "User",
		Role:           role,
		OrganizationID: orgID,
	})
	require.NoError(t, err)
	return res
}

type response struct {
	Status  int            `json:"-"`
	Header  http.Header    `json:"-"`
	Body    map[string]any `json:"-"`
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    any            `json:"data"`
	Error   map[string]any `json:"error"`
}

// data devuelve Data como objeto.
func (r response) data(t *testing.T) map[string]any {
	t.Helper()
	m, ok := r.Data.(map[string]any)
	require.True(t, ok, "data no es un objeto: %#v", r.Data)
	return m
}

// do lanza la petición y decodifica el envelope.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get(fiber.HeaderContentType) != "application/pdf" {
		require.NoError(t, json.Unmarshal(raw, &out.Body), "cuerpo: %s", raw)
		require.NoError(t, json.Unmarshal(raw, &out), "cuerpo: %s", raw)
	}
	return out
}
