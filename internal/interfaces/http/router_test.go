package http_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/pkg/config"
)

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username":  "ana_dev",
		"email":     "ANA@Example.com",
		"password":  testPassword,
		"firstName": "Ana",
		"lastName":  "Gómez",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	assert.True(t, res.Success)
	assert.Equal(t, "User registered successfully", res.Message)

	user := res.data(t)["user"].(map[string]any)
	assert.Equal(t, "ana@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	assert.NotEmpty(t, res.data(t)["accessToken"])
}

func TestRegisterEndpoint_ValidationDetails(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "a",
		"email":    "no-es-email",
		"password": testPassword,
	})
	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, "Validation failed", res.Message)
	assert.Equal(t, "ValidationError", res.Error["type"])
	details, _ := res.Error["details"].([]any)
	assert.GreaterOrEqual(t, len(details), 3)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})

	res := env.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "Access token required", res.Message)

	res = env.do(t, http.MethodGet, "/api/tasks", "", nil, "Authorization", "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = env.do(t, http.MethodGet, "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "Invalid token", res.Message)
}

func TestTasks_RequireOrganization(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	auth := env.register(t, "sin_org", "", "")

	res := env.do(t, http.MethodGet, "/api/tasks", auth.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Organization context required", res.Message)
}

func TestTasks_ForeignOrganizationHeader(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	orgA := env.seedOrg("acme")
	orgB := env.seedOrg("globex")
	auth := env.register(t, "agente", "agent", orgA)

	res := env.do(t, http.MethodGet, "/api/tasks", auth.AccessToken, nil, "X-Organization-ID", orgB)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Access denied to this organization", res.Message)
}

func TestTasks_CreateCompletedByProgress(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)

	res := env.do(t, http.MethodPost, "/api/tasks", auth.AccessToken, map[string]any{
		"title":    "Cerrar inventario",
		"progress": 100,
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	assert.Equal(t, "Task created successfully", res.Message)
	task := res.data(t)
	assert.Equal(t, "completed", task["status"])
	assert.NotNil(t, task["completed_at"])
	assert.Equal(t, org, task["organization_id"])
}

func TestTasks_ListPagination(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)
	for i := 0; i < 12; i++ {
		env.store.Seed("tasks", repository.Record{
			"organization_id": org,
			"title":           fmt.Sprintf("tarea %02d", i),
			"created_by":      auth.User.ID,
		})
	}
	env.store.Seed("tasks", repository.Record{
		"organization_id": org, "title": "hecha", "status": "completed", "created_by": auth.User.ID,
	})

	res := env.do(t, http.MethodGet, "/api/tasks?status=pending&page=2&limit=5", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Status, res.Message)

	data := res.data(t)
	assert.Len(t, data["items"], 5)
	pag := data["pagination"].(map[string]any)
	assert.EqualValues(t, 12, pag["total"])
	assert.EqualValues(t, 3, pag["pages"])
	assert.Equal(t, true, pag["hasNext"])
	assert.Equal(t, true, pag["hasPrev"])
}

func TestTasks_ListRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)

	res := env.do(t, http.MethodGet, "/api/tasks?limit=500", auth.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodGet, "/api/tasks?page=9223372036854775807", auth.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "ValidationError", res.Error["type"])
}

func TestTasks_CrossTenantAccess(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	orgA := env.seedOrg("acme")
	orgB := env.seedOrg("globex")
	auth := env.register(t, "agente", "agent", orgA)
	foreign := env.store.Seed("tasks", repository.Record{
		"organization_id": orgB, "title": "ajena", "created_by": auth.User.ID,
	})[0]

	res := env.do(t, http.MethodGet, "/api/tasks/"+foreign, auth.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestTasks_InvalidID(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)

	res := env.do(t, http.MethodGet, "/api/tasks/123", auth.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "Invalid id", res.Message)
}

func TestTasks_DeleteCapability(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	agent := env.register(t, "agente", "agent", org)
	manager := env.register(t, "gerente", "manager", org)
	id := env.store.Seed("tasks", repository.Record{
		"organization_id": org, "title": "borrar", "created_by": agent.User.ID,
	})[0]

	res := env.do(t, http.MethodDelete, "/api/tasks/"+id, agent.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "Insufficient permissions", res.Message)

	res = env.do(t, http.MethodDelete, "/api/tasks/"+id, manager.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	assert.Equal(t, "Task deleted successfully", res.Message)

	res = env.do(t, http.MethodDelete, "/api/tasks/"+id, manager.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})

	res := env.do(t, http.MethodGet, "/no-existe", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Endpoint not found", res.Message)
	assert.False(t, res.Success)

	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)
	res = env.do(t, http.MethodGet, "/api/no-existe", auth.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestModuleStub(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)

	res := env.do(t, http.MethodGet, "/api/financial", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "Financial module - Coming soon", res.data(t)["message"])
	assert.NotEmpty(t, res.data(t)["features"])
}

func TestAI_Disabled(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	agent := env.register(t, "agente", "agent", org)
	customer := env.register(t, "cliente", "customer", org)

	res := env.do(t, http.MethodPost, "/api/ai/enhance-task", agent.AccessToken, map[string]any{
		"title": "Revisar pedidos", "description": "pendientes de la semana",
	})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	enhancement := res.data(t)["enhancement"].(map[string]any)
	assert.Equal(t, "Revisar pedidos", enhancement["title"])

	res = env.do(t, http.MethodPost, "/api/ai/generate-ticket-response", agent.AccessToken, map[string]any{
		"subject": "Pedido tarde", "description": "Mi pedido no llega",
	})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	assert.Contains(t, res.data(t), "response")
	assert.Nil(t, res.data(t)["response"])

	res = env.do(t, http.MethodPost, "/api/ai/generate-ticket-response", customer.AccessToken, map[string]any{
		"subject": "Pedido tarde", "description": "Mi pedido no llega",
	})
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestMapping_Disabled(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})
	org := env.seedOrg("acme")
	auth := env.register(t, "agente", "agent", org)

	res := env.do(t, http.MethodPost, "/api/mapping/geocode", auth.AccessToken, map[string]any{
		"address": "Calle 1 # 2-3, Bogotá",
	})
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "Address not found", res.Message)

	res = env.do(t, http.MethodGet, "/api/mapping/status", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Status)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.RateLimitConfig{})

	for _, path := range []string{"/health", "/api/health"} {
		res := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, res.Status)
	}

	res := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, "OK", res.Body["status"])
	assert.Equal(t, "connected", res.Body["database"])
	assert.Equal(t, "test", res.Body["environment"])

	env.store.SetPingError(assert.AnError)
	res = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "DEGRADED", res.Body["status"])
	assert.Equal(t, "disconnected", res.Body["database"])
}
