package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger dependencia cuya conectividad se reporta en /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// HealthHandler reporta el estado del proceso, la base de datos y la caché.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	env     string
	version string
	started time.Time
}

// NewHealthHandler construye el handler.
func NewHealthHandler(db, cache Pinger, env, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, env: env, version: version, started: time.Now()}
}

// Check GET /health y GET /api/health. Siempre 200; el detalle indica qué dependencia falla.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	database := connectivity(ctx, h.db)
	cache := connectivity(ctx, h.cache)
	status := "OK"
	if database != "connected" || cache != "connected" {
		status = "DEGRADED"
	}
	return c.JSON(fiber.Map{
		"status":      status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(h.started).Seconds(),
		"environment": h.env,
		"version":     h.version,
		"database":    database,
		"cache":       cache,
	})
}

func connectivity(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
