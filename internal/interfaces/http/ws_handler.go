package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/infrastructure/realtime"
)

// WSHandler conecta sockets autenticados al hub de tiempo real.
type WSHandler struct {
	auth Authenticator
	hub  *realtime.Hub
}

// NewWSHandler construye el handler.
func NewWSHandler(auth Authenticator, hub *realtime.Hub) *WSHandler {
	return &WSHandler{auth: auth, hub: hub}
}

// Upgrade valida ?token= antes del handshake; sin token válido no hay socket.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		return domain.NewUnauthorizedError("Authentication error")
	}
	p, err := h.auth.Authenticate(c.UserContext(), token, c.Query("organizationId"))
	if err != nil {
		return err
	}
	c.Locals(LocalPrincipal, p)
	return c.Next()
}

// Serve bloquea mientras el socket esté abierto.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		p, _ := conn.Locals(LocalPrincipal).(*domain.Principal)
		if p == nil {
			_ = conn.Close()
			return
		}
		h.hub.Serve(conn, realtime.ClientInfo{
			UserID:         p.UserID,
			Role:           string(p.Role),
			OrganizationID: p.CurrentOrganizationID,
		})
	})
}
