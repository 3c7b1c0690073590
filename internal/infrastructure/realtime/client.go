package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var clientIDCounter atomic.Uint64

// Conn subconjunto de la API de conexión WebSocket que usa el hub. Lo cumplen
// *gorilla/websocket.Conn y el *websocket.Conn de gofiber/contrib.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ClientInfo identidad del usuario autenticado en el handshake.
type ClientInfo struct {
	UserID         string
	Role           string
	OrganizationID string
}

// Client conexión de un usuario. rooms solo lo toca la goroutine del hub.
type Client struct {
	id    uint64
	hub   *Hub
	conn  Conn
	info  ClientInfo
	send  chan Frame
	rooms map[string]struct{}
}

type inbound struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

func (c *Client) userRoom() string { return "user:" + c.info.UserID }

func (c *Client) defaultRooms() []string {
	rooms := []string{c.userRoom()}
	if c.info.Role != "" {
		rooms = append(rooms, "role:"+c.info.Role)
	}
	if c.info.OrganizationID != "" {
		rooms = append(rooms, "org:"+c.info.OrganizationID)
	}
	return rooms
}

// Serve registra la conexión y bloquea leyendo mensajes hasta que el cliente
// se desconecte o el hub se detenga.
func (h *Hub) Serve(conn Conn, info ClientInfo) {
	c := &Client{
		id:    clientIDCounter.Add(1),
		hub:   h,
		conn:  conn,
		info:  info,
		send:  make(chan Frame, sendBuffer),
		rooms: make(map[string]struct{}),
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	ctx := h.ctx
	h.setStatus(ctx, info.UserID)
	h.sendDirect(c, Frame{Event: "connected", Data: map[string]any{
		"userId":    info.UserID,
		"socketId":  c.id,
		"timestamp": h.now().UTC(),
	}})
	h.flush(ctx, c)

	c.readPump(ctx)

	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
	<-done
	h.setStatus(context.Background(), info.UserID)
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("user_id", c.info.UserID).Msg("conexión cerrada")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.sendDirect(c, errorFrame("Invalid message"))
			continue
		}
		switch msg.Action {
		case "join":
			if !c.hub.canJoin(ctx, c.info, msg.Room) {
				c.hub.sendDirect(c, errorFrame("Access denied to room"))
				continue
			}
			c.hub.member(c.hub.join, c, msg.Room)
		case "leave":
			if msg.Room == c.userRoom() {
				continue
			}
			c.hub.member(c.hub.leave, c, msg.Room)
		case "ping":
			c.hub.sendDirect(c, Frame{Event: "pong", Data: map[string]any{"timestamp": c.hub.now().UTC()}})
		default:
			c.hub.sendDirect(c, errorFrame("Unknown action"))
		}
	}
}

func (h *Hub) member(ch chan membership, c *Client, room string) {
	select {
	case ch <- membership{client: c, room: room}:
	case <-h.ctx.Done():
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			raw, err := json.Marshal(f)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorFrame(msg string) Frame {
	return Frame{Event: "error", Data: map[string]any{"message": msg}}
}
