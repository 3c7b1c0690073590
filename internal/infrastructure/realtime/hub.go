// Package realtime implementa el canal de notificaciones en tiempo real:
// registro de conexiones WebSocket, salas, cola de pendientes para usuarios
// desconectados y reparto entre procesos vía Redis pub/sub.
package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/ports"
)

const (
	// OfflineQueueLimit máximo de notificaciones pendientes por usuario.
	OfflineQueueLimit = 100

	userStatusKey = "user_status"
	sendBuffer    = 256
	deliverBuffer = 1024
)

var _ ports.Notifier = (*Hub)(nil)

// Frame mensaje que recibe el cliente.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// envelope evento dirigido a una sala; es también el mensaje del bus entre procesos.
type envelope struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
	Frame  Frame  `json:"frame"`
}

// Bus reparte eventos entre procesos. Lo implementa RedisBus.
type Bus interface {
	Publish(ctx context.Context, env []byte) error
	// Subscribe bloquea entregando cada mensaje a fn hasta que ctx se cancele.
	Subscribe(ctx context.Context, fn func([]byte)) error
}

// RoomAuthorizer decide si un cliente puede unirse a una sala de entidad
// (task:<id>, order:<id>...). Nil permite cualquier sala no reservada.
type RoomAuthorizer func(ctx context.Context, c ClientInfo, room string) bool

type membership struct {
	client *Client
	room   string
}

type direct struct {
	client *Client
	frame  Frame
}

// Hub registro de conexiones. Una sola goroutine (run) es dueña de las salas.
type Hub struct {
	node      string
	cache     ports.Cache
	bus       Bus
	authorize RoomAuthorizer
	log       zerolog.Logger
	now       func() time.Time

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	deliver    chan envelope
	direct     chan direct

	rooms map[string]map[*Client]struct{}

	mu     sync.RWMutex
	online map[string]int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configura el Hub.
type Option func(*Hub)

// WithBus activa el reparto entre procesos.
func WithBus(b Bus) Option { return func(h *Hub) { h.bus = b } }

// WithRoomAuthorizer valida las salas de entidad a las que se une un cliente.
func WithRoomAuthorizer(fn RoomAuthorizer) Option { return func(h *Hub) { h.authorize = fn } }

// WithClock reemplaza el reloj de los timestamps.
func WithClock(now func() time.Time) Option { return func(h *Hub) { h.now = now } }

// NewHub construye el hub. node identifica al proceso en el bus.
func NewHub(node string, cache ports.Cache, log zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		node:       node,
		cache:      cache,
		log:        log.With().Str("component", "realtime").Logger(),
		now:        time.Now,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		deliver:    make(chan envelope, deliverBuffer),
		direct:     make(chan direct, deliverBuffer),
		rooms:      make(map[string]map[*Client]struct{}),
		online:     make(map[string]int),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Start lanza el bucle del hub y, si hay bus, la suscripción entre procesos.
func (h *Hub) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.run()
	}()
	if h.bus != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := h.bus.Subscribe(h.ctx, h.fromBus); err != nil && h.ctx.Err() == nil {
				h.log.Error().Err(err).Msg("suscripción al bus de tiempo real terminada")
			}
		}()
	}
}

// Stop cierra todas las conexiones y espera a que terminen las goroutines del hub.
func (h *Hub) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.wg.Wait()
}

// Online informa si el usuario tiene alguna conexión en este proceso.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

// Connections número de conexiones abiertas del usuario en este proceso.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID]
}

// ── Bucle principal ───────────────────────────────────────────────────────────

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.join:
			h.subscribe(m.client, m.room)
		case m := <-h.leave:
			h.unsubscribe(m.client, m.room)
		case env := <-h.deliver:
			for c := range h.rooms[env.Room] {
				h.push(c, env.Frame)
			}
		case d := <-h.direct:
			if _, ok := d.client.rooms[d.client.userRoom()]; ok {
				h.push(d.client, d.frame)
			}
		}
	}
}

func (h *Hub) add(c *Client) {
	for _, room := range c.defaultRooms() {
		h.subscribe(c, room)
	}
	h.mu.Lock()
	h.online[c.info.UserID]++
	n := h.online[c.info.UserID]
	h.mu.Unlock()
	h.log.Debug().Str("user_id", c.info.UserID).Uint64("socket", c.id).Int("sockets", n).Msg("cliente conectado")
}

func (h *Hub) remove(c *Client) {
	if _, ok := c.rooms[c.userRoom()]; !ok {
		return
	}
	for room := range c.rooms {
		h.unsubscribe(c, room)
	}
	h.mu.Lock()
	h.online[c.info.UserID]--
	if h.online[c.info.UserID] <= 0 {
		delete(h.online, c.info.UserID)
	}
	h.mu.Unlock()
	close(c.send)
	h.log.Debug().Str("user_id", c.info.UserID).Uint64("socket", c.id).Msg("cliente desconectado")
}

func (h *Hub) subscribe(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// push entrega sin bloquear; un cliente con el buffer lleno se desconecta.
func (h *Hub) push(c *Client, f Frame) {
	select {
	case c.send <- f:
	default:
		h.log.Warn().Str("user_id", c.info.UserID).Msg("cliente lento, se cierra la conexión")
		h.remove(c)
	}
}

func (h *Hub) closeAll() {
	seen := make(map[*Client]struct{})
	for _, members := range h.rooms {
		for c := range members {
			seen[c] = struct{}{}
		}
	}
	for c := range seen {
		h.remove(c)
	}
	h.log.Info().Int("clients", len(seen)).Msg("hub de tiempo real detenido")
}

// ── Emisión (ports.Notifier) ──────────────────────────────────────────────────

// SendToRoom implementa ports.Notifier. Añade timestamp al payload.
func (h *Hub) SendToRoom(ctx context.Context, room, event string, data map[string]any) {
	env := envelope{Origin: h.node, Room: room, Frame: h.frame(event, data)}
	h.enqueue(env)
	h.publish(ctx, env)
}

// SendToUser implementa ports.Notifier. Si el usuario no está conectado en
// ningún proceso, la notificación queda en su cola de pendientes.
func (h *Hub) SendToUser(ctx context.Context, userID, event string, data map[string]any) {
	env := envelope{Origin: h.node, Room: "user:" + userID, Frame: h.frame(event, data)}
	if !h.Online(userID) && !h.onlineElsewhere(ctx, userID) {
		h.queue(ctx, userID, env.Frame)
		return
	}
	h.enqueue(env)
	h.publish(ctx, env)
}

func (h *Hub) frame(event string, data map[string]any) Frame {
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["timestamp"] = h.now().UTC()
	return Frame{Event: event, Data: payload}
}

func (h *Hub) enqueue(env envelope) {
	if h.ctx == nil {
		return
	}
	select {
	case h.deliver <- env:
	case <-h.ctx.Done():
	}
}

func (h *Hub) publish(ctx context.Context, env envelope) {
	if h.bus == nil {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		h.log.Error().Err(err).Str("room", env.Room).Msg("serializar evento")
		return
	}
	if err := h.bus.Publish(ctx, raw); err != nil {
		h.log.Warn().Err(err).Str("room", env.Room).Msg("publicar evento en el bus")
	}
}

func (h *Hub) fromBus(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Warn().Err(err).Msg("evento del bus inválido")
		return
	}
	if env.Origin == h.node {
		return
	}
	h.enqueue(env)
}

// ── Presencia y cola de pendientes ────────────────────────────────────────────

type userStatus struct {
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
	SocketCount int       `json:"socketCount"`
}

func (h *Hub) setStatus(ctx context.Context, userID string) {
	n := h.Connections(userID)
	raw, _ := json.Marshal(userStatus{IsOnline: n > 0, LastSeen: h.now().UTC(), SocketCount: n})
	if err := h.cache.HSet(ctx, userStatusKey, userID, string(raw)); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("actualizar estado de conexión")
	}
}

func (h *Hub) onlineElsewhere(ctx context.Context, userID string) bool {
	if h.bus == nil {
		return false
	}
	raw, ok, err := h.cache.HGet(ctx, userStatusKey, userID)
	if err != nil || !ok {
		return false
	}
	var st userStatus
	if json.Unmarshal([]byte(raw), &st) != nil {
		return false
	}
	return st.IsOnline
}

func queueKey(userID string) string { return "notifications:" + userID }

type queued struct {
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
}

// queue guarda la notificación y recorta la lista a las 100 más recientes.
func (h *Hub) queue(ctx context.Context, userID string, f Frame) {
	raw, err := json.Marshal(queued{Event: f.Event, Data: f.Data, Timestamp: h.now().UTC()})
	if err != nil {
		return
	}
	key := queueKey(userID)
	if err := h.cache.LPush(ctx, key, string(raw)); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("encolar notificación")
		return
	}
	if err := h.cache.LTrim(ctx, key, 0, OfflineQueueLimit-1); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("recortar cola de notificaciones")
	}
}

// Pending devuelve las notificaciones pendientes, la más antigua primero.
func (h *Hub) Pending(ctx context.Context, userID string) ([]Frame, error) {
	items, err := h.cache.LRange(ctx, queueKey(userID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]Frame, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var q queued
		if err := json.Unmarshal([]byte(items[i]), &q); err != nil || q.Read {
			continue
		}
		out = append(out, Frame{Event: q.Event, Data: q.Data})
	}
	return out, nil
}

func (h *Hub) flush(ctx context.Context, c *Client) {
	frames, err := h.Pending(ctx, c.info.UserID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", c.info.UserID).Msg("leer notificaciones pendientes")
		return
	}
	if len(frames) == 0 {
		return
	}
	if err := h.cache.Delete(ctx, queueKey(c.info.UserID)); err != nil {
		h.log.Warn().Err(err).Str("user_id", c.info.UserID).Msg("vaciar notificaciones pendientes")
	}
	for _, f := range frames {
		h.sendDirect(c, f)
	}
}

func (h *Hub) sendDirect(c *Client, f Frame) {
	select {
	case h.direct <- direct{client: c, frame: f}:
	case <-h.ctx.Done():
	}
}

// ── Salas ─────────────────────────────────────────────────────────────────────

// canJoin aplica las reglas de acceso: las salas personales solo para uno mismo,
// org y role solo los propios; el resto pasa por el RoomAuthorizer.
func (h *Hub) canJoin(ctx context.Context, c ClientInfo, room string) bool {
	prefix, id, ok := strings.Cut(room, ":")
	if !ok || id == "" {
		return false
	}
	switch prefix {
	case "user", "notifications", "dashboard":
		return id == c.UserID
	case "org":
		return id == c.OrganizationID
	case "role":
		return id == c.Role
	}
	if h.authorize == nil {
		return true
	}
	return h.authorize(ctx, c, room)
}
