// Package cache implementa ports.Cache en memoria del proceso y sobre Redis.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jhoicas/productivity-api/internal/application/ports"
)

var _ ports.Cache = (*Memory)(nil)

type entry struct {
	str     string
	hash    map[string]string
	list    []string
	expires time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// sweepInterval cada cuánto una escritura recorre el mapa purgando expiradas.
const sweepInterval = time.Minute

// Memory caché en proceso. El TTL se evalúa al leer y, como mucho una vez por
// sweepInterval, las escrituras purgan las claves expiradas que nadie vuelve a leer
// (ventanas de rate limit pasadas).
type Memory struct {
	mu        sync.Mutex
	items     map[string]*entry
	now       func() time.Time
	lastSweep time.Time
}

// NewMemory construye la caché en memoria.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]*entry), now: time.Now}
}

// Len número de claves almacenadas, expiradas o no.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// sweep purga las expiradas si pasó sweepInterval. Requiere m.mu tomado.
func (m *Memory) sweep() {
	now := m.now()
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
}

// WithClock reemplaza el reloj (tests).
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// live devuelve la entrada vigente o nil, borrando la expirada. Requiere m.mu tomado.
func (m *Memory) live(key string) *entry {
	e, ok := m.items[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return nil
	}
	return e
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return "", false, nil
	}
	return e.str, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.items[key] = &entry{str: value, expires: m.expiry(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Increment(_ context.Context, key string, amount int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		m.sweep()
		e = &entry{str: "0", expires: m.expiry(ttl)}
		m.items[key] = e
	}
	n, err := strconv.ParseInt(e.str, 10, 64)
	if err != nil {
		return 0, err
	}
	n += amount
	e.str = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *Memory) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &entry{}
		m.items[key] = e
	}
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	e.hash[field] = value
	return nil
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil || e.hash == nil {
		return "", false, nil
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (m *Memory) HDel(_ context.Context, key, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(key); e != nil && e.hash != nil {
		delete(e.hash, field)
	}
	return nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	if e := m.live(key); e != nil {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

// LPush inserta por la cabeza, igual que Redis: el último valor queda primero.
func (m *Memory) LPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &entry{}
		m.items[key] = e
	}
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return nil
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return []string{}, nil
	}
	from, to, ok := listBounds(int64(len(e.list)), start, stop)
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), e.list[from:to]...), nil
}

func (m *Memory) LTrim(_ context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return nil
	}
	from, to, ok := listBounds(int64(len(e.list)), start, stop)
	if !ok {
		delete(m.items, key)
		return nil
	}
	e.list = append([]string(nil), e.list[from:to]...)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*entry)
	return nil
}

// listBounds traduce índices estilo Redis (negativos desde el final, stop inclusivo) a [from, to).
func listBounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}
