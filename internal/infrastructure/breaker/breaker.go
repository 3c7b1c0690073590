// Package breaker envuelve las llamadas HTTP a proveedores externos (DeepSeek,
// Mapbox) con timeout de red y un circuit breaker de sony/gobreaker.
package breaker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	// DefaultTimeout tope de red por petición.
	DefaultTimeout = 10 * time.Second

	maxBody = 1 << 20
)

// Settings parámetros del breaker. Los ceros toman los valores por defecto.
type Settings struct {
	// FailureThreshold fallos consecutivos que abren el circuito.
	FailureThreshold uint32
	// OpenTimeout tiempo en abierto antes de pasar a semiabierto.
	OpenTimeout time.Duration
	// Interval ventana tras la cual se reinician los contadores en cerrado.
	Interval time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	return s
}

// StatusError respuesta HTTP no 2xx del proveedor.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Client cliente HTTP protegido por circuit breaker.
type Client struct {
	name string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// New construye un cliente con nombre (para logs) y su propio breaker.
// Los 4xx no cuentan como fallo: indican un problema de la petición, no del proveedor.
func New(name string, httpClient *http.Client, s Settings, log zerolog.Logger) *Client {
	s = s.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cambio de estado del circuit breaker")
		},
	})
	return &Client{name: name, http: httpClient, cb: cb}
}

// Do ejecuta la petición y devuelve el cuerpo de una respuesta 2xx.
// Con el circuito abierto devuelve gobreaker.ErrOpenState sin tocar la red.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	return c.cb.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, fmt.Errorf("%s: leer respuesta: %w", c.name, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			if len(body) > 512 {
				body = body[:512]
			}
			return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
}

// State estado actual del circuito.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// IsOpen informa si el error proviene de un circuito abierto o saturado.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
