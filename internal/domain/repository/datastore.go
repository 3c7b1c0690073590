package repository

import (
	"context"
	"reflect"

	json "github.com/goccy/go-json"
)

// Record fila genérica decodificada desde to_jsonb(row).
type Record map[string]any

// String devuelve el campo como string ("" si falta o no es string).
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// ID atajo para r.String("id").
func (r Record) ID() string { return r.String("id") }

// Decode convierte un Record a un tipo concreto usando sus tags json.
func Decode[T any](r Record) (*T, error) {
	if r == nil {
		return nil, nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeAll convierte una lista de Records.
func DecodeAll[T any](rs []Record) ([]T, error) {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		v, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// IsNil detecta nil y punteros/maps/slices nil tipados.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// DataStore acceso genérico a colecciones (tablas). Todas las operaciones
// son una única llamada atómica al almacén; los errores se traducen a
// ConflictError, NotFoundError o DataAccessError.
type DataStore interface {
	// FindByID devuelve nil, nil cuando no existe.
	FindByID(ctx context.Context, collection, id string) (Record, error)
	FindByField(ctx context.Context, collection, field string, value any) ([]Record, error)
	FindAll(ctx context.Context, collection string, conds []Filter, opts Options) ([]Record, error)
	Count(ctx context.Context, collection string, conds []Filter) (int64, error)
	Create(ctx context.Context, collection string, data Record) (Record, error)
	Update(ctx context.Context, collection, id string, data Record) (Record, error)
	// UpdateVersioned falla con ConflictError si la columna version no coincide.
	UpdateVersioned(ctx context.Context, collection, id string, version int64, data Record) (Record, error)
	Delete(ctx context.Context, collection, id string) (Record, error)
	FindWithJoins(ctx context.Context, collection string, joins []JoinSpec, conds []Filter, opts Options) ([]Record, error)
	Search(ctx context.Context, collection, term string, fields []string, opts Options) ([]Record, error)
	// NextSequence contador monotónico por organización; nunca reutiliza valores.
	NextSequence(ctx context.Context, organizationID, name string) (int64, error)
	// WithinTx ejecuta fn sobre un DataStore transaccional.
	WithinTx(ctx context.Context, fn func(tx DataStore) error) error
	Ping(ctx context.Context) error
}
