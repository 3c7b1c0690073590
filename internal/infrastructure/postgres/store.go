package postgres

import (
	"bytes"
	"context"
	"errors"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

var _ repository.DataStore = (*Store)(nil)

// Store implementación genérica de repository.DataStore sobre pgx.
// Cada fila se lee como to_jsonb(row), así el mismo código sirve a todas las tablas.
type Store struct {
	db     DB
	pinger interface{ Ping(ctx context.Context) error }
}

// NewStore construye el adaptador sobre el pool (o cualquier DB compatible).
func NewStore(db DB) *Store {
	s := &Store{db: db}
	if p, ok := db.(interface{ Ping(ctx context.Context) error }); ok {
		s.pinger = p
	}
	return s
}

// Ping verifica conectividad (reportado en /health).
func (s *Store) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// FindByID devuelve nil, nil si no existe.
func (s *Store) FindByID(ctx context.Context, collection, id string) (repository.Record, error) {
	rows, err := s.FindAll(ctx, collection, []repository.Filter{repository.Eq("id", id)}, repository.Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FindByField busca por igualdad en un campo. Un valor nil no filtra "IS NULL": devuelve vacío.
func (s *Store) FindByField(ctx context.Context, collection, field string, value any) ([]repository.Record, error) {
	if repository.IsNil(value) {
		return []repository.Record{}, nil
	}
	return s.FindAll(ctx, collection, []repository.Filter{repository.Eq(field, value)}, repository.Options{})
}

// FindAll combina condiciones con AND y aplica orden, paginación y joins de opts.
func (s *Store) FindAll(ctx context.Context, collection string, conds []repository.Filter, opts repository.Options) ([]repository.Record, error) {
	return s.FindWithJoins(ctx, collection, opts.Joins, conds, opts)
}

// FindWithJoins incrusta colecciones relacionadas (un nivel) en cada fila.
func (s *Store) FindWithJoins(ctx context.Context, collection string, joins []repository.JoinSpec, conds []repository.Filter, opts repository.Options) ([]repository.Record, error) {
	q := &query{}
	q.selectRecord(joins)
	q.write(" FROM ", ident(collection), " AS ", baseAlias)
	if err := q.where(append(append([]repository.Filter{}, conds...), opts.Conditions...)); err != nil {
		return nil, err
	}
	q.orderAndPage(opts)

	rows, err := s.db.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, translate("select "+collection, err)
	}
	defer rows.Close()

	out := make([]repository.Record, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, translate("scan "+collection, err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, domain.NewDataAccessError("decode "+collection, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("select "+collection, err)
	}
	return out, nil
}

// Count conteo exacto con la misma semántica de condiciones que FindAll.
func (s *Store) Count(ctx context.Context, collection string, conds []repository.Filter) (int64, error) {
	q := &query{}
	q.write("SELECT count(*) FROM ", ident(collection), " AS ", baseAlias)
	if err := q.where(conds); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRow(ctx, q.String(), q.args...).Scan(&n); err != nil {
		return 0, translate("count "+collection, err)
	}
	return n, nil
}

// Search ILIKE sobre los campos (OR) intersectado con opts.Conditions.
func (s *Store) Search(ctx context.Context, collection, term string, fields []string, opts repository.Options) ([]repository.Record, error) {
	conds := []repository.Filter{repository.Match(term, fields...)}
	return s.FindWithJoins(ctx, collection, opts.Joins, conds, opts)
}

// Create inserta y devuelve la fila completa.
func (s *Store) Create(ctx context.Context, collection string, data repository.Record) (repository.Record, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("No data to insert")
	}
	q := &query{}
	keys := sortedKeys(data)
	cols := make([]string, len(keys))
	vals := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = ident(k)
		vals[i] = q.arg(data[k])
	}
	q.write("INSERT INTO ", ident(collection), " AS ", baseAlias,
		" (", strings.Join(cols, ", "), ") VALUES (", strings.Join(vals, ", "), ")",
		" RETURNING to_jsonb(", baseAlias, ")")

	return s.returningOne(ctx, "insert "+collection, q)
}

// Update aplica un parcial; NotFoundError si el id no existe.
func (s *Store) Update(ctx context.Context, collection, id string, data repository.Record) (repository.Record, error) {
	return s.update(ctx, collection, id, nil, data)
}

// UpdateVersioned como Update pero exige version = esperada e incrementa la columna version.
func (s *Store) UpdateVersioned(ctx context.Context, collection, id string, version int64, data repository.Record) (repository.Record, error) {
	return s.update(ctx, collection, id, &version, data)
}

func (s *Store) update(ctx context.Context, collection, id string, version *int64, data repository.Record) (repository.Record, error) {
	q := &query{}
	sets := make([]string, 0, len(data)+1)
	for _, k := range sortedKeys(data) {
		if k == "id" || k == "version" {
			continue
		}
		sets = append(sets, ident(k)+" = "+q.arg(data[k]))
	}
	if len(sets) == 0 {
		rec, err := s.FindByID(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, domain.NewNotFoundError("Record not found")
		}
		return rec, nil
	}
	if version != nil {
		sets = append(sets, ident("version")+" = "+col(baseAlias, "version")+" + 1")
	}
	q.write("UPDATE ", ident(collection), " AS ", baseAlias, " SET ", strings.Join(sets, ", "),
		" WHERE ", col(baseAlias, "id"), " = ", q.arg(id))
	if version != nil {
		q.write(" AND ", col(baseAlias, "version"), " = ", q.arg(*version))
	}
	q.write(" RETURNING to_jsonb(", baseAlias, ")")

	rec, err := s.returningOne(ctx, "update "+collection, q)
	if err == nil || version == nil || !errors.Is(err, domain.ErrNotFound) {
		return rec, err
	}

	// Con versión: distinguir fila inexistente de conflicto de concurrencia.
	current, findErr := s.FindByID(ctx, collection, id)
	if findErr != nil {
		return nil, findErr
	}
	if current == nil {
		return nil, err
	}
	return nil, domain.NewConflictError("Record was modified by another request, reload and retry")
}

// Delete elimina y devuelve la fila borrada; NotFoundError si no existe.
func (s *Store) Delete(ctx context.Context, collection, id string) (repository.Record, error) {
	q := &query{}
	q.write("DELETE FROM ", ident(collection), " AS ", baseAlias,
		" WHERE ", col(baseAlias, "id"), " = ", q.arg(id),
		" RETURNING to_jsonb(", baseAlias, ")")
	return s.returningOne(ctx, "delete "+collection, q)
}

// NextSequence incrementa atómicamente el contador (organization_id, name).
func (s *Store) NextSequence(ctx context.Context, organizationID, name string) (int64, error) {
	const sql = `
		INSERT INTO organization_sequences (organization_id, name, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (organization_id, name)
		DO UPDATE SET value = organization_sequences.value + 1
		RETURNING value`
	var n int64
	if err := s.db.QueryRow(ctx, sql, organizationID, name).Scan(&n); err != nil {
		return 0, translate("next sequence "+name, err)
	}
	return n, nil
}

// WithinTx ejecuta fn sobre un Store atado a una transacción.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.DataStore) error) error {
	err := NewTxRunner(s.db).Run(ctx, func(tx pgx.Tx) error {
		return fn(&Store{db: tx, pinger: s.pinger})
	})
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.NewDataAccessError("transaction", err)
}

func (s *Store) returningOne(ctx context.Context, op string, q *query) (repository.Record, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, q.String(), q.args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("Record not found")
		}
		return nil, translate(op, err)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, domain.NewDataAccessError("decode", err)
	}
	return rec, nil
}

// decodeRecord usa UseNumber para no perder precisión en NUMERIC.
func decodeRecord(raw []byte) (repository.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	rec := repository.Record{}
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}
