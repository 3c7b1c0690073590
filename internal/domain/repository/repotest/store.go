// Package repotest ofrece un repository.DataStore en memoria para tests de casos de uso y handlers.
//
// Las filas se guardan serializadas en JSON, igual que las devuelve to_jsonb(row) en Postgres,
// así los tests decodifican los mismos tipos (json.Number, strings RFC3339) que en producción.
package repotest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

var _ repository.DataStore = (*Store)(nil)

// defaults replica los DEFAULT de la migración para las tablas que los usan los casos de uso.
var defaults = map[string]repository.Record{
	"organizations":      {"is_active": true, "settings": map[string]any{}},
	"users":              {"role": "agent", "language": "en", "is_active": true, "login_attempts": 0},
	"user_organizations": {"role": "agent", "is_active": true},
	"tasks": {
		"status": "pending", "priority": "medium", "progress": 0,
		"tags": []string{}, "checklist": []any{}, "metadata": map[string]any{}, "version": 1,
	},
	"customers": {"customer_type": "individual", "customer_tier": "bronze", "payment_terms": 30, "credit_limit": "0", "is_active": true, "version": 1},
	"orders": {
		"order_type": "standard", "order_status": "pending", "payment_status": "pending", "priority": "medium",
		"subtotal": "0", "tax_amount": "0", "discount_amount": "0", "shipping_amount": "0", "total_amount": "0", "version": 1,
	},
	"order_items": {"discount_amount": "0", "tax_rate": "0", "tax_amount": "0"},
}

// uniques replica los UNIQUE de la migración; el primer campo da nombre al mensaje de conflicto.
var uniques = map[string][][]string{
	"users":              {{"username"}, {"email"}},
	"organizations":      {{"slug"}},
	"user_organizations": {{"user_id", "organization_id"}},
	"customers":          {{"customer_code", "organization_id"}, {"email", "organization_id"}},
	"orders":             {{"order_number", "organization_id"}},
}

// Store DataStore en memoria. Seguro para uso concurrente; WithinTx restaura el estado si fn falla.
type Store struct {
	mu      sync.Mutex
	tables  map[string][][]byte
	seqs    map[string]int64
	fail    map[string]error
	now     func() time.Time
	pingErr error
}

// New construye un Store vacío.
func New() *Store {
	return &Store{
		tables: make(map[string][][]byte),
		seqs:   make(map[string]int64),
		fail:   make(map[string]error),
		now:    time.Now,
	}
}

// WithClock fija el reloj usado para created_at/updated_at por defecto.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// FailOn hace que toda operación sobre collection devuelva err (nil lo desactiva).
func (s *Store) FailOn(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, collection)
		return
	}
	s.fail[collection] = err
}

// SetPingError simula un almacén caído en /health.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// Seed inserta filas sin pasar por las restricciones; devuelve los ids asignados.
func (s *Store) Seed(collection string, rows ...repository.Record) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		rec := s.withDefaults(collection, r)
		raw, err := json.Marshal(rec)
		if err != nil {
			panic(fmt.Sprintf("repotest: seed %s: %v", collection, err))
		}
		s.tables[collection] = append(s.tables[collection], raw)
		ids = append(ids, rec.ID())
	}
	return ids
}

// Rows devuelve todas las filas de collection en orden de inserción.
func (s *Store) Rows(collection string) []repository.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Record, 0, len(s.tables[collection]))
	for _, raw := range s.tables[collection] {
		out = append(out, mustDecode(raw))
	}
	return out
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (repository.Record, error) {
	rows, err := s.FindAll(ctx, collection, []repository.Filter{repository.Eq("id", id)}, repository.Options{Limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) FindByField(ctx context.Context, collection, field string, value any) ([]repository.Record, error) {
	if repository.IsNil(value) {
		return []repository.Record{}, nil
	}
	return s.FindAll(ctx, collection, []repository.Filter{repository.Eq(field, value)}, repository.Options{})
}

func (s *Store) FindAll(ctx context.Context, collection string, conds []repository.Filter, opts repository.Options) ([]repository.Record, error) {
	return s.FindWithJoins(ctx, collection, opts.Joins, conds, opts)
}

func (s *Store) FindWithJoins(_ context.Context, collection string, joins []repository.JoinSpec, conds []repository.Filter, opts repository.Options) ([]repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	all := append(append([]repository.Filter{}, conds...), opts.Conditions...)
	rows, err := s.matching(collection, all)
	if err != nil {
		return nil, err
	}
	if opts.OrderBy != "" {
		sortRecords(rows, opts.OrderBy, opts.Descending)
	}
	rows = page(rows, opts.Offset, opts.Limit)
	for _, r := range rows {
		for _, j := range joins {
			r[j.Key()] = s.embed(r, j)
		}
	}
	return rows, nil
}

func (s *Store) Count(_ context.Context, collection string, conds []repository.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[collection]; err != nil {
		return 0, err
	}
	rows, err := s.matching(collection, conds)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *Store) Search(ctx context.Context, collection, term string, fields []string, opts repository.Options) ([]repository.Record, error) {
	return s.FindWithJoins(ctx, collection, opts.Joins, []repository.Filter{repository.Match(term, fields...)}, opts)
}

func (s *Store) Create(_ context.Context, collection string, data repository.Record) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("No data to insert")
	}
	rec := s.withDefaults(collection, data)
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, domain.NewDataAccessError("insert "+collection, err)
	}
	decoded := mustDecode(raw)
	if err := s.checkUnique(collection, decoded, -1); err != nil {
		return nil, err
	}
	s.tables[collection] = append(s.tables[collection], raw)
	return mustDecode(raw), nil
}

func (s *Store) Update(_ context.Context, collection, id string, data repository.Record) (repository.Record, error) {
	return s.update(collection, id, nil, data)
}

func (s *Store) UpdateVersioned(_ context.Context, collection, id string, version int64, data repository.Record) (repository.Record, error) {
	return s.update(collection, id, &version, data)
}

func (s *Store) update(collection, id string, version *int64, data repository.Record) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	i, current := s.indexOf(collection, id)
	if i < 0 {
		return nil, domain.NewNotFoundError("Record not found")
	}
	if version != nil {
		have, _ := toFloat(current["version"])
		if int64(have) != *version {
			return nil, domain.NewConflictError("Record was modified by another request, reload and retry")
		}
	}
	patch, err := normalize(data)
	if err != nil {
		return nil, domain.NewDataAccessError("update "+collection, err)
	}
	changed := false
	for k, v := range patch {
		if k == "id" || k == "version" {
			continue
		}
		current[k] = v
		changed = true
	}
	if changed && version != nil {
		have, _ := toFloat(current["version"])
		current["version"] = int64(have) + 1
	}
	if err := s.checkUnique(collection, current, i); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, domain.NewDataAccessError("update "+collection, err)
	}
	s.tables[collection][i] = raw
	return mustDecode(raw), nil
}

func (s *Store) Delete(_ context.Context, collection, id string) (repository.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	i, current := s.indexOf(collection, id)
	if i < 0 {
		return nil, domain.NewNotFoundError("Record not found")
	}
	rows := s.tables[collection]
	s.tables[collection] = append(rows[:i:i], rows[i+1:]...)
	return current, nil
}

func (s *Store) NextSequence(_ context.Context, organizationID, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["organization_sequences"]; err != nil {
		return 0, err
	}
	key := organizationID + "/" + name
	s.seqs[key]++
	return s.seqs[key], nil
}

// WithinTx ejecuta fn sobre el mismo Store; si fn falla se restauran tablas y secuencias.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.DataStore) error) error {
	s.mu.Lock()
	tables := make(map[string][][]byte, len(s.tables))
	for k, rows := range s.tables {
		tables[k] = append([][]byte(nil), rows...)
	}
	seqs := make(map[string]int64, len(s.seqs))
	for k, v := range s.seqs {
		seqs[k] = v
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.tables, s.seqs = tables, seqs
		s.mu.Unlock()
		if _, ok := domain.AsError(err); ok {
			return err
		}
		return domain.NewDataAccessError("transaction", err)
	}
	return nil
}

// ── internos (requieren s.mu tomado) ─────────────────────────────────────────

func (s *Store) withDefaults(collection string, data repository.Record) repository.Record {
	rec := repository.Record{}
	for k, v := range defaults[collection] {
		rec[k] = v
	}
	for k, v := range data {
		rec[k] = v
	}
	if rec.ID() == "" {
		rec["id"] = uuid.NewString()
	}
	now := s.now().UTC()
	if _, ok := rec["created_at"]; !ok {
		rec["created_at"] = now
	}
	if _, ok := rec["updated_at"]; !ok {
		rec["updated_at"] = now
	}
	return rec
}

func (s *Store) indexOf(collection, id string) (int, repository.Record) {
	for i, raw := range s.tables[collection] {
		rec := mustDecode(raw)
		if rec.ID() == id {
			return i, rec
		}
	}
	return -1, nil
}

func (s *Store) checkUnique(collection string, rec repository.Record, skip int) error {
	for _, fields := range uniques[collection] {
		if isNull(rec[fields[0]]) {
			continue
		}
		for i, raw := range s.tables[collection] {
			if i == skip {
				continue
			}
			other := mustDecode(raw)
			same := true
			for _, f := range fields {
				if compare(other[f], rec[f]) != 0 {
					same = false
					break
				}
			}
			if same {
				return domain.NewConflictError("Resource with this " + fields[0] + " already exists")
			}
		}
	}
	return nil
}

func (s *Store) matching(collection string, conds []repository.Filter) ([]repository.Record, error) {
	normalized := make([]repository.Filter, 0, len(conds))
	for _, f := range conds {
		if f.Empty() {
			continue
		}
		nf, err := normalizeFilter(f)
		if err != nil {
			return nil, domain.NewDataAccessError("select "+collection, err)
		}
		normalized = append(normalized, nf)
	}
	out := make([]repository.Record, 0)
	for _, raw := range s.tables[collection] {
		rec := mustDecode(raw)
		ok := true
		for _, f := range normalized {
			if !matches(rec, f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) embed(base repository.Record, j repository.JoinSpec) any {
	local, foreign := j.LocalKey, j.ForeignKey
	if local == "" {
		local = "id"
	}
	if foreign == "" {
		foreign = "id"
	}
	key := base[local]
	var related []repository.Record
	if !isNull(key) {
		for _, raw := range s.tables[j.Collection] {
			rec := mustDecode(raw)
			if compare(rec[foreign], key) == 0 {
				related = append(related, project(rec, j.Columns))
			}
		}
	}
	if j.Many {
		if j.OrderBy != "" {
			sortRecords(related, j.OrderBy, false)
		}
		list := make([]any, 0, len(related))
		for _, r := range related {
			list = append(list, map[string]any(r))
		}
		return list
	}
	if len(related) == 0 {
		return nil
	}
	return map[string]any(related[0])
}

// ── semántica de filtros ─────────────────────────────────────────────────────

func matches(rec repository.Record, f repository.Filter) bool {
	switch f.Kind {
	case repository.KindEq:
		return compare(rec[f.Field], f.Value) == 0
	case repository.KindIn:
		for _, v := range f.Values {
			if compare(rec[f.Field], v) == 0 {
				return true
			}
		}
		return false
	case repository.KindRange:
		v := rec[f.Field]
		if isNull(v) {
			return false
		}
		if !repository.IsNil(f.Min) && compare(v, f.Min) < 0 {
			return false
		}
		if !repository.IsNil(f.Max) && compare(v, f.Max) > 0 {
			return false
		}
		return true
	case repository.KindContains:
		arr, _ := rec[f.Field].([]any)
		for _, have := range arr {
			for _, want := range f.Values {
				if fmt.Sprint(have) == fmt.Sprint(want) {
					return true
				}
			}
		}
		return false
	case repository.KindMatch:
		term := strings.ToLower(fmt.Sprint(f.Value))
		for _, field := range f.Fields {
			v := rec[field]
			if isNull(v) {
				continue
			}
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
				return true
			}
		}
		return false
	case repository.KindNull:
		return isNull(rec[f.Field])
	}
	return false
}

// normalizeFilter pasa los valores por JSON para compararlos en la misma forma que las filas.
func normalizeFilter(f repository.Filter) (repository.Filter, error) {
	var err error
	if f.Value, err = normalizeValue(f.Value); err != nil {
		return f, err
	}
	if f.Min, err = normalizeValue(f.Min); err != nil {
		return f, err
	}
	if f.Max, err = normalizeValue(f.Max); err != nil {
		return f, err
	}
	values := make([]any, len(f.Values))
	for i, v := range f.Values {
		if values[i], err = normalizeValue(v); err != nil {
			return f, err
		}
	}
	f.Values = values
	return f, nil
}

func normalizeValue(v any) (any, error) {
	if repository.IsNil(v) {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	err = dec.Decode(&out)
	return out, err
}

func normalize(data repository.Record) (repository.Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return mustDecode(raw), nil
}

func mustDecode(raw []byte) repository.Record {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	rec := repository.Record{}
	if err := dec.Decode(&rec); err != nil {
		panic(fmt.Sprintf("repotest: decode: %v", err))
	}
	return rec
}

func isNull(v any) bool { return repository.IsNil(v) }

// compare ordena como Postgres para los tipos que aparecen en las filas: números, instantes y texto.
// NULL queda después de cualquier valor (NULLS LAST en ASC).
func compare(a, b any) int {
	switch {
	case isNull(a) && isNull(b):
		return 0
	case isNull(a):
		return 1
	case isNull(b):
		return -1
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func sortRecords(rows []repository.Record, field string, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][field], rows[j][field])
		if desc {
			// DESC en Postgres pone NULL primero.
			if isNull(rows[i][field]) != isNull(rows[j][field]) {
				return isNull(rows[i][field])
			}
			return c > 0
		}
		return c < 0
	})
}

func page(rows []repository.Record, offset, limit int) []repository.Record {
	if offset > 0 {
		if offset >= len(rows) {
			return []repository.Record{}
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func project(rec repository.Record, cols []string) repository.Record {
	if len(cols) == 0 {
		return rec
	}
	out := repository.Record{}
	for _, c := range cols {
		out[c] = rec[c]
	}
	return out
}
