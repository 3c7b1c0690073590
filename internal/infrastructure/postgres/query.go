package postgres

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

const baseAlias = "t"

// query acumula SQL y argumentos posicionales.
type query struct {
	sb   strings.Builder
	args []any
}

func (q *query) write(parts ...string) *query {
	for _, p := range parts {
		q.sb.WriteString(p)
	}
	return q
}

// arg registra un argumento y devuelve su placeholder ($n).
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) String() string { return q.sb.String() }

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func col(alias, name string) string {
	return alias + "." + ident(name)
}

// selectRecord arma "to_jsonb(t) [|| jsonb_build_object(...)]" para las joins pedidas.
func (q *query) selectRecord(joins []repository.JoinSpec) {
	q.write("SELECT to_jsonb(", baseAlias, ")")
	if len(joins) == 0 {
		q.write(" AS rec")
		return
	}
	q.write(" || jsonb_build_object(")
	for i, j := range joins {
		if i > 0 {
			q.write(", ")
		}
		q.write(q.arg(j.Key()), "::text, ")
		q.joinSubselect(j, i)
	}
	q.write(") AS rec")
}

func (q *query) joinSubselect(j repository.JoinSpec, i int) {
	alias := "j" + strconv.Itoa(i)
	foreign := j.ForeignKey
	if foreign == "" {
		foreign = "id"
	}
	local := j.LocalKey
	if local == "" {
		local = "id"
	}

	cols := alias + ".*"
	if len(j.Columns) > 0 {
		quoted := make([]string, len(j.Columns))
		for k, c := range j.Columns {
			quoted[k] = col(alias, c)
		}
		cols = strings.Join(quoted, ", ")
	}

	inner := fmt.Sprintf("SELECT %s FROM %s AS %s WHERE %s = %s",
		cols, ident(j.Collection), alias, col(alias, foreign), col(baseAlias, local))

	if j.Many {
		if j.OrderBy != "" {
			inner += " ORDER BY " + col(alias, j.OrderBy)
		}
		q.write("(SELECT COALESCE(jsonb_agg(to_jsonb(r)), '[]'::jsonb) FROM (", inner, ") AS r)")
		return
	}
	q.write("(SELECT to_jsonb(r) FROM (", inner, " LIMIT 1) AS r)")
}

// where escribe la cláusula WHERE con todas las condiciones no vacías combinadas con AND.
func (q *query) where(conds []repository.Filter) error {
	first := true
	for _, f := range conds {
		if f.Empty() {
			continue
		}
		if first {
			q.write(" WHERE ")
			first = false
		} else {
			q.write(" AND ")
		}
		if err := q.condition(f); err != nil {
			return err
		}
	}
	return nil
}

func (q *query) condition(f repository.Filter) error {
	switch f.Kind {
	case repository.KindEq:
		q.write(col(baseAlias, f.Field), " = ", q.arg(f.Value))
	case repository.KindIn:
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			placeholders[i] = q.arg(v)
		}
		q.write(col(baseAlias, f.Field), " IN (", strings.Join(placeholders, ", "), ")")
	case repository.KindRange:
		parts := make([]string, 0, 2)
		if !repository.IsNil(f.Min) {
			parts = append(parts, col(baseAlias, f.Field)+" >= "+q.arg(f.Min))
		}
		if !repository.IsNil(f.Max) {
			parts = append(parts, col(baseAlias, f.Field)+" <= "+q.arg(f.Max))
		}
		q.write(strings.Join(parts, " AND "))
	case repository.KindContains:
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			values = append(values, fmt.Sprint(v))
		}
		q.write(col(baseAlias, f.Field), " && ", q.arg(values), "::text[]")
	case repository.KindMatch:
		term, _ := f.Value.(string)
		p := q.arg("%" + escapeLike(term) + "%")
		ors := make([]string, len(f.Fields))
		for i, field := range f.Fields {
			ors[i] = col(baseAlias, field) + "::text ILIKE " + p
		}
		q.write("(", strings.Join(ors, " OR "), ")")
	case repository.KindNull:
		q.write(col(baseAlias, f.Field), " IS NULL")
	default:
		return fmt.Errorf("filtro no soportado: %d", f.Kind)
	}
	return nil
}

func (q *query) orderAndPage(opts repository.Options) {
	if opts.OrderBy != "" {
		q.write(" ORDER BY ", col(baseAlias, opts.OrderBy))
		if opts.Descending {
			q.write(" DESC")
		} else {
			q.write(" ASC")
		}
	}
	if opts.Limit > 0 {
		q.write(" LIMIT ", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.write(" OFFSET ", strconv.Itoa(opts.Offset))
	}
}

// sortedKeys da un orden estable de columnas para INSERT/UPDATE.
func sortedKeys(data repository.Record) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
