package repository

// FilterKind variante del filtro. Todas las condiciones se combinan con AND.
type FilterKind int

const (
	// KindEq campo = valor.
	KindEq FilterKind = iota
	// KindIn campo IN (valores...).
	KindIn
	// KindRange min <= campo <= max; un extremo nil no se aplica.
	KindRange
	// KindContains columna array que solapa los valores (&&).
	KindContains
	// KindMatch ILIKE '%term%' sobre varios campos combinados con OR.
	KindMatch
	// KindNull campo IS NULL (Eq con nil se omite, no se traduce a IS NULL).
	KindNull
)

// Filter expresión de filtrado etiquetada. Se construye con Eq, In, Range, Contains o Match.
type Filter struct {
	Kind   FilterKind
	Field  string
	Value  any
	Values []any
	Min    any
	Max    any
	Fields []string
}

// Eq igualdad. Un valor nil (o puntero nil) hace que el filtro se omita.
func Eq(field string, value any) Filter {
	return Filter{Kind: KindEq, Field: field, Value: value}
}

// In pertenencia. Sin valores el filtro se omite.
func In[T any](field string, values ...T) Filter {
	vs := make([]any, 0, len(values))
	for _, v := range values {
		vs = append(vs, v)
	}
	return Filter{Kind: KindIn, Field: field, Values: vs}
}

// Range rango cerrado [min, max].
func Range(field string, min, max any) Filter {
	return Filter{Kind: KindRange, Field: field, Min: min, Max: max}
}

// Contains solapamiento de arrays (tags && ARRAY[...]).
func Contains(field string, values ...string) Filter {
	vs := make([]any, 0, len(values))
	for _, v := range values {
		vs = append(vs, v)
	}
	return Filter{Kind: KindContains, Field: field, Values: vs}
}

// Match búsqueda parcial sin distinguir mayúsculas sobre los campos indicados.
func Match(term string, fields ...string) Filter {
	return Filter{Kind: KindMatch, Value: term, Fields: fields}
}

// IsNull exige explícitamente campo IS NULL.
func IsNull(field string) Filter {
	return Filter{Kind: KindNull, Field: field}
}

// Empty indica si el filtro no aporta condición (valores nil o vacíos).
func (f Filter) Empty() bool {
	switch f.Kind {
	case KindEq:
		return IsNil(f.Value)
	case KindIn, KindContains:
		return len(f.Values) == 0
	case KindRange:
		return IsNil(f.Min) && IsNil(f.Max)
	case KindMatch:
		s, _ := f.Value.(string)
		return s == "" || len(f.Fields) == 0
	case KindNull:
		return f.Field == ""
	}
	return true
}

// JoinSpec incrusta columnas de una colección relacionada en cada fila (un nivel).
//
// Sin Many: objeto único donde related.ForeignKey = base.LocalKey (ej. tasks.assigned_to -> users.id).
// Con Many: array donde related.ForeignKey = base.LocalKey (ej. order_items.order_id = orders.id).
type JoinSpec struct {
	Collection string
	As         string
	LocalKey   string
	ForeignKey string
	Columns    []string
	Many       bool
	OrderBy    string
}

// Key nombre bajo el que se incrusta la relación.
func (j JoinSpec) Key() string {
	if j.As != "" {
		return j.As
	}
	return j.Collection
}

// Options orden, paginación, joins y condiciones extra para Search.
type Options struct {
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
	Joins      []JoinSpec
	Conditions []Filter
}
