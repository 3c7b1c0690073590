package dto

// MaxPage página más alta aceptada; acota Offset.
const MaxPage = 100000

// PageQuery paginación por página (1-based) para listados.
type PageQuery struct {
	Page      int    `query:"page" validate:"omitempty,min=1,max=100000"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// DefaultPage aplica page=1, limit=20 y orden descendente si vienen vacíos.
func (p *PageQuery) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.SortOrder == "" {
		p.SortOrder = "desc"
	}
}

// Offset filas a saltar para la página actual.
func (p PageQuery) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Descending indica orden descendente.
func (p PageQuery) Descending() bool { return p.SortOrder != "asc" }

// Pagination metadatos de página en respuestas de listado.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// NewPagination calcula páginas y flags a partir del total exacto.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: int64(page)*int64(limit) < total,
		HasPrev: page > 1,
	}
}

// ListResponse datos de un listado: ítems, estadísticas y paginación.
type ListResponse[T any, S any] struct {
	Items      []T        `json:"items"`
	Statistics S          `json:"statistics"`
	Pagination Pagination `json:"pagination"`
}

// UserSummary usuario incrustado en otras respuestas.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ModuleInfo respuesta de los módulos aún no implementados.
type ModuleInfo struct {
	Message  string   `json:"message"`
	Features []string `json:"features"`
}
