package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

// CustomerListQuery filtros de GET /api/customers.
type CustomerListQuery struct {
	PageQuery
	CustomerType           string `query:"customer_type" validate:"omitempty,oneof=individual business enterprise government"`
	CustomerTier           string `query:"customer_tier" validate:"omitempty,oneof=bronze silver gold platinum diamond"`
	IsActive               *bool  `query:"is_active"`
	AssignedRepresentative string `query:"assigned_representative" validate:"omitempty,uuid"`
	Search                 string `query:"search" validate:"omitempty,min=1,max=100"`
	SortBy                 string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at name customer_code"`
}

// CreateCustomerRequest entrada de POST /api/customers.
type CreateCustomerRequest struct {
	Name                   string           `json:"name" validate:"required,min=1,max=200"`
	Email                  *string          `json:"email" validate:"omitempty,email,max=255"`
	Phone                  *string          `json:"phone" validate:"omitempty,max=40"`
	CompanyName            *string          `json:"company_name" validate:"omitempty,max=200"`
	CustomerType           string           `json:"customer_type" validate:"omitempty,oneof=individual business enterprise government"`
	CustomerTier           string           `json:"customer_tier" validate:"omitempty,oneof=bronze silver gold platinum diamond"`
	BillingAddress         map[string]any   `json:"billing_address"`
	ShippingAddress        map[string]any   `json:"shipping_address"`
	AssignedRepresentative *string          `json:"assigned_representative" validate:"omitempty,uuid"`
	PaymentTerms           *int             `json:"payment_terms" validate:"omitempty,gte=0,lte=365"`
	CreditLimit            *decimal.Decimal `json:"credit_limit"`
	Notes                  *string          `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateCustomerRequest entrada de PUT /api/customers/:id.
type UpdateCustomerRequest struct {
	Name                   *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Email                  *string          `json:"email" validate:"omitempty,email,max=255"`
	Phone                  *string          `json:"phone" validate:"omitempty,max=40"`
	CompanyName            *string          `json:"company_name" validate:"omitempty,max=200"`
	CustomerType           *string          `json:"customer_type" validate:"omitempty,oneof=individual business enterprise government"`
	CustomerTier           *string          `json:"customer_tier" validate:"omitempty,oneof=bronze silver gold platinum diamond"`
	BillingAddress         map[string]any   `json:"billing_address"`
	ShippingAddress        map[string]any   `json:"shipping_address"`
	AssignedRepresentative *string          `json:"assigned_representative" validate:"omitempty,uuid"`
	PaymentTerms           *int             `json:"payment_terms" validate:"omitempty,gte=0,lte=365"`
	CreditLimit            *decimal.Decimal `json:"credit_limit"`
	Notes                  *string          `json:"notes" validate:"omitempty,max=2000"`
	IsActive               *bool            `json:"is_active"`
	Version                *int64           `json:"version" validate:"omitempty,gte=1"`
}

// CustomerResponse cliente con su representante.
type CustomerResponse struct {
	entity.Customer
	Representative *UserSummary `json:"representative"`
}

// CustomerMetrics métricas de pedidos del cliente.
type CustomerMetrics struct {
	TotalOrders     int64           `json:"total_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	CompletionRate  float64         `json:"completion_rate"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	LastOrderDate   *time.Time      `json:"last_order_date"`
}

// CustomerDetailResponse salida de GET /api/customers/:id.
type CustomerDetailResponse struct {
	CustomerResponse
	RecentOrders []entity.Order  `json:"recent_orders"`
	Metrics      CustomerMetrics `json:"metrics"`
}

// CustomerStatistics conteos del listado.
type CustomerStatistics struct {
	Total      int64 `json:"total"`
	Individual int64 `json:"individual"`
	Business   int64 `json:"business"`
	Enterprise int64 `json:"enterprise"`
	Active     int64 `json:"active"`
	Inactive   int64 `json:"inactive"`
}

// CustomerListResponse datos de GET /api/customers.
type CustomerListResponse = ListResponse[CustomerResponse, CustomerStatistics]
