package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

// OrderListQuery filtros de GET /api/orders.
type OrderListQuery struct {
	PageQuery
	Status        string `query:"status" validate:"omitempty,oneof=pending confirmed processing packed shipped out_for_delivery delivered cancelled returned"`
	PaymentStatus string `query:"payment_status" validate:"omitempty,oneof=pending paid partial refunded failed"`
	OrderType     string `query:"order_type" validate:"omitempty,oneof=standard express bulk subscription custom"`
	CustomerID    string `query:"customer_id" validate:"omitempty,uuid"`
	AssignedTo    string `query:"assigned_to" validate:"omitempty,uuid"`
	DateFrom      string `query:"date_from"`
	DateTo        string `query:"date_to"`
	Search        string `query:"search" validate:"omitempty,min=1,max=100"`
	SortBy        string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at total_amount order_number"`
}

// OrderItemRequest línea de un pedido nuevo. Los importes de la línea se calculan en servidor.
type OrderItemRequest struct {
	ProductID      string          `json:"product_id" validate:"required,uuid"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// CreateOrderRequest entrada de POST /api/orders. Los totales de cabecera
// enviados por el cliente se ignoran.
type CreateOrderRequest struct {
	CustomerID      string             `json:"customer_id" validate:"required,uuid"`
	OrderType       string             `json:"order_type" validate:"omitempty,oneof=standard express bulk subscription custom"`
	Priority        string             `json:"priority" validate:"omitempty,oneof=low medium high urgent critical"`
	BillingAddress  map[string]any     `json:"billing_address" validate:"required"`
	ShippingAddress map[string]any     `json:"shipping_address" validate:"required"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,max=200,dive"`
	ShippingAmount  decimal.Decimal    `json:"shipping_amount"`
	Notes           *string            `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateOrderRequest entrada de PUT /api/orders/:id.
type UpdateOrderRequest struct {
	OrderStatus   *string `json:"order_status" validate:"omitempty,oneof=pending confirmed processing packed shipped out_for_delivery delivered cancelled returned"`
	PaymentStatus *string `json:"payment_status" validate:"omitempty,oneof=pending paid partial refunded failed"`
	Priority      *string `json:"priority" validate:"omitempty,oneof=low medium high urgent critical"`
	AssignedTo    *string `json:"assigned_to" validate:"omitempty,uuid"`
	Notes         *string `json:"notes" validate:"omitempty,max=1000"`
	Version       *int64  `json:"version" validate:"omitempty,gte=1"`
}

// CustomerSummary cliente incrustado en pedidos.
type CustomerSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CustomerCode string  `json:"customer_code"`
	Email        *string `json:"email"`
}

// OrderResponse pedido con cliente y, en el detalle, sus líneas.
type OrderResponse struct {
	entity.Order
	Customer *CustomerSummary `json:"customer"`
}

// OrderStatistics conteos por estado.
type OrderStatistics struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Confirmed  int64 `json:"confirmed"`
	Processing int64 `json:"processing"`
	Shipped    int64 `json:"shipped"`
	Delivered  int64 `json:"delivered"`
	Cancelled  int64 `json:"cancelled"`
}

// OrderListResponse datos de GET /api/orders.
type OrderListResponse = ListResponse[OrderResponse, OrderStatistics]
