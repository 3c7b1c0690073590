package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pedido.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusPacked         = "packed"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusReturned       = "returned"
)

// OrderStatuses todos los estados válidos.
var OrderStatuses = []string{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusPacked,
	OrderStatusShipped, OrderStatusOutForDelivery, OrderStatusDelivered,
	OrderStatusCancelled, OrderStatusReturned,
}

// Order cabecera de pedido. Los importes se recalculan siempre desde las líneas.
type Order struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	OrderType       string          `json:"order_type"`
	OrderStatus     string          `json:"order_status"`
	PaymentStatus   string          `json:"payment_status"`
	Priority        string          `json:"priority"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	BillingAddress  map[string]any  `json:"billing_address"`
	ShippingAddress map[string]any  `json:"shipping_address"`
	Notes           *string         `json:"notes"`
	AssignedTo      *string         `json:"assigned_to"`
	CreatedBy       string          `json:"created_by"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem línea de pedido.
type OrderItem struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalPrice     decimal.Decimal `json:"total_price"`
}
