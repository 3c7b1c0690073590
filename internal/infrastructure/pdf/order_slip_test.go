package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

func TestRenderOrderSlip(t *testing.T) {
	email := "ana@acme.io"
	notes := "Dejar en recepción"
	org := &entity.Organization{ID: "org1", Name: "Acme", Slug: "acme"}
	customer := &entity.Customer{ID: "c1", CustomerCode: "CUST-000001", Name: "Ana", Email: &email}
	order := &entity.Order{
		ID:              "o1",
		OrderNumber:     "ORD-20260101-0001",
		OrderStatus:     entity.OrderStatusPending,
		Priority:        "high",
		Subtotal:        decimal.RequireFromString("150"),
		TaxAmount:       decimal.RequireFromString("28.5"),
		TotalAmount:     decimal.RequireFromString("178.5"),
		ShippingAddress: map[string]any{"street": "Calle 1", "city": "Bogotá", "country": "CO"},
		Notes:           &notes,
		CreatedAt:       time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	lines := []ports.SlipLine{
		{
			OrderItem: entity.OrderItem{
				ProductID: "p1", Quantity: 2,
				UnitPrice:  decimal.RequireFromString("50"),
				TaxRate:    decimal.RequireFromString("19"),
				TaxAmount:  decimal.RequireFromString("19"),
				TotalPrice: decimal.RequireFromString("100"),
			},
			ProductName: "Widget", SKU: "W-1",
		},
		{
			OrderItem: entity.OrderItem{
				ProductID: "p2", Quantity: 1,
				UnitPrice:  decimal.RequireFromString("50"),
				TaxRate:    decimal.RequireFromString("19"),
				TaxAmount:  decimal.RequireFromString("9.5"),
				TotalPrice: decimal.RequireFromString("50"),
			},
		},
	}

	out, err := NewOrderSlipGenerator().RenderOrderSlip(context.Background(), org, order, customer, lines)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderOrderSlip_MissingArgs(t *testing.T) {
	_, err := NewOrderSlipGenerator().RenderOrderSlip(context.Background(), nil, &entity.Order{}, &entity.Customer{}, nil)
	assert.Error(t, err)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234,567.50", money(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "$999.00", money(decimal.NewFromInt(999)))
	assert.Equal(t, "$0.00", money(decimal.Zero))
	assert.Equal(t, "-$1,000.10", money(decimal.RequireFromString("-1000.1")))
}

func TestFormatAddress(t *testing.T) {
	assert.Empty(t, formatAddress(nil))
	got := formatAddress(map[string]any{
		"country":  "CO",
		"city":     "Bogotá",
		"street":   "Calle 1",
		"building": "Torre B",
		"floor":    3,
	})
	assert.Equal(t, "Calle 1, Bogotá, CO, Torre B", got)
}
