package ports

import (
	"context"

	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

// SlipLine línea del albarán con el nombre del producto resuelto.
type SlipLine struct {
	entity.OrderItem
	ProductName string
	SKU         string
}

// OrderSlipRenderer genera el albarán (packing slip) de un pedido en PDF.
type OrderSlipRenderer interface {
	RenderOrderSlip(ctx context.Context, org *entity.Organization, order *entity.Order, customer *entity.Customer, lines []SlipLine) ([]byte, error)
}
