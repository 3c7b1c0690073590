package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// OrderTotals importes de cabecera y líneas calculados en servidor.
type OrderTotals struct {
	Lines          []entity.OrderItem
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals calcula cada línea (total = cantidad × precio; impuesto =
// total × tasa / 100) y la cabecera: subtotal + impuestos + envío − descuentos.
// Los importes se redondean a 2 decimales (numeric(14,2)); el precio unitario se
// redondea antes de multiplicar para que la línea guardada cuadre.
func ComputeTotals(items []dto.OrderItemRequest, shipping decimal.Decimal) (*OrderTotals, error) {
	var errs []domain.FieldError
	if shipping.IsNegative() {
		errs = append(errs, domain.FieldError{Field: "shipping_amount", Message: "must be greater than or equal to 0", Value: shipping.String()})
	}
	for i, it := range items {
		prefix := fmt.Sprintf("items[%d].", i)
		if it.Quantity < 1 {
			errs = append(errs, domain.FieldError{Field: prefix + "quantity", Message: "must be at least 1", Value: it.Quantity})
		}
		if it.UnitPrice.IsNegative() {
			errs = append(errs, domain.FieldError{Field: prefix + "unit_price", Message: "must be greater than or equal to 0", Value: it.UnitPrice.String()})
		}
		if it.DiscountAmount.IsNegative() {
			errs = append(errs, domain.FieldError{Field: prefix + "discount_amount", Message: "must be greater than or equal to 0", Value: it.DiscountAmount.String()})
		}
		if it.TaxRate.IsNegative() || it.TaxRate.GreaterThan(hundred) {
			errs = append(errs, domain.FieldError{Field: prefix + "tax_rate", Message: "must be between 0 and 100", Value: it.TaxRate.String()})
		}
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationError("Validation failed", errs...)
	}

	t := &OrderTotals{
		Lines:          make([]entity.OrderItem, 0, len(items)),
		ShippingAmount: shipping.Round(2),
	}
	for _, it := range items {
		unitPrice := it.UnitPrice.Round(2)
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		tax := lineTotal.Mul(it.TaxRate).Div(hundred).Round(2)
		discount := it.DiscountAmount.Round(2)
		t.Lines = append(t.Lines, entity.OrderItem{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPrice:      unitPrice,
			DiscountAmount: discount,
			TaxRate:        it.TaxRate,
			TaxAmount:      tax,
			TotalPrice:     lineTotal,
		})
		t.Subtotal = t.Subtotal.Add(lineTotal)
		t.TaxAmount = t.TaxAmount.Add(tax)
		t.DiscountAmount = t.DiscountAmount.Add(discount)
	}
	t.TotalAmount = t.Subtotal.Add(t.TaxAmount).Add(t.ShippingAmount).Sub(t.DiscountAmount)
	return t, nil
}

// FormatOrderNumber ORD-YYMMDD-NNNN con la fecha de creación y el valor de la secuencia.
func FormatOrderNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", at.Format("060102"), seq)
}
