// Package pdf genera el albarán (packing slip) de un pedido.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Organización          │  N° Pedido + Fecha + Estado │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Nombre + código + contacto                        │
//	│  ENVÍO: dirección de entrega                                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | SKU | Producto | P.Unit | IVA | Total         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Impuestos / Descuento / Envío / TOTAL   │
//	│  FOOTER: QR del pedido + notas                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

var _ ports.OrderSlipRenderer = (*OrderSlipGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// addressOrder orden de impresión de las claves conocidas de una dirección.
var addressOrder = []string{"street", "city", "region", "state", "postcode", "zip", "country"}

// OrderSlipGenerator implementa ports.OrderSlipRenderer con Maroto v2.
type OrderSlipGenerator struct{}

// NewOrderSlipGenerator construye el generador.
func NewOrderSlipGenerator() *OrderSlipGenerator { return &OrderSlipGenerator{} }

// RenderOrderSlip genera el PDF y devuelve sus bytes.
func (g *OrderSlipGenerator) RenderOrderSlip(
	_ context.Context,
	org *entity.Organization,
	order *entity.Order,
	customer *entity.Customer,
	lines []ports.SlipLine,
) ([]byte, error) {
	if org == nil || order == nil || customer == nil {
		return nil, fmt.Errorf("pdf: organización, pedido y cliente son obligatorios")
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Order "+order.OrderNumber, true).
		WithAuthor(org.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(org, order))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(customer))
	if addr := formatAddress(order.ShippingAddress); addr != "" {
		m.AddRows(addressRow("SHIP TO", addr))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(order))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRows(order)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(org *entity.Organization, order *entity.Order) core.Row {
	return row.New(20).Add(
		col.New(7).Add(
			text.New(org.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Packing slip", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("ORDER", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(order.OrderNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Date: "+order.CreatedAt.Format("2006-01-02"), props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Status: %s   |   Priority: %s", order.OrderStatus, order.Priority), props.Text{
				Size: 8, Align: align.Right, Top: 17, Color: colorGray,
			}),
		),
	)
}

func customerRow(c *entity.Customer) core.Row {
	name := c.Name
	if c.CompanyName != nil && *c.CompanyName != "" {
		name += " (" + *c.CompanyName + ")"
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("CUSTOMER", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Code: %s   |   Email: %s   |   Tel: %s",
				c.CustomerCode,
				deref(c.Email, "-"),
				deref(c.Phone, "-"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func addressRow(label, addr string) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New(label, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(addr, props.Text{Size: 8, Top: 6}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Qty", 1, align.Center),
		h("SKU", 2, align.Left),
		h("Product", 4, align.Left),
		h("Unit price", 2, align.Right),
		h("Tax %", 1, align.Center),
		h("Total", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableLineRows(lines []ports.SlipLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				fmt.Sprintf("%d", l.Quantity),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				nonEmpty(l.SKU, "-"),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(4).Add(text.New(
				nonEmpty(l.ProductName, l.ProductID),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				money(l.UnitPrice),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				l.TaxRate.StringFixed(0)+"%",
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				money(l.TotalPrice.Add(l.TaxAmount)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(o *entity.Order) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, right float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: right, Top: 20,
		})
	}

	return row.New(28).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 0),
			label("Tax:", 5),
			label("Discount:", 10),
			label("Shipping:", 15),
			grand("TOTAL:", 2),
		),
		col.New(3).Add(
			value(money(o.Subtotal), 0),
			value(money(o.TaxAmount), 5),
			value("-"+money(o.DiscountAmount), 10),
			value(money(o.ShippingAmount), 15),
			grand(money(o.TotalAmount), 1),
		),
	)
}

// footerRows: QR con el identificador del pedido para escaneo en almacén, y notas.
func footerRows(o *entity.Order) []core.Row {
	notes := "Thank you for your order."
	if o.Notes != nil && strings.TrimSpace(*o.Notes) != "" {
		notes = "Notes: " + *o.Notes
	}
	return []core.Row{
		row.New(1).Add(col.New(12)),
		line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}),
		row.New(36).Add(
			col.New(3).Add(code.NewQr(o.OrderNumber+"|"+o.ID, props.Rect{Percent: 90, Center: true})),
			col.New(9).Add(
				text.New("Scan to open the order in the warehouse app.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New(notes, props.Text{Size: 8, Top: 12, Left: 3}),
			),
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return nonEmpty(*s, fallback)
}

// money formatea con dos decimales y separador de miles: 1234567.5 → "$1,234,567.50".
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(buf) + "." + frac
}

// formatAddress une las partes conocidas de la dirección en orden fijo y luego el resto.
func formatAddress(addr map[string]any) string {
	if len(addr) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addr))
	seen := make(map[string]bool, len(addressOrder))
	for _, k := range addressOrder {
		seen[k] = true
		if v, ok := addr[k].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	extra := make([]string, 0)
	for k := range addr {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if v, ok := addr[k].(string); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
