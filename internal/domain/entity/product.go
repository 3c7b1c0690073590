package entity

// Product artículo vendible de la organización. Solo lo lee el flujo de pedidos.
type Product struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organization_id"`
	Name           string  `json:"name"`
	SKU            *string `json:"sku"`
}

// DisplaySKU devuelve el SKU o vacío.
func (p *Product) DisplaySKU() string {
	if p == nil || p.SKU == nil {
		return ""
	}
	return *p.SKU
}
