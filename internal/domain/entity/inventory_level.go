package entity

// InventoryLevel existencias disponibles de un producto en una bodega.
// Un producto puede tener varias filas; lo disponible es la suma.
type InventoryLevel struct {
	ID                string  `json:"id"`
	OrganizationID    string  `json:"organization_id"`
	ProductID         string  `json:"product_id"`
	WarehouseID       *string `json:"warehouse_id"`
	AvailableQuantity int64   `json:"available_quantity"`
}

// TotalAvailable suma las existencias de todas las bodegas.
func TotalAvailable(levels []InventoryLevel) int64 {
	var total int64
	for _, l := range levels {
		total += l.AvailableQuantity
	}
	return total
}
