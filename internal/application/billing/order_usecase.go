// Package billing implementa pedidos: totales en servidor, numeración por
// organización, verificación de inventario y albarán en PDF.
package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

var (
	customerSummaryJoin = repository.JoinSpec{
		Collection: "customers",
		As:         "customer",
		LocalKey:   "customer_id",
		ForeignKey: "id",
		Columns:    []string{"id", "name", "customer_code", "email"},
	}
	itemsJoin = repository.JoinSpec{
		Collection: "order_items",
		As:         "items",
		LocalKey:   "id",
		ForeignKey: "order_id",
		Many:       true,
	}
)

// deletableStatuses únicos estados desde los que se puede borrar un pedido.
var deletableStatuses = map[string]bool{
	entity.OrderStatusPending:   true,
	entity.OrderStatusCancelled: true,
}

// OrderUseCase casos de uso de pedidos de la organización actual.
type OrderUseCase struct {
	store    repository.DataStore
	notifier ports.Notifier
	slips    ports.OrderSlipRenderer
	log      zerolog.Logger
	now      func() time.Time
}

// NewOrderUseCase construye el caso de uso. slips puede ser nil si no se sirven albaranes.
func NewOrderUseCase(store repository.DataStore, notifier ports.Notifier, slips ports.OrderSlipRenderer, log zerolog.Logger) *OrderUseCase {
	return &OrderUseCase{store: store, notifier: notifier, slips: slips, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *OrderUseCase) WithClock(now func() time.Time) *OrderUseCase {
	uc.now = now
	return uc
}

// List filtra por estado, pago, tipo, cliente, asignado, fechas y texto.
func (uc *OrderUseCase) List(ctx context.Context, p *domain.Principal, q dto.OrderListQuery) (*dto.OrderListResponse, error) {
	q.DefaultPage()
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	from, err := dto.ParseDate("date_from", q.DateFrom, false)
	if err != nil {
		return nil, err
	}
	to, err := dto.ParseDate("date_to", q.DateTo, true)
	if err != nil {
		return nil, err
	}
	base := []repository.Filter{
		repository.Eq("organization_id", p.CurrentOrganizationID),
		repository.Eq("payment_status", nonEmpty(q.PaymentStatus)),
		repository.Eq("order_type", nonEmpty(q.OrderType)),
		repository.Eq("customer_id", nonEmpty(q.CustomerID)),
		repository.Eq("assigned_to", nonEmpty(q.AssignedTo)),
		repository.Range("created_at", from, to),
		repository.Match(q.Search, "order_number", "notes"),
	}
	conds := append(append([]repository.Filter{}, base...), repository.Eq("order_status", nonEmpty(q.Status)))

	total, err := uc.store.Count(ctx, "orders", conds)
	if err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "orders", []repository.JoinSpec{customerSummaryJoin}, conds, repository.Options{
		OrderBy:    q.SortBy,
		Descending: q.Descending(),
		Limit:      q.Limit,
		Offset:     q.Offset(),
	})
	if err != nil {
		return nil, err
	}
	items, err := repository.DecodeAll[dto.OrderResponse](rows)
	if err != nil {
		return nil, domain.NewDataAccessError("decode orders", err)
	}

	stats := dto.OrderStatistics{Total: total}
	for status, dst := range map[string]*int64{
		entity.OrderStatusPending:    &stats.Pending,
		entity.OrderStatusConfirmed:  &stats.Confirmed,
		entity.OrderStatusProcessing: &stats.Processing,
		entity.OrderStatusShipped:    &stats.Shipped,
		entity.OrderStatusDelivered:  &stats.Delivered,
		entity.OrderStatusCancelled:  &stats.Cancelled,
	} {
		conds := append(append([]repository.Filter{}, base...), repository.Eq("order_status", status))
		if *dst, err = uc.store.Count(ctx, "orders", conds); err != nil {
			return nil, err
		}
	}

	return &dto.OrderListResponse{
		Items:      items,
		Statistics: stats,
		Pagination: dto.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get devuelve el pedido con cliente y líneas.
func (uc *OrderUseCase) Get(ctx context.Context, p *domain.Principal, id string) (*dto.OrderResponse, error) {
	if _, err := uc.scoped(ctx, p, id); err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "orders",
		[]repository.JoinSpec{customerSummaryJoin, itemsJoin},
		[]repository.Filter{repository.Eq("id", id)}, repository.Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Order not found")
	}
	order, err := repository.Decode[dto.OrderResponse](rows[0])
	if err != nil {
		return nil, domain.NewDataAccessError("decode orders", err)
	}
	return order, nil
}

// Create valida cliente, productos e inventario, calcula totales desde las
// líneas y persiste cabecera, líneas y la tarea de procesamiento en una transacción.
func (uc *OrderUseCase) Create(ctx context.Context, p *domain.Principal, in dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	orgID := p.CurrentOrganizationID

	customer, err := uc.store.FindByID(ctx, "customers", in.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.String("organization_id") != orgID {
		return nil, domain.NewValidationError("Invalid customer")
	}
	if err := uc.checkInventory(ctx, orgID, in.Items); err != nil {
		return nil, err
	}

	totals, err := ComputeTotals(in.Items, in.ShippingAmount)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	order := repository.Record{
		"organization_id":  orgID,
		"customer_id":      in.CustomerID,
		"order_status":     entity.OrderStatusPending,
		"payment_status":   "pending",
		"subtotal":         totals.Subtotal,
		"tax_amount":       totals.TaxAmount,
		"discount_amount":  totals.DiscountAmount,
		"shipping_amount":  totals.ShippingAmount,
		"total_amount":     totals.TotalAmount,
		"billing_address":  in.BillingAddress,
		"shipping_address": in.ShippingAddress,
		"assigned_to":      p.UserID,
		"created_by":       p.UserID,
		"created_at":       now,
		"updated_at":       now,
	}
	if in.OrderType != "" {
		order["order_type"] = in.OrderType
	}
	if in.Priority != "" {
		order["priority"] = in.Priority
	}
	if in.Notes != nil {
		order["notes"] = strings.TrimSpace(*in.Notes)
	}

	var orderID, orderNumber string
	err = uc.store.WithinTx(ctx, func(tx repository.DataStore) error {
		seq, err := tx.NextSequence(ctx, orgID, "order")
		if err != nil {
			return err
		}
		orderNumber = FormatOrderNumber(now, seq)
		order["order_number"] = orderNumber
		created, err := tx.Create(ctx, "orders", order)
		if err != nil {
			return err
		}
		orderID = created.ID()
		for _, line := range totals.Lines {
			if _, err := tx.Create(ctx, "order_items", repository.Record{
				"order_id":        orderID,
				"product_id":      line.ProductID,
				"quantity":        line.Quantity,
				"unit_price":      line.UnitPrice,
				"discount_amount": line.DiscountAmount,
				"tax_rate":        line.TaxRate,
				"tax_amount":      line.TaxAmount,
				"total_price":     line.TotalPrice,
			}); err != nil {
				return err
			}
		}
		_, err = tx.Create(ctx, "tasks", repository.Record{
			"organization_id": orgID,
			"title":           "Process Order " + orderNumber,
			"description":     "Review and process new order " + orderNumber,
			"priority":        "high",
			"status":          entity.TaskStatusPending,
			"assigned_to":     p.UserID,
			"created_by":      p.UserID,
			"tags":            []string{"order-processing", "urgent"},
			"metadata":        map[string]any{"order_id": orderID, "task_type": "order_processing"},
			"created_at":      now,
			"updated_at":      now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	result, err := uc.Get(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "order:created", map[string]any{
		"order":     result,
		"createdBy": map[string]any{"id": p.UserID, "name": p.FullName()},
	})
	uc.log.Info().
		Str("order_id", orderID).
		Str("order_number", orderNumber).
		Str("total", totals.TotalAmount.StringFixed(2)).
		Msg("pedido creado")
	return result, nil
}

// Update cambia estado, pago, prioridad, asignado o notas. Los importes no se editan.
func (uc *OrderUseCase) Update(ctx context.Context, p *domain.Principal, id string, in dto.UpdateOrderRequest) (*dto.OrderResponse, error) {
	orgID := p.CurrentOrganizationID
	if _, err := uc.scoped(ctx, p, id); err != nil {
		return nil, err
	}
	if in.AssignedTo != nil {
		if err := uc.requireMember(ctx, *in.AssignedTo, orgID); err != nil {
			return nil, err
		}
	}

	patch := repository.Record{}
	if in.OrderStatus != nil {
		patch["order_status"] = *in.OrderStatus
	}
	if in.PaymentStatus != nil {
		patch["payment_status"] = *in.PaymentStatus
	}
	if in.Priority != nil {
		patch["priority"] = *in.Priority
	}
	if in.AssignedTo != nil {
		patch["assigned_to"] = *in.AssignedTo
	}
	if in.Notes != nil {
		patch["notes"] = strings.TrimSpace(*in.Notes)
	}
	if len(patch) == 0 {
		return nil, domain.NewValidationError("No fields to update")
	}
	changes := make([]string, 0, len(patch))
	for k := range patch {
		changes = append(changes, k)
	}
	sort.Strings(changes)
	patch["updated_at"] = uc.now().UTC()

	var err error
	if in.Version != nil {
		_, err = uc.store.UpdateVersioned(ctx, "orders", id, *in.Version, patch)
	} else {
		_, err = uc.store.Update(ctx, "orders", id, patch)
	}
	if err != nil {
		return nil, err
	}
	order, err := uc.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	uc.notifier.SendToRoom(ctx, "order:"+id, "order:update", map[string]any{
		"orderId":       id,
		"status":        order.OrderStatus,
		"paymentStatus": order.PaymentStatus,
		"changes":       changes,
	})
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "order:updated", map[string]any{
		"order":     order,
		"updatedBy": map[string]any{"id": p.UserID, "name": p.FullName()},
	})
	return order, nil
}

// Delete borra pedidos pending o cancelled; las líneas caen en cascada.
func (uc *OrderUseCase) Delete(ctx context.Context, p *domain.Principal, id string) error {
	rec, err := uc.scoped(ctx, p, id)
	if err != nil {
		return err
	}
	if status := rec.String("order_status"); !deletableStatuses[status] {
		return domain.NewValidationError("Only pending or cancelled orders can be deleted", domain.FieldError{
			Field: "order_status", Message: "must be pending or cancelled", Value: status,
		})
	}
	err = uc.store.WithinTx(ctx, func(tx repository.DataStore) error {
		items, err := tx.FindByField(ctx, "order_items", "order_id", id)
		if err != nil {
			return err
		}
		for _, it := range items {
			if _, err := tx.Delete(ctx, "order_items", it.ID()); err != nil {
				return err
			}
		}
		_, err = tx.Delete(ctx, "orders", id)
		return err
	})
	if err != nil {
		return err
	}
	uc.notifier.SendToRoom(ctx, "org:"+p.CurrentOrganizationID, "order:deleted", map[string]any{
		"orderId":   id,
		"deletedBy": map[string]any{"id": p.UserID, "name": p.FullName()},
	})
	return nil
}

// Slip genera el albarán PDF del pedido. Devuelve los bytes y el nombre de archivo.
func (uc *OrderUseCase) Slip(ctx context.Context, p *domain.Principal, id string) ([]byte, string, error) {
	if uc.slips == nil {
		return nil, "", domain.NewNotFoundError("Order slips are not available")
	}

	// ── 1. Pedido y líneas ───────────────────────────────────────────────────
	order, err := uc.Get(ctx, p, id)
	if err != nil {
		return nil, "", err
	}

	// ── 2. Organización y cliente ────────────────────────────────────────────
	orgRec, err := uc.store.FindByID(ctx, "organizations", p.CurrentOrganizationID)
	if err != nil {
		return nil, "", err
	}
	if orgRec == nil {
		return nil, "", domain.NewNotFoundError("Organization not found")
	}
	org, err := repository.Decode[entity.Organization](orgRec)
	if err != nil {
		return nil, "", domain.NewDataAccessError("decode organizations", err)
	}
	custRec, err := uc.store.FindByID(ctx, "customers", order.CustomerID)
	if err != nil {
		return nil, "", err
	}
	if custRec == nil {
		return nil, "", domain.NewNotFoundError("Customer not found")
	}
	customer, err := repository.Decode[entity.Customer](custRec)
	if err != nil {
		return nil, "", domain.NewDataAccessError("decode customers", err)
	}

	// ── 3. Nombre de producto por línea ──────────────────────────────────────
	lines := make([]ports.SlipLine, 0, len(order.Items))
	for _, it := range order.Items {
		line := ports.SlipLine{OrderItem: it}
		prod, err := uc.product(ctx, it.ProductID)
		if err != nil {
			return nil, "", err
		}
		if prod != nil {
			line.ProductName = prod.Name
			line.SKU = prod.DisplaySKU()
		}
		lines = append(lines, line)
	}

	pdf, err := uc.slips.RenderOrderSlip(ctx, org, &order.Order, customer, lines)
	if err != nil {
		return nil, "", fmt.Errorf("slip: render %s: %w", order.OrderNumber, err)
	}
	return pdf, order.OrderNumber + ".pdf", nil
}

// checkInventory suma inventory.available_quantity por producto y la compara
// con lo pedido (las líneas repetidas del mismo producto se acumulan).
func (uc *OrderUseCase) checkInventory(ctx context.Context, orgID string, items []dto.OrderItemRequest) error {
	requested := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := requested[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}
	for _, productID := range order {
		product, err := uc.product(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil || product.OrganizationID != orgID {
			return domain.NewValidationError("Invalid product: "+productID, domain.FieldError{
				Field: "items.product_id", Message: "product not found in organization", Value: productID,
			})
		}
		rows, err := uc.store.FindAll(ctx, "inventory", []repository.Filter{
			repository.Eq("product_id", productID),
			repository.Eq("organization_id", orgID),
		}, repository.Options{})
		if err != nil {
			return err
		}
		levels, err := repository.DecodeAll[entity.InventoryLevel](rows)
		if err != nil {
			return domain.NewDataAccessError("decode inventory", err)
		}
		available := entity.TotalAvailable(levels)
		if want := int64(requested[productID]); available < want {
			return domain.NewValidationError(fmt.Sprintf(
				"Insufficient inventory for product: %s. Available: %d, Requested: %d",
				product.Name, available, want))
		}
	}
	return nil
}

func (uc *OrderUseCase) product(ctx context.Context, id string) (*entity.Product, error) {
	rec, err := uc.store.FindByID(ctx, "products", id)
	if err != nil || rec == nil {
		return nil, err
	}
	p, err := repository.Decode[entity.Product](rec)
	if err != nil {
		return nil, domain.NewDataAccessError("decode products", err)
	}
	return p, nil
}

func (uc *OrderUseCase) scoped(ctx context.Context, p *domain.Principal, id string) (repository.Record, error) {
	rec, err := uc.store.FindByID(ctx, "orders", id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewNotFoundError("Order not found")
	}
	if rec.String("organization_id") != p.CurrentOrganizationID {
		return nil, domain.NewForbiddenError("Access denied")
	}
	return rec, nil
}

func (uc *OrderUseCase) requireMember(ctx context.Context, userID, orgID string) error {
	n, err := uc.store.Count(ctx, "user_organizations", []repository.Filter{
		repository.Eq("user_id", userID),
		repository.Eq("organization_id", orgID),
		repository.Eq("is_active", true),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewValidationError("Cannot assign order to user outside organization")
	}
	return nil
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
