package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

// RecentOrdersLimit pedidos que se incluyen en el detalle de un cliente.
const RecentOrdersLimit = 10

var customerJoins = []repository.JoinSpec{userJoin("assigned_representative", "representative")}

// CustomerUseCase casos de uso de clientes de la organización actual.
type CustomerUseCase struct {
	store    repository.DataStore
	notifier ports.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewCustomerUseCase construye el caso de uso.
func NewCustomerUseCase(store repository.DataStore, notifier ports.Notifier, log zerolog.Logger) *CustomerUseCase {
	return &CustomerUseCase{store: store, notifier: notifier, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *CustomerUseCase) WithClock(now func() time.Time) *CustomerUseCase {
	uc.now = now
	return uc
}

// List filtra y pagina. Las estadísticas por tipo y por actividad reemplazan
// el filtro correspondiente y conservan el resto.
func (uc *CustomerUseCase) List(ctx context.Context, p *domain.Principal, q dto.CustomerListQuery) (*dto.CustomerListResponse, error) {
	q.DefaultPage()
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	base := []repository.Filter{
		repository.Eq("organization_id", p.CurrentOrganizationID),
		repository.Eq("customer_tier", nonEmpty(q.CustomerTier)),
		repository.Eq("assigned_representative", nonEmpty(q.AssignedRepresentative)),
		repository.Match(q.Search, "name", "email", "phone", "company_name"),
	}
	typeFilter := repository.Eq("customer_type", nonEmpty(q.CustomerType))
	activeFilter := repository.Eq("is_active", q.IsActive)
	conds := with(base, typeFilter, activeFilter)

	total, err := uc.store.Count(ctx, "customers", conds)
	if err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "customers", customerJoins, conds, repository.Options{
		OrderBy:    q.SortBy,
		Descending: q.Descending(),
		Limit:      q.Limit,
		Offset:     q.Offset(),
	})
	if err != nil {
		return nil, err
	}
	items, err := decodeAll[dto.CustomerResponse]("customers", rows)
	if err != nil {
		return nil, err
	}

	stats := dto.CustomerStatistics{Total: total}
	counts := []struct {
		dst   *int64
		conds []repository.Filter
	}{
		{&stats.Individual, with(base, activeFilter, repository.Eq("customer_type", "individual"))},
		{&stats.Business, with(base, activeFilter, repository.Eq("customer_type", "business"))},
		{&stats.Enterprise, with(base, activeFilter, repository.Eq("customer_type", "enterprise"))},
		{&stats.Active, with(base, typeFilter, repository.Eq("is_active", true))},
		{&stats.Inactive, with(base, typeFilter, repository.Eq("is_active", false))},
	}
	for _, c := range counts {
		if *c.dst, err = uc.store.Count(ctx, "customers", c.conds); err != nil {
			return nil, err
		}
	}

	return &dto.CustomerListResponse{
		Items:      items,
		Statistics: stats,
		Pagination: dto.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get devuelve el cliente con representante, últimos pedidos y métricas.
func (uc *CustomerUseCase) Get(ctx context.Context, p *domain.Principal, id string) (*dto.CustomerDetailResponse, error) {
	customer, err := uc.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	orderConds := []repository.Filter{
		repository.Eq("customer_id", id),
		repository.Eq("organization_id", p.CurrentOrganizationID),
	}
	orderRows, err := uc.store.FindAll(ctx, "orders", orderConds, repository.Options{OrderBy: "created_at", Descending: true})
	if err != nil {
		return nil, err
	}
	orders, err := decodeAll[entity.Order]("orders", orderRows)
	if err != nil {
		return nil, err
	}

	metrics := dto.CustomerMetrics{TotalOrders: int64(len(orders)), TotalSpent: decimal.Zero}
	for i, o := range orders {
		if i == 0 {
			created := o.CreatedAt
			metrics.LastOrderDate = &created
		}
		switch o.OrderStatus {
		case entity.OrderStatusCancelled, entity.OrderStatusReturned:
			continue
		case entity.OrderStatusDelivered:
			metrics.CompletedOrders++
		}
		metrics.TotalSpent = metrics.TotalSpent.Add(o.TotalAmount)
	}
	if metrics.TotalOrders > 0 {
		rate := float64(metrics.CompletedOrders) / float64(metrics.TotalOrders) * 100
		metrics.CompletionRate = math.Round(rate*10) / 10
	}
	if len(orders) > RecentOrdersLimit {
		orders = orders[:RecentOrdersLimit]
	}

	return &dto.CustomerDetailResponse{
		CustomerResponse: *customer,
		RecentOrders:     orders,
		Metrics:          metrics,
	}, nil
}

// Create asigna el código CUST-NNNNNN desde la secuencia de la organización.
func (uc *CustomerUseCase) Create(ctx context.Context, p *domain.Principal, in dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	orgID := p.CurrentOrganizationID
	email := normalizeEmail(in.Email)
	if email != nil {
		if err := uc.ensureEmailFree(ctx, orgID, *email, ""); err != nil {
			return nil, err
		}
	}
	if in.AssignedRepresentative != nil {
		if err := requireMember(ctx, uc.store, *in.AssignedRepresentative, orgID,
			"Assigned representative not found", "Representative does not belong to this organization"); err != nil {
			return nil, err
		}
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return nil, domain.NewValidationError("Validation failed", domain.FieldError{
			Field: "credit_limit", Message: "must be greater than or equal to 0", Value: in.CreditLimit.String(),
		})
	}

	now := uc.now().UTC()
	data := repository.Record{
		"organization_id": orgID,
		"name":            strings.TrimSpace(in.Name),
		"is_active":       true,
		"created_at":      now,
		"updated_at":      now,
	}
	if email != nil {
		data["email"] = *email
	}
	if in.CompanyName != nil {
		data["company_name"] = strings.TrimSpace(*in.CompanyName)
	}
	if in.CustomerType != "" {
		data["customer_type"] = in.CustomerType
	}
	if in.CustomerTier != "" {
		data["customer_tier"] = in.CustomerTier
	}
	setIfPresent(data, "phone", in.Phone)
	setIfPresent(data, "assigned_representative", in.AssignedRepresentative)
	setIfPresent(data, "payment_terms", in.PaymentTerms)
	setIfPresent(data, "credit_limit", in.CreditLimit)
	setIfPresent(data, "notes", in.Notes)
	if in.BillingAddress != nil {
		data["billing_address"] = in.BillingAddress
	}
	if in.ShippingAddress != nil {
		data["shipping_address"] = in.ShippingAddress
	}

	var id string
	err := uc.store.WithinTx(ctx, func(tx repository.DataStore) error {
		seq, err := tx.NextSequence(ctx, orgID, "customer")
		if err != nil {
			return err
		}
		data["customer_code"] = fmt.Sprintf("CUST-%06d", seq)
		created, err := tx.Create(ctx, "customers", data)
		if err != nil {
			return err
		}
		id = created.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}
	customer, err := uc.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "customer:created", map[string]any{
		"customer":  customer,
		"createdBy": actor(p),
	})
	uc.log.Info().Str("customer_id", id).Str("customer_code", customer.CustomerCode).Msg("cliente creado")
	return customer, nil
}

// Update aplica un parcial; con version hace control optimista.
func (uc *CustomerUseCase) Update(ctx context.Context, p *domain.Principal, id string, in dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	orgID := p.CurrentOrganizationID
	if _, err := findScoped(ctx, uc.store, "customers", id, orgID, "Customer not found"); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if email != nil {
		if err := uc.ensureEmailFree(ctx, orgID, *email, id); err != nil {
			return nil, err
		}
	}
	if in.AssignedRepresentative != nil {
		if err := requireMember(ctx, uc.store, *in.AssignedRepresentative, orgID,
			"Assigned representative not found", "Representative does not belong to this organization"); err != nil {
			return nil, err
		}
	}
	if in.CreditLimit != nil && in.CreditLimit.IsNegative() {
		return nil, domain.NewValidationError("Validation failed", domain.FieldError{
			Field: "credit_limit", Message: "must be greater than or equal to 0", Value: in.CreditLimit.String(),
		})
	}

	patch := repository.Record{}
	if in.Name != nil {
		patch["name"] = strings.TrimSpace(*in.Name)
	}
	if email != nil {
		patch["email"] = *email
	}
	if in.CompanyName != nil {
		patch["company_name"] = strings.TrimSpace(*in.CompanyName)
	}
	setIfPresent(patch, "phone", in.Phone)
	setIfPresent(patch, "customer_type", in.CustomerType)
	setIfPresent(patch, "customer_tier", in.CustomerTier)
	setIfPresent(patch, "assigned_representative", in.AssignedRepresentative)
	setIfPresent(patch, "payment_terms", in.PaymentTerms)
	setIfPresent(patch, "credit_limit", in.CreditLimit)
	setIfPresent(patch, "notes", in.Notes)
	setIfPresent(patch, "is_active", in.IsActive)
	if in.BillingAddress != nil {
		patch["billing_address"] = in.BillingAddress
	}
	if in.ShippingAddress != nil {
		patch["shipping_address"] = in.ShippingAddress
	}
	if len(patch) == 0 {
		return nil, domain.NewValidationError("No fields to update")
	}
	changes := sortedFields(patch)
	patch["updated_at"] = uc.now().UTC()

	var err error
	if in.Version != nil {
		_, err = uc.store.UpdateVersioned(ctx, "customers", id, *in.Version, patch)
	} else {
		_, err = uc.store.Update(ctx, "customers", id, patch)
	}
	if err != nil {
		return nil, err
	}
	customer, err := uc.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "customer:updated", map[string]any{
		"customer":  customer,
		"updatedBy": actor(p),
		"changes":   changes,
	})
	return customer, nil
}

// Delete borra el cliente si no tiene pedidos.
func (uc *CustomerUseCase) Delete(ctx context.Context, p *domain.Principal, id string) error {
	orgID := p.CurrentOrganizationID
	if _, err := findScoped(ctx, uc.store, "customers", id, orgID, "Customer not found"); err != nil {
		return err
	}
	n, err := uc.store.Count(ctx, "orders", []repository.Filter{repository.Eq("customer_id", id)})
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewValidationError("Cannot delete customer with existing orders")
	}
	if _, err := uc.store.Delete(ctx, "customers", id); err != nil {
		return err
	}
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "customer:deleted", map[string]any{
		"customerId": id,
		"deletedBy":  actor(p),
	})
	return nil
}

func (uc *CustomerUseCase) load(ctx context.Context, p *domain.Principal, id string) (*dto.CustomerResponse, error) {
	if _, err := findScoped(ctx, uc.store, "customers", id, p.CurrentOrganizationID, "Customer not found"); err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "customers", customerJoins,
		[]repository.Filter{repository.Eq("id", id)}, repository.Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Customer not found")
	}
	return decodeOne[dto.CustomerResponse]("customers", rows[0])
}

// ensureEmailFree rechaza un email ya usado por otro cliente de la organización.
func (uc *CustomerUseCase) ensureEmailFree(ctx context.Context, orgID, email, exceptID string) error {
	rows, err := uc.store.FindAll(ctx, "customers", []repository.Filter{
		repository.Eq("organization_id", orgID),
		repository.Eq("email", email),
	}, repository.Options{Limit: 2})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.ID() != exceptID {
			return domain.NewConflictError("Customer with this email already exists")
		}
	}
	return nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

// with copia base y añade extra.
func with(base []repository.Filter, extra ...repository.Filter) []repository.Filter {
	out := make([]repository.Filter, 0, len(base)+len(extra))
	return append(append(out, base...), extra...)
}
