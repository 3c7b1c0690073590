package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/application/ports"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/internal/domain/repository/repotest"
)

type roomEvent struct {
	room, event string
	data        map[string]any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []roomEvent
}

func (n *fakeNotifier) SendToRoom(_ context.Context, room, event string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, roomEvent{room, event, data})
}

func (n *fakeNotifier) SendToUser(_ context.Context, userID, event string, data map[string]any) {
	n.SendToRoom(context.Background(), "user:"+userID, event, data)
}

func (n *fakeNotifier) has(room, event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

type fakeSlips struct {
	order *entity.Order
	lines []ports.SlipLine
}

func (f *fakeSlips) RenderOrderSlip(_ context.Context, _ *entity.Organization, order *entity.Order, _ *entity.Customer, lines []ports.SlipLine) ([]byte, error) {
	f.order, f.lines = order, lines
	return []byte("%PDF-1.4 fake"), nil
}

type orderFixture struct {
	store     *repotest.Store
	uc        *OrderUseCase
	notifier  *fakeNotifier
	slips     *fakeSlips
	orgID     string
	otherOrg  string
	manager   *domain.Principal
	outsider  *domain.Principal
	customer  string
	foreignCu string
	widget    string
	gadget    string
	now       time.Time
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	now := time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC)
	store := repotest.New().WithClock(func() time.Time { return now })
	orgs := store.Seed("organizations",
		repository.Record{"name": "Acme", "slug": "acme"},
		repository.Record{"name": "Globex", "slug": "globex"},
	)
	users := store.Seed("users",
		repository.Record{"username": "maria", "email": "m@acme.io", "first_name": "Maria", "last_name": "Lopez", "role": "manager"},
		repository.Record{"username": "eve", "email": "e@globex.io", "first_name": "Eve", "last_name": "Stone", "role": "manager"},
	)
	store.Seed("user_organizations",
		repository.Record{"user_id": users[0], "organization_id": orgs[0], "role": "manager"},
		repository.Record{"user_id": users[1], "organization_id": orgs[1], "role": "manager"},
	)
	customers := store.Seed("customers",
		repository.Record{"organization_id": orgs[0], "customer_code": "CUST-000001", "name": "Ferretería Sol"},
		repository.Record{"organization_id": orgs[1], "customer_code": "CUST-000001", "name": "Ajeno"},
	)
	products := store.Seed("products",
		repository.Record{"organization_id": orgs[0], "name": "Widget", "sku": "W-1"},
		repository.Record{"organization_id": orgs[0], "name": "Gadget", "sku": "G-1"},
	)
	store.Seed("inventory",
		repository.Record{"organization_id": orgs[0], "product_id": products[0], "available_quantity": 3},
		repository.Record{"organization_id": orgs[0], "product_id": products[0], "available_quantity": 4},
		repository.Record{"organization_id": orgs[0], "product_id": products[1], "available_quantity": 2},
	)
	n := &fakeNotifier{}
	slips := &fakeSlips{}
	uc := NewOrderUseCase(store, n, slips, zerolog.Nop()).WithClock(func() time.Time { return now })
	member := func(id, username string, org string) *domain.Principal {
		return &domain.Principal{
			UserID: id, Username: username, Role: domain.RoleManager,
			Organizations:         []domain.OrgMembership{{ID: org, Role: domain.RoleManager, IsActive: true}},
			CurrentOrganizationID: org,
		}
	}
	return &orderFixture{
		store: store, uc: uc, notifier: n, slips: slips,
		orgID: orgs[0], otherOrg: orgs[1],
		manager:  member(users[0], "maria", orgs[0]),
		outsider: member(users[1], "eve", orgs[1]),
		customer: customers[0], foreignCu: customers[1],
		widget: products[0], gadget: products[1],
		now: now,
	}
}

func (f *orderFixture) request(items ...dto.OrderItemRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		CustomerID:      f.customer,
		BillingAddress:  map[string]any{"city": "Bogotá"},
		ShippingAddress: map[string]any{"city": "Bogotá"},
		Items:           items,
		ShippingAmount:  decimal.RequireFromString("10"),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertErrType(t *testing.T, err error, want domain.ErrorType) *domain.Error {
	t.Helper()
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok, "se esperaba *domain.Error, llegó %T", err)
	require.Equal(t, want, de.Type, de.Message)
	return de
}

func TestOrderCreate_TotalsNumberingAndTask(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.uc.Create(ctx, f.manager, f.request(
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 2, UnitPrice: dec("10.00"), TaxRate: dec("19"), DiscountAmount: dec("1.50")},
		dto.OrderItemRequest{ProductID: f.gadget, Quantity: 1, UnitPrice: dec("5.25")},
	))
	require.NoError(t, err)

	assert.Equal(t, "ORD-250307-0001", order.OrderNumber)
	assert.Equal(t, "pending", order.OrderStatus)
	assert.True(t, dec("25.25").Equal(order.Subtotal), order.Subtotal.String())
	assert.True(t, dec("3.80").Equal(order.TaxAmount), order.TaxAmount.String())
	assert.True(t, dec("1.50").Equal(order.DiscountAmount), order.DiscountAmount.String())
	assert.True(t, dec("37.55").Equal(order.TotalAmount), order.TotalAmount.String())
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "CUST-000001", order.Customer.CustomerCode)

	tasks := f.store.Rows("tasks")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Process Order ORD-250307-0001", tasks[0].String("title"))
	assert.Equal(t, f.manager.UserID, tasks[0].String("assigned_to"))

	second, err := f.uc.Create(ctx, f.manager, f.request(
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 1, UnitPrice: dec("1")},
	))
	require.NoError(t, err)
	assert.Equal(t, "ORD-250307-0002", second.OrderNumber)

	assert.True(t, f.notifier.has("org:"+f.orgID, "order:created"))
}

func TestOrderCreate_InsufficientInventoryRollsNothing(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.uc.Create(context.Background(), f.manager, f.request(
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 5, UnitPrice: dec("1")},
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 3, UnitPrice: dec("1")},
	))
	de := assertErrType(t, err, domain.TypeValidation)
	assert.Equal(t, "Insufficient inventory for product: Widget. Available: 7, Requested: 8", de.Message)
	assert.Empty(t, f.store.Rows("orders"))
	assert.Empty(t, f.store.Rows("order_items"))
}

func TestOrderCreate_ReferentialChecks(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	req := f.request(dto.OrderItemRequest{ProductID: f.widget, Quantity: 1, UnitPrice: dec("1")})
	req.CustomerID = f.foreignCu
	_, err := f.uc.Create(ctx, f.manager, req)
	de := assertErrType(t, err, domain.TypeValidation)
	assert.Equal(t, "Invalid customer", de.Message)

	foreign := f.store.Seed("products", repository.Record{"organization_id": f.otherOrg, "name": "Ajeno"})[0]
	_, err = f.uc.Create(ctx, f.manager, f.request(dto.OrderItemRequest{ProductID: foreign, Quantity: 1, UnitPrice: dec("1")}))
	de = assertErrType(t, err, domain.TypeValidation)
	assert.Equal(t, "Invalid product: "+foreign, de.Message)
}

func TestOrderCreate_FailedItemInsertRollsBack(t *testing.T) {
	f := newOrderFixture(t)
	f.store.FailOn("order_items", domain.NewDataAccessError("insert order_items", assert.AnError))

	_, err := f.uc.Create(context.Background(), f.manager, f.request(
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 1, UnitPrice: dec("1")},
	))
	assertErrType(t, err, domain.TypeDataAccess)
	assert.Empty(t, f.store.Rows("orders"), "la cabecera no sobrevive al fallo de una línea")
	assert.Empty(t, f.store.Rows("tasks"))

	f.store.FailOn("order_items", nil)
	order, err := f.uc.Create(context.Background(), f.manager, f.request(
		dto.OrderItemRequest{ProductID: f.widget, Quantity: 1, UnitPrice: dec("1")},
	))
	require.NoError(t, err)
	assert.Equal(t, "ORD-250307-0001", order.OrderNumber)
}

func TestOrderList_FiltersAndStatistics(t *testing.T) {
	f := newOrderFixture(t)
	f.store.Seed("orders",
		repository.Record{"organization_id": f.orgID, "customer_id": f.customer, "order_number": "ORD-250301-0001", "order_status": "pending", "created_by": f.manager.UserID, "created_at": f.now.AddDate(0, 0, -6)},
		repository.Record{"organization_id": f.orgID, "customer_id": f.customer, "order_number": "ORD-250305-0002", "order_status": "shipped", "created_by": f.manager.UserID, "created_at": f.now.AddDate(0, 0, -2)},
		repository.Record{"organization_id": f.orgID, "customer_id": f.customer, "order_number": "ORD-250307-0003", "order_status": "pending", "notes": "urgente", "created_by": f.manager.UserID, "created_at": f.now},
		repository.Record{"organization_id": f.otherOrg, "customer_id": f.foreignCu, "order_number": "ORD-250307-0001", "created_by": f.outsider.UserID},
	)
	ctx := context.Background()

	res, err := f.uc.List(ctx, f.manager, dto.OrderListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, dto.OrderStatistics{Total: 2, Pending: 2, Shipped: 1}, res.Statistics)
	require.NotNil(t, res.Items[0].Customer)
	assert.Equal(t, "Ferretería Sol", res.Items[0].Customer.Name)

	res, err = f.uc.List(ctx, f.manager, dto.OrderListQuery{DateFrom: "2025-03-04", DateTo: "2025-03-05"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ORD-250305-0002", res.Items[0].OrderNumber)

	res, err = f.uc.List(ctx, f.manager, dto.OrderListQuery{Search: "URGENTE"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ORD-250307-0003", res.Items[0].OrderNumber)
}

func TestOrderUpdateAndDelete(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.uc.Create(ctx, f.manager, f.request(dto.OrderItemRequest{ProductID: f.widget, Quantity: 1, UnitPrice: dec("1")}))
	require.NoError(t, err)

	_, err = f.uc.Update(ctx, f.outsider, order.ID, dto.UpdateOrderRequest{OrderStatus: ptr("confirmed")})
	assertErrType(t, err, domain.TypeForbidden)

	updated, err := f.uc.Update(ctx, f.manager, order.ID, dto.UpdateOrderRequest{OrderStatus: ptr("confirmed"), Version: ptr(int64(1))})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", updated.OrderStatus)
	assert.True(t, f.notifier.has("order:"+order.ID, "order:update"))

	_, err = f.uc.Update(ctx, f.manager, order.ID, dto.UpdateOrderRequest{PaymentStatus: ptr("paid"), Version: ptr(int64(1))})
	assertErrType(t, err, domain.TypeConflict)

	err = f.uc.Delete(ctx, f.manager, order.ID)
	assertErrType(t, err, domain.TypeValidation)

	_, err = f.uc.Update(ctx, f.manager, order.ID, dto.UpdateOrderRequest{OrderStatus: ptr("cancelled")})
	require.NoError(t, err)
	require.NoError(t, f.uc.Delete(ctx, f.manager, order.ID))
	assert.Empty(t, f.store.Rows("order_items"))

	err = f.uc.Delete(ctx, f.manager, order.ID)
	assertErrType(t, err, domain.TypeNotFound)
}

func TestOrderSlip(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order, err := f.uc.Create(ctx, f.manager, f.request(dto.OrderItemRequest{ProductID: f.gadget, Quantity: 2, UnitPrice: dec("4")}))
	require.NoError(t, err)

	pdf, name, err := f.uc.Slip(ctx, f.manager, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber+".pdf", name)
	assert.NotEmpty(t, pdf)
	require.Len(t, f.slips.lines, 1)
	assert.Equal(t, "Gadget", f.slips.lines[0].ProductName)
	assert.Equal(t, "G-1", f.slips.lines[0].SKU)

	_, _, err = f.uc.Slip(ctx, f.outsider, order.ID)
	assertErrType(t, err, domain.TypeForbidden)
}

func ptr[T any](v T) *T { return &v }
