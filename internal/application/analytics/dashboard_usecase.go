// Package analytics contiene los casos de uso del dashboard: métricas por
// período, actividad reciente y analítica de productividad.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/entity"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

const (
	// DefaultPeriod período del dashboard cuando no se indica.
	DefaultPeriod = "month"

	recentPerKind = 5  // tareas y pedidos que se leen para la actividad
	activityLimit = 10 // entradas de actividad que se devuelven
	maxParallel   = 8  // consultas de conteo simultáneas
)

var openTaskStatuses = []string{entity.TaskStatusPending, entity.TaskStatusInProgress, entity.TaskStatusOnHold}

// DashboardUseCase genera métricas de la organización actual.
//
// Fuente de datos: DataStore (solo lectura). Los conteos se lanzan en paralelo.
type DashboardUseCase struct {
	store repository.DataStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewDashboardUseCase construye el caso de uso.
func NewDashboardUseCase(store repository.DataStore, log zerolog.Logger) *DashboardUseCase {
	return &DashboardUseCase{store: store, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *DashboardUseCase) WithClock(now func() time.Time) *DashboardUseCase {
	uc.now = now
	return uc
}

// PeriodStart inicio del período en UTC: today (00:00), week (now − 7 días),
// month (día 1), quarter (primer día del trimestre), year (1 de enero).
func PeriodStart(period string, now time.Time) (time.Time, error) {
	now = now.UTC()
	y, m, d := now.Date()
	switch period {
	case "today":
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case "week":
		return now.Add(-7 * 24 * time.Hour), nil
	case "", "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case "quarter":
		q := (int(m) - 1) / 3
		return time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, domain.NewValidationError("Invalid query parameters", domain.FieldError{
		Field: "period", Message: "must be one of today, week, month, quarter, year", Value: period,
	})
}

// counter acumula conteos para lanzarlos todos en un errgroup.
type counter struct {
	store repository.DataStore
	jobs  []func(ctx context.Context) error
}

func (c *counter) add(dst *int64, collection string, conds ...repository.Filter) {
	c.jobs = append(c.jobs, func(ctx context.Context) error {
		n, err := c.store.Count(ctx, collection, conds)
		if err != nil {
			return fmt.Errorf("dashboard: count %s: %w", collection, err)
		}
		*dst = n
		return nil
	})
}

func (c *counter) run(ctx context.Context, extra ...func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, job := range append(c.jobs, extra...) {
		g.Go(func() error { return job(gctx) })
	}
	return g.Wait()
}

// Summary métricas de tareas, pedidos, clientes y del usuario, más la actividad reciente.
func (uc *DashboardUseCase) Summary(ctx context.Context, p *domain.Principal, q dto.DashboardQuery) (*dto.DashboardResponse, error) {
	period := q.Period
	if period == "" {
		period = DefaultPeriod
	}
	now := uc.now().UTC()
	start, err := PeriodStart(period, now)
	if err != nil {
		return nil, err
	}
	orgID := p.CurrentOrganizationID
	org := repository.Eq("organization_id", orgID)

	var m dto.DashboardMetrics
	c := &counter{store: uc.store}

	// ── Tareas ───────────────────────────────────────────────────────────────
	c.add(&m.Tasks.Total, "tasks", org)
	c.add(&m.Tasks.Pending, "tasks", org, repository.Eq("status", entity.TaskStatusPending))
	c.add(&m.Tasks.InProgress, "tasks", org, repository.Eq("status", entity.TaskStatusInProgress))
	c.add(&m.Tasks.Completed, "tasks", org, repository.Eq("status", entity.TaskStatusCompleted))
	c.add(&m.Tasks.Cancelled, "tasks", org, repository.Eq("status", entity.TaskStatusCancelled))
	c.add(&m.Tasks.OnHold, "tasks", org, repository.Eq("status", entity.TaskStatusOnHold))
	c.add(&m.Tasks.HighPriority, "tasks", org, repository.Eq("priority", "high"))
	c.add(&m.Tasks.Urgent, "tasks", org, repository.Eq("priority", "urgent"))
	c.add(&m.Tasks.Critical, "tasks", org, repository.Eq("priority", "critical"))
	c.add(&m.Tasks.Overdue, "tasks", org,
		repository.In("status", openTaskStatuses...),
		repository.Range("due_date", nil, now))

	// ── Pedidos ──────────────────────────────────────────────────────────────
	c.add(&m.Orders.Total, "orders", org)
	c.add(&m.Orders.Pending, "orders", org, repository.Eq("order_status", entity.OrderStatusPending))
	c.add(&m.Orders.Confirmed, "orders", org, repository.Eq("order_status", entity.OrderStatusConfirmed))
	c.add(&m.Orders.Processing, "orders", org, repository.Eq("order_status", entity.OrderStatusProcessing))
	c.add(&m.Orders.Shipped, "orders", org, repository.Eq("order_status", entity.OrderStatusShipped))
	c.add(&m.Orders.Delivered, "orders", org, repository.Eq("order_status", entity.OrderStatusDelivered))
	c.add(&m.Orders.Cancelled, "orders", org, repository.Eq("order_status", entity.OrderStatusCancelled))
	c.add(&m.Orders.PeriodOrders, "orders", org, repository.Range("created_at", start, nil))

	// ── Clientes ─────────────────────────────────────────────────────────────
	c.add(&m.Customers.Total, "customers", org)
	c.add(&m.Customers.Active, "customers", org, repository.Eq("is_active", true))
	c.add(&m.Customers.NewThisPeriod, "customers", org, repository.Range("created_at", start, nil))
	c.add(&m.Customers.Individual, "customers", org, repository.Eq("customer_type", "individual"))
	c.add(&m.Customers.Business, "customers", org, repository.Eq("customer_type", "business"))
	c.add(&m.Customers.Enterprise, "customers", org, repository.Eq("customer_type", "enterprise"))

	// ── Usuario ──────────────────────────────────────────────────────────────
	me := p.UserID
	c.add(&m.User.AssignedTasks, "tasks", org, repository.Eq("assigned_to", me),
		repository.In("status", entity.TaskStatusPending, entity.TaskStatusInProgress))
	c.add(&m.User.CompletedTasks, "tasks", org, repository.Eq("assigned_to", me), repository.Eq("status", entity.TaskStatusCompleted))
	c.add(&m.User.CreatedTasks, "tasks", org, repository.Eq("created_by", me))
	c.add(&m.User.ManagedOrders, "orders", org, repository.Eq("assigned_to", me))

	var activity []dto.ActivityItem
	if err := c.run(ctx, func(ctx context.Context) error {
		var err error
		activity, err = uc.recentActivity(ctx, orgID)
		return err
	}); err != nil {
		return nil, err
	}
	m.Tasks.CompletionRate = percent(m.Tasks.Completed, m.Tasks.Total)

	return &dto.DashboardResponse{
		Period:         period,
		OrganizationID: orgID,
		PeriodStart:    start,
		Metrics:        m,
		RecentActivity: activity,
		Timestamp:      now,
	}, nil
}

// Analytics tasas de completado, cumplimiento y cancelación, y carga abierta por miembro.
func (uc *DashboardUseCase) Analytics(ctx context.Context, p *domain.Principal) (*dto.AnalyticsResponse, error) {
	orgID := p.CurrentOrganizationID
	org := repository.Eq("organization_id", orgID)

	members, err := uc.store.FindAll(ctx, "user_organizations",
		[]repository.Filter{org, repository.Eq("is_active", true)}, repository.Options{})
	if err != nil {
		return nil, err
	}

	var tasks, completed, orders, delivered, cancelled int64
	c := &counter{store: uc.store}
	c.add(&tasks, "tasks", org)
	c.add(&completed, "tasks", org, repository.Eq("status", entity.TaskStatusCompleted))
	c.add(&orders, "orders", org)
	c.add(&delivered, "orders", org, repository.Eq("order_status", entity.OrderStatusDelivered))
	c.add(&cancelled, "orders", org, repository.Eq("order_status", entity.OrderStatusCancelled))

	workload := make([]dto.WorkloadItem, len(members))
	for i, mrec := range members {
		workload[i].UserID = mrec.String("user_id")
		c.add(&workload[i].OpenTasks, "tasks", org,
			repository.Eq("assigned_to", workload[i].UserID),
			repository.In("status", openTaskStatuses...))
	}
	if err := c.run(ctx); err != nil {
		return nil, err
	}
	sort.SliceStable(workload, func(i, j int) bool { return workload[i].OpenTasks > workload[j].OpenTasks })

	return &dto.AnalyticsResponse{
		TaskCompletionRate:   percent(completed, tasks),
		OrderFulfillmentRate: percent(delivered, orders),
		CancellationRate:     percent(cancelled, orders),
		UserWorkload:         workload,
		Timestamp:            uc.now().UTC(),
	}, nil
}

// recentActivity mezcla las últimas tareas (por updated_at) y pedidos (por
// created_at) y devuelve las más recientes primero.
func (uc *DashboardUseCase) recentActivity(ctx context.Context, orgID string) ([]dto.ActivityItem, error) {
	org := []repository.Filter{repository.Eq("organization_id", orgID)}

	var (
		mu    sync.Mutex
		items = make([]dto.ActivityItem, 0, 2*recentPerKind)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := uc.store.FindWithJoins(gctx, "tasks", []repository.JoinSpec{{
			Collection: "users", As: "creator", LocalKey: "created_by", ForeignKey: "id",
			Columns: []string{"first_name", "last_name"},
		}}, org, repository.Options{OrderBy: "updated_at", Descending: true, Limit: recentPerKind})
		if err != nil {
			return fmt.Errorf("dashboard: tareas recientes: %w", err)
		}
		type row struct {
			entity.Task
			Creator *struct {
				FirstName string `json:"first_name"`
				LastName  string `json:"last_name"`
			} `json:"creator"`
		}
		tasks, err := repository.DecodeAll[row](rows)
		if err != nil {
			return domain.NewDataAccessError("decode tasks", err)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, t := range tasks {
			by := "unknown"
			if t.Creator != nil {
				by = t.Creator.FirstName + " " + t.Creator.LastName
			}
			items = append(items, dto.ActivityItem{
				ID:          t.ID,
				Type:        "task",
				Title:       t.Title,
				Description: fmt.Sprintf("Task %s by %s", t.Status, by),
				Timestamp:   t.UpdatedAt,
				Status:      t.Status,
				Priority:    t.Priority,
			})
		}
		return nil
	})
	g.Go(func() error {
		rows, err := uc.store.FindWithJoins(gctx, "orders", []repository.JoinSpec{{
			Collection: "customers", As: "customer", LocalKey: "customer_id", ForeignKey: "id",
			Columns: []string{"name", "customer_code"},
		}}, org, repository.Options{OrderBy: "created_at", Descending: true, Limit: recentPerKind})
		if err != nil {
			return fmt.Errorf("dashboard: pedidos recientes: %w", err)
		}
		orders, err := repository.DecodeAll[dto.OrderResponse](rows)
		if err != nil {
			return domain.NewDataAccessError("decode orders", err)
		}
		mu.Lock()
		defer mu.Unlock()
		for _, o := range orders {
			name := "unknown customer"
			if o.Customer != nil {
				name = o.Customer.Name
			}
			amount := o.TotalAmount
			items = append(items, dto.ActivityItem{
				ID:          o.ID,
				Type:        "order",
				Title:       "Order " + o.OrderNumber,
				Description: fmt.Sprintf("Order from %s - %s", name, o.OrderStatus),
				Timestamp:   o.CreatedAt,
				Status:      o.OrderStatus,
				Amount:      &amount,
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	if len(items) > activityLimit {
		items = items[:activityLimit]
	}
	return items, nil
}

// percent porcentaje con un decimal ("0.0" si total es 0).
func percent(part, total int64) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
}
