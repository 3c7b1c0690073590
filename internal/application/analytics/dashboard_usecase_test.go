package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/dto"
	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/internal/domain/repository/repotest"
)

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 8, 20, 14, 5, 0, 0, time.UTC)
	tests := []struct {
		period string
		want   time.Time
	}{
		{"today", time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2025, 8, 13, 14, 5, 0, 0, time.UTC)},
		{"month", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{"quarter", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"year", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := PeriodStart(tt.period, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := PeriodStart("decade", now)
	require.Error(t, err)
}

func TestDashboardSummary(t *testing.T) {
	now := time.Date(2025, 8, 20, 14, 0, 0, 0, time.UTC)
	store := repotest.New().WithClock(func() time.Time { return now })
	orgs := store.Seed("organizations",
		repository.Record{"name": "Acme", "slug": "acme"},
		repository.Record{"name": "Globex", "slug": "globex"},
	)
	me := store.Seed("users", repository.Record{"username": "maria", "email": "m@acme.io", "first_name": "Maria", "last_name": "Lopez"})[0]
	store.Seed("user_organizations", repository.Record{"user_id": me, "organization_id": orgs[0], "role": "manager"})

	store.Seed("tasks",
		repository.Record{"organization_id": orgs[0], "title": "vencida", "status": "pending", "priority": "urgent", "assigned_to": me, "created_by": me,
			"due_date": now.Add(-time.Hour), "updated_at": now.Add(-3 * time.Hour)},
		repository.Record{"organization_id": orgs[0], "title": "hecha", "status": "completed", "assigned_to": me, "created_by": me,
			"due_date": now.Add(-time.Hour), "updated_at": now.Add(-time.Minute)},
		repository.Record{"organization_id": orgs[0], "title": "en curso", "status": "in_progress", "priority": "high", "created_by": me,
			"updated_at": now.Add(-2 * time.Hour)},
		repository.Record{"organization_id": orgs[1], "title": "ajena", "created_by": me},
	)
	cust := store.Seed("customers",
		repository.Record{"organization_id": orgs[0], "customer_code": "CUST-000001", "name": "Ana", "created_at": now.AddDate(0, -2, 0)},
		repository.Record{"organization_id": orgs[0], "customer_code": "CUST-000002", "name": "Beta", "customer_type": "business", "created_at": now.AddDate(0, 0, -1)},
	)
	store.Seed("orders",
		repository.Record{"organization_id": orgs[0], "customer_id": cust[0], "order_number": "ORD-250610-0001", "order_status": "delivered",
			"total_amount": "80.00", "created_by": me, "created_at": now.AddDate(0, -2, 0)},
		repository.Record{"organization_id": orgs[0], "customer_id": cust[1], "order_number": "ORD-250820-0002", "order_status": "pending",
			"total_amount": "12.50", "assigned_to": me, "created_by": me, "created_at": now.Add(-30 * time.Minute)},
	)

	uc := NewDashboardUseCase(store, zerolog.Nop()).WithClock(func() time.Time { return now })
	p := &domain.Principal{UserID: me, Role: domain.RoleManager, CurrentOrganizationID: orgs[0],
		Organizations: []domain.OrgMembership{{ID: orgs[0], Role: domain.RoleManager, IsActive: true}}}

	res, err := uc.Summary(context.Background(), p, dto.DashboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, "month", res.Period)
	tm := res.Metrics.Tasks
	assert.Equal(t, int64(3), tm.Total)
	assert.Equal(t, int64(1), tm.Pending)
	assert.Equal(t, int64(1), tm.Completed)
	assert.Equal(t, int64(1), tm.Urgent)
	assert.Equal(t, int64(1), tm.HighPriority)
	assert.Equal(t, int64(1), tm.Overdue, "las completadas no cuentan como vencidas")
	assert.Equal(t, "33.3", tm.CompletionRate)

	assert.Equal(t, int64(2), res.Metrics.Orders.Total)
	assert.Equal(t, int64(1), res.Metrics.Orders.PeriodOrders)
	assert.Equal(t, int64(1), res.Metrics.Customers.NewThisPeriod)
	assert.Equal(t, int64(1), res.Metrics.Customers.Business)

	assert.Equal(t, dto.UserMetrics{AssignedTasks: 1, CompletedTasks: 1, CreatedTasks: 3, ManagedOrders: 1}, res.Metrics.User)

	require.Len(t, res.RecentActivity, 5)
	assert.Equal(t, "hecha", res.RecentActivity[0].Title)
	assert.Equal(t, "Order ORD-250820-0002", res.RecentActivity[1].Title)
	assert.Equal(t, "Order from Beta - pending", res.RecentActivity[1].Description)
	assert.Equal(t, "Task completed by Maria Lopez", res.RecentActivity[0].Description)
	for i := 1; i < len(res.RecentActivity); i++ {
		assert.False(t, res.RecentActivity[i].Timestamp.After(res.RecentActivity[i-1].Timestamp))
	}

	_, err = uc.Summary(context.Background(), p, dto.DashboardQuery{Period: "decade"})
	require.Error(t, err)
}

func TestDashboardAnalytics(t *testing.T) {
	store := repotest.New()
	org := store.Seed("organizations", repository.Record{"name": "Acme", "slug": "acme"})[0]
	users := store.Seed("users",
		repository.Record{"username": "a", "email": "a@x.io"},
		repository.Record{"username": "b", "email": "b@x.io"},
	)
	store.Seed("user_organizations",
		repository.Record{"user_id": users[0], "organization_id": org},
		repository.Record{"user_id": users[1], "organization_id": org},
	)
	store.Seed("tasks",
		repository.Record{"organization_id": org, "title": "1", "assigned_to": users[1], "created_by": users[0]},
		repository.Record{"organization_id": org, "title": "2", "assigned_to": users[1], "created_by": users[0], "status": "on_hold"},
		repository.Record{"organization_id": org, "title": "3", "assigned_to": users[0], "created_by": users[0], "status": "completed"},
		repository.Record{"organization_id": org, "title": "4", "assigned_to": users[0], "created_by": users[0]},
	)

	uc := NewDashboardUseCase(store, zerolog.Nop())
	res, err := uc.Analytics(context.Background(), &domain.Principal{UserID: users[0], CurrentOrganizationID: org})
	require.NoError(t, err)

	assert.Equal(t, "25.0", res.TaskCompletionRate)
	assert.Equal(t, "0.0", res.OrderFulfillmentRate)
	require.Len(t, res.UserWorkload, 2)
	assert.Equal(t, dto.WorkloadItem{UserID: users[1], OpenTasks: 2}, res.UserWorkload[0])
	assert.Equal(t, dto.WorkloadItem{UserID: users[0], OpenTasks: 1}, res.UserWorkload[1])
}
