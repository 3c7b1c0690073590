package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardQuery período de GET /api/dashboard.
type DashboardQuery struct {
	Period string `query:"period" validate:"omitempty,oneof=today week month quarter year"`
}

// TaskMetrics métricas de tareas de la organización.
type TaskMetrics struct {
	Total          int64  `json:"total"`
	Pending        int64  `json:"pending"`
	InProgress     int64  `json:"in_progress"`
	Completed      int64  `json:"completed"`
	Cancelled      int64  `json:"cancelled"`
	OnHold         int64  `json:"on_hold"`
	HighPriority   int64  `json:"high_priority"`
	Urgent         int64  `json:"urgent"`
	Critical       int64  `json:"critical"`
	Overdue        int64  `json:"overdue"`
	CompletionRate string `json:"completion_rate"` // porcentaje con un decimal
}

// OrderMetrics métricas de pedidos.
type OrderMetrics struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Confirmed    int64 `json:"confirmed"`
	Processing   int64 `json:"processing"`
	Shipped      int64 `json:"shipped"`
	Delivered    int64 `json:"delivered"`
	Cancelled    int64 `json:"cancelled"`
	PeriodOrders int64 `json:"period_orders"`
}

// CustomerMetricsSummary métricas de clientes.
type CustomerMetricsSummary struct {
	Total         int64 `json:"total"`
	Active        int64 `json:"active"`
	NewThisPeriod int64 `json:"new_this_period"`
	Individual    int64 `json:"individual"`
	Business      int64 `json:"business"`
	Enterprise    int64 `json:"enterprise"`
}

// UserMetrics métricas personales del usuario autenticado.
type UserMetrics struct {
	AssignedTasks  int64 `json:"assigned_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	CreatedTasks   int64 `json:"created_tasks"`
	ManagedOrders  int64 `json:"managed_orders"`
}

// DashboardMetrics agrupa las métricas por área.
type DashboardMetrics struct {
	Tasks     TaskMetrics            `json:"tasks"`
	Orders    OrderMetrics           `json:"orders"`
	Customers CustomerMetricsSummary `json:"customers"`
	User      UserMetrics            `json:"user"`
}

// ActivityItem entrada de actividad reciente (tarea o pedido).
type ActivityItem struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Timestamp   time.Time        `json:"timestamp"`
	Status      string           `json:"status"`
	Priority    string           `json:"priority,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// DashboardResponse salida de GET /api/dashboard.
type DashboardResponse struct {
	Period         string           `json:"period"`
	OrganizationID string           `json:"organization_id"`
	PeriodStart    time.Time        `json:"period_start"`
	Metrics        DashboardMetrics `json:"metrics"`
	RecentActivity []ActivityItem   `json:"recent_activity"`
	Timestamp      time.Time        `json:"timestamp"`
}

// WorkloadItem tareas abiertas por usuario asignado.
type WorkloadItem struct {
	UserID    string `json:"user_id"`
	OpenTasks int64  `json:"open_tasks"`
}

// AnalyticsResponse salida de GET /api/dashboard/analytics.
type AnalyticsResponse struct {
	TaskCompletionRate   string         `json:"task_completion_rate"`
	OrderFulfillmentRate string         `json:"order_fulfillment_rate"`
	CancellationRate     string         `json:"cancellation_rate"`
	UserWorkload         []WorkloadItem `json:"user_workload"`
	Timestamp            time.Time      `json:"timestamp"`
}
