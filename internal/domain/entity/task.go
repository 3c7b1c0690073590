package entity

import "time"

// Estados de tarea.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
	TaskStatusOnHold     = "on_hold"
)

// TaskStatuses en el orden en que se reportan las estadísticas.
var TaskStatuses = []string{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusOnHold}

// TaskPriorities prioridades válidas.
var TaskPriorities = []string{"low", "medium", "high", "urgent", "critical"}

// Task tarea de una organización; ParentTaskID permite subtareas (sin ciclos).
type Task struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	Title          string         `json:"title"`
	Description    *string        `json:"description"`
	Status         string         `json:"status"`
	Priority       string         `json:"priority"`
	AssignedTo     *string        `json:"assigned_to"`
	CreatedBy      string         `json:"created_by"`
	ParentTaskID   *string        `json:"parent_task_id"`
	ProjectID      *string        `json:"project_id"`
	CategoryID     *string        `json:"category_id"`
	DueDate        *time.Time     `json:"due_date"`
	StartDate      *time.Time     `json:"start_date"`
	CompletedAt    *time.Time     `json:"completed_at"`
	Progress       int            `json:"progress"`
	EstimatedHours *float64       `json:"estimated_hours"`
	ActualHours    *float64       `json:"actual_hours"`
	Tags           []string       `json:"tags"`
	Checklist      []any          `json:"checklist"`
	Metadata       map[string]any `json:"metadata"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CanBeEditedBy creador o asignado pueden editar sin permisos extra.
func (t *Task) CanBeEditedBy(userID string) bool {
	return t.CreatedBy == userID || (t.AssignedTo != nil && *t.AssignedTo == userID)
}
