package dto

import (
	"time"

	"github.com/jhoicas/productivity-api/internal/domain/entity"
)

// TaskListQuery filtros de GET /api/tasks.
type TaskListQuery struct {
	PageQuery
	Status          string `query:"status" validate:"omitempty,oneof=pending in_progress completed cancelled on_hold"`
	Priority        string `query:"priority" validate:"omitempty,oneof=low medium high urgent critical"`
	AssignedTo      string `query:"assigned_to" validate:"omitempty,uuid"`
	CreatedBy       string `query:"created_by" validate:"omitempty,uuid"`
	ProjectID       string `query:"project_id" validate:"omitempty,uuid"`
	CategoryID      string `query:"category_id" validate:"omitempty,uuid"`
	DueDateFrom     string `query:"due_date_from"`
	DueDateTo       string `query:"due_date_to"`
	Search          string `query:"search" validate:"omitempty,min=1,max=100"`
	Tags            string `query:"tags"`
	SortBy          string `query:"sort_by" validate:"omitempty,oneof=created_at updated_at due_date priority title"`
	IncludeSubtasks bool   `query:"include_subtasks"`
	MyTasksOnly     bool   `query:"my_tasks_only"`
}

// CreateTaskRequest entrada de POST /api/tasks.
type CreateTaskRequest struct {
	Title          string         `json:"title" validate:"required,min=1,max=200"`
	Description    *string        `json:"description" validate:"omitempty,max=5000"`
	Priority       string         `json:"priority" validate:"omitempty,oneof=low medium high urgent critical"`
	AssignedTo     *string        `json:"assigned_to" validate:"omitempty,uuid"`
	ParentTaskID   *string        `json:"parent_task_id" validate:"omitempty,uuid"`
	ProjectID      *string        `json:"project_id" validate:"omitempty,uuid"`
	CategoryID     *string        `json:"category_id" validate:"omitempty,uuid"`
	DueDate        *time.Time     `json:"due_date"`
	StartDate      *time.Time     `json:"start_date"`
	EstimatedHours *float64       `json:"estimated_hours" validate:"omitempty,gte=0"`
	Progress       *int           `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Tags           []string       `json:"tags" validate:"omitempty,dive,min=1,max=50"`
	Checklist      []any          `json:"checklist"`
	Metadata       map[string]any `json:"metadata"`
}

// UpdateTaskRequest entrada de PUT /api/tasks/:id; nil = sin cambio.
type UpdateTaskRequest struct {
	Title          *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string        `json:"description" validate:"omitempty,max=5000"`
	Status         *string        `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled on_hold"`
	Priority       *string        `json:"priority" validate:"omitempty,oneof=low medium high urgent critical"`
	AssignedTo     *string        `json:"assigned_to" validate:"omitempty,uuid"`
	ParentTaskID   *string        `json:"parent_task_id" validate:"omitempty,uuid"`
	ClearParent    bool           `json:"clear_parent" validate:"excluded_with=ParentTaskID"`
	ProjectID      *string        `json:"project_id" validate:"omitempty,uuid"`
	DueDate        *time.Time     `json:"due_date"`
	StartDate      *time.Time     `json:"start_date"`
	Progress       *int           `json:"progress" validate:"omitempty,gte=0,lte=100"`
	EstimatedHours *float64       `json:"estimated_hours" validate:"omitempty,gte=0"`
	ActualHours    *float64       `json:"actual_hours" validate:"omitempty,gte=0"`
	Tags           []string       `json:"tags" validate:"omitempty,dive,min=1,max=50"`
	Checklist      []any          `json:"checklist"`
	Metadata       map[string]any `json:"metadata"`
	Version        *int64         `json:"version" validate:"omitempty,gte=1"`
}

// TaskResponse tarea con asignado y creador incrustados.
type TaskResponse struct {
	entity.Task
	Assignee *UserSummary `json:"assignee"`
	Creator  *UserSummary `json:"creator"`
}

// TaskComment comentario con autor.
type TaskComment struct {
	ID        string       `json:"id"`
	TaskID    string       `json:"task_id"`
	UserID    string       `json:"user_id"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	Author    *UserSummary `json:"author"`
}

// TaskDependency dependencia con la tarea referida.
type TaskDependency struct {
	ID              string `json:"id"`
	TaskID          string `json:"task_id"`
	DependsOnTaskID string `json:"depends_on_task_id"`
	DependencyType  string `json:"dependency_type"`
	DependsOn       *struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
	} `json:"depends_on"`
}

// TaskDetailResponse salida de GET /api/tasks/:id.
type TaskDetailResponse struct {
	TaskResponse
	Comments     []TaskComment    `json:"comments"`
	Subtasks     []TaskResponse   `json:"subtasks"`
	Dependencies []TaskDependency `json:"dependencies"`
}

// TaskStatistics conteos por estado con los mismos filtros del listado.
type TaskStatistics struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
	OnHold     int64 `json:"on_hold"`
}

// TaskListResponse datos de GET /api/tasks.
type TaskListResponse = ListResponse[TaskResponse, TaskStatistics]
