package usecase

import (
	"context"
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

// MaxTaskDepth límite de ancestros que se recorren al validar parent_task_id.
const MaxTaskDepth = 64

var taskJoins = []repository.JoinSpec{
	userJoin("assigned_to", "assignee"),
	userJoin("created_by", "creator"),
}

// TaskUseCase casos de uso de tareas, siempre acotados a la organización actual del llamador.
type TaskUseCase struct {
	store    repository.DataStore
	notifier ports.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewTaskUseCase construye el caso de uso.
func NewTaskUseCase(store repository.DataStore, notifier ports.Notifier, log zerolog.Logger) *TaskUseCase {
	return &TaskUseCase{store: store, notifier: notifier, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *TaskUseCase) WithClock(now func() time.Time) *TaskUseCase {
	uc.now = now
	return uc
}

// List filtra, pagina y calcula estadísticas por estado con los mismos filtros (salvo status).
func (uc *TaskUseCase) List(ctx context.Context, p *domain.Principal, q dto.TaskListQuery) (*dto.TaskListResponse, error) {
	q.DefaultPage()
	if q.SortBy == "" {
		q.SortBy = "created_at"
	}
	dueFrom, err := dto.ParseDate("due_date_from", q.DueDateFrom, false)
	if err != nil {
		return nil, err
	}
	dueTo, err := dto.ParseDate("due_date_to", q.DueDateTo, true)
	if err != nil {
		return nil, err
	}

	assignedTo := q.AssignedTo
	if q.MyTasksOnly {
		assignedTo = p.UserID
	}

	base := []repository.Filter{
		repository.Eq("organization_id", p.CurrentOrganizationID),
		repository.Eq("priority", nonEmpty(q.Priority)),
		repository.Eq("assigned_to", nonEmpty(assignedTo)),
		repository.Eq("created_by", nonEmpty(q.CreatedBy)),
		repository.Eq("project_id", nonEmpty(q.ProjectID)),
		repository.Eq("category_id", nonEmpty(q.CategoryID)),
		repository.Range("due_date", dueFrom, dueTo),
		repository.Contains("tags", splitList(q.Tags)...),
		repository.Match(q.Search, "title", "description"),
	}
	if !q.IncludeSubtasks {
		base = append(base, repository.IsNull("parent_task_id"))
	}
	conds := with(base, repository.Eq("status", nonEmpty(q.Status)))

	total, err := uc.store.Count(ctx, "tasks", conds)
	if err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "tasks", taskJoins, conds, repository.Options{
		OrderBy:    q.SortBy,
		Descending: q.Descending(),
		Limit:      q.Limit,
		Offset:     q.Offset(),
	})
	if err != nil {
		return nil, err
	}
	items, err := decodeAll[dto.TaskResponse]("tasks", rows)
	if err != nil {
		return nil, err
	}

	stats := dto.TaskStatistics{Total: total}
	counters := map[string]*int64{
		entity.TaskStatusPending:    &stats.Pending,
		entity.TaskStatusInProgress: &stats.InProgress,
		entity.TaskStatusCompleted:  &stats.Completed,
		entity.TaskStatusCancelled:  &stats.Cancelled,
		entity.TaskStatusOnHold:     &stats.OnHold,
	}
	for _, status := range entity.TaskStatuses {
		n, err := uc.store.Count(ctx, "tasks", with(base, repository.Eq("status", status)))
		if err != nil {
			return nil, err
		}
		*counters[status] = n
	}

	return &dto.TaskListResponse{
		Items:      items,
		Statistics: stats,
		Pagination: dto.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get devuelve la tarea con comentarios (orden cronológico), subtareas y dependencias.
func (uc *TaskUseCase) Get(ctx context.Context, p *domain.Principal, id string) (*dto.TaskDetailResponse, error) {
	task, err := uc.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	commentRows, err := uc.store.FindWithJoins(ctx, "task_comments",
		[]repository.JoinSpec{userJoin("user_id", "author")},
		[]repository.Filter{repository.Eq("task_id", id)},
		repository.Options{OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	comments, err := decodeAll[dto.TaskComment]("task_comments", commentRows)
	if err != nil {
		return nil, err
	}

	subtaskRows, err := uc.store.FindWithJoins(ctx, "tasks", taskJoins, []repository.Filter{
		repository.Eq("parent_task_id", id),
		repository.Eq("organization_id", p.CurrentOrganizationID),
	}, repository.Options{OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	subtasks, err := decodeAll[dto.TaskResponse]("tasks", subtaskRows)
	if err != nil {
		return nil, err
	}

	depRows, err := uc.store.FindWithJoins(ctx, "task_dependencies",
		[]repository.JoinSpec{{
			Collection: "tasks",
			As:         "depends_on",
			LocalKey:   "depends_on_task_id",
			ForeignKey: "id",
			Columns:    []string{"id", "title", "status", "priority"},
		}},
		[]repository.Filter{repository.Eq("task_id", id)},
		repository.Options{})
	if err != nil {
		return nil, err
	}
	deps, err := decodeAll[dto.TaskDependency]("task_dependencies", depRows)
	if err != nil {
		return nil, err
	}

	return &dto.TaskDetailResponse{
		TaskResponse: *task,
		Comments:     comments,
		Subtasks:     subtasks,
		Dependencies: deps,
	}, nil
}

// Create crea la tarea en estado pending (completed si progress = 100).
func (uc *TaskUseCase) Create(ctx context.Context, p *domain.Principal, in dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	orgID := p.CurrentOrganizationID
	if in.AssignedTo != nil {
		if err := requireMember(ctx, uc.store, *in.AssignedTo, orgID,
			"Assigned user not found", "Cannot assign task to user outside organization"); err != nil {
			return nil, err
		}
	}
	if in.ProjectID != nil {
		ok, err := belongsToOrg(ctx, uc.store, "projects", *in.ProjectID, orgID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewValidationError("Invalid project")
		}
	}
	if in.ParentTaskID != nil {
		ok, err := belongsToOrg(ctx, uc.store, "tasks", *in.ParentTaskID, orgID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewValidationError("Invalid parent task")
		}
	}

	now := uc.now().UTC()
	data := repository.Record{
		"organization_id": orgID,
		"title":           strings.TrimSpace(in.Title),
		"status":          entity.TaskStatusPending,
		"created_by":      p.UserID,
		"created_at":      now,
		"updated_at":      now,
	}
	if in.Description != nil {
		data["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Priority != "" {
		data["priority"] = in.Priority
	}
	setIfPresent(data, "assigned_to", in.AssignedTo)
	setIfPresent(data, "parent_task_id", in.ParentTaskID)
	setIfPresent(data, "project_id", in.ProjectID)
	setIfPresent(data, "category_id", in.CategoryID)
	setIfPresent(data, "due_date", in.DueDate)
	setIfPresent(data, "start_date", in.StartDate)
	setIfPresent(data, "estimated_hours", in.EstimatedHours)
	if in.Tags != nil {
		data["tags"] = in.Tags
	}
	if in.Checklist != nil {
		data["checklist"] = in.Checklist
	}
	if in.Metadata != nil {
		data["metadata"] = in.Metadata
	}
	if in.Progress != nil {
		data["progress"] = *in.Progress
		if *in.Progress == 100 {
			data["status"] = entity.TaskStatusCompleted
			data["completed_at"] = now
		}
	}

	created, err := uc.store.Create(ctx, "tasks", data)
	if err != nil {
		return nil, err
	}
	task, err := uc.load(ctx, p, created.ID())
	if err != nil {
		return nil, err
	}

	uc.notifier.SendToRoom(ctx, "org:"+orgID, "task:created", map[string]any{
		"task":      task,
		"createdBy": actor(p),
	})
	if in.AssignedTo != nil && *in.AssignedTo != p.UserID {
		uc.notifier.SendToUser(ctx, *in.AssignedTo, "task:assigned", map[string]any{
			"taskId":     task.ID,
			"title":      task.Title,
			"assignedBy": actor(p),
		})
	}
	uc.log.Info().Str("task_id", task.ID).Str("org_id", orgID).Msg("tarea creada")
	return task, nil
}

// Update aplica un parcial. Pueden editar el creador, el asignado o quien tenga tasks:manage_all.
func (uc *TaskUseCase) Update(ctx context.Context, p *domain.Principal, id string, in dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	orgID := p.CurrentOrganizationID
	rec, err := findScoped(ctx, uc.store, "tasks", id, orgID, "Task not found")
	if err != nil {
		return nil, err
	}
	existing, err := decodeOne[entity.Task]("tasks", rec)
	if err != nil {
		return nil, err
	}
	if !existing.CanBeEditedBy(p.UserID) && !p.Can(domain.CapTasksManageAll) {
		return nil, domain.NewForbiddenError("You do not have permission to update this task")
	}

	if in.AssignedTo != nil {
		if err := requireMember(ctx, uc.store, *in.AssignedTo, orgID,
			"Assigned user not found", "Cannot assign task to user outside organization"); err != nil {
			return nil, err
		}
	}
	if in.ProjectID != nil {
		ok, err := belongsToOrg(ctx, uc.store, "projects", *in.ProjectID, orgID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewValidationError("Invalid project")
		}
	}
	if in.ParentTaskID != nil {
		if err := uc.checkParent(ctx, id, *in.ParentTaskID, orgID); err != nil {
			return nil, err
		}
	}

	now := uc.now().UTC()
	patch := repository.Record{}
	if in.Title != nil {
		patch["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		patch["description"] = strings.TrimSpace(*in.Description)
	}
	setIfPresent(patch, "status", in.Status)
	setIfPresent(patch, "priority", in.Priority)
	setIfPresent(patch, "assigned_to", in.AssignedTo)
	setIfPresent(patch, "parent_task_id", in.ParentTaskID)
	if in.ClearParent {
		patch["parent_task_id"] = nil
	}
	setIfPresent(patch, "project_id", in.ProjectID)
	setIfPresent(patch, "due_date", in.DueDate)
	setIfPresent(patch, "start_date", in.StartDate)
	setIfPresent(patch, "progress", in.Progress)
	setIfPresent(patch, "estimated_hours", in.EstimatedHours)
	setIfPresent(patch, "actual_hours", in.ActualHours)
	if in.Tags != nil {
		patch["tags"] = in.Tags
	}
	if in.Checklist != nil {
		patch["checklist"] = in.Checklist
	}
	if in.Metadata != nil {
		patch["metadata"] = in.Metadata
	}
	if len(patch) == 0 {
		return nil, domain.NewValidationError("No fields to update")
	}
	applyCompletion(patch, existing, in, now)
	changes := sortedFields(patch)
	patch["updated_at"] = now

	if in.Version != nil {
		_, err = uc.store.UpdateVersioned(ctx, "tasks", id, *in.Version, patch)
	} else {
		_, err = uc.store.Update(ctx, "tasks", id, patch)
	}
	if err != nil {
		return nil, err
	}
	task, err := uc.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	uc.notifier.SendToRoom(ctx, "org:"+orgID, "task:updated", map[string]any{
		"task":      task,
		"updatedBy": actor(p),
		"changes":   changes,
	})
	uc.notifier.SendToRoom(ctx, "task:"+id, "task:update", map[string]any{
		"taskId":   id,
		"status":   task.Status,
		"progress": task.Progress,
		"changes":  changes,
	})
	if in.AssignedTo != nil && *in.AssignedTo != p.UserID &&
		(existing.AssignedTo == nil || *existing.AssignedTo != *in.AssignedTo) {
		uc.notifier.SendToUser(ctx, *in.AssignedTo, "task:assigned", map[string]any{
			"taskId":     id,
			"title":      task.Title,
			"assignedBy": actor(p),
		})
	}
	return task, nil
}

// Delete borra la tarea si no tiene subtareas.
func (uc *TaskUseCase) Delete(ctx context.Context, p *domain.Principal, id string) error {
	orgID := p.CurrentOrganizationID
	if _, err := findScoped(ctx, uc.store, "tasks", id, orgID, "Task not found"); err != nil {
		return err
	}
	n, err := uc.store.Count(ctx, "tasks", []repository.Filter{repository.Eq("parent_task_id", id)})
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewValidationError("Cannot delete task with subtasks. Please delete or reassign subtasks first.")
	}
	if _, err := uc.store.Delete(ctx, "tasks", id); err != nil {
		return err
	}
	uc.notifier.SendToRoom(ctx, "org:"+orgID, "task:deleted", map[string]any{
		"taskId":    id,
		"deletedBy": actor(p),
	})
	return nil
}

// load lee la tarea con asignado y creador, validando la organización.
func (uc *TaskUseCase) load(ctx context.Context, p *domain.Principal, id string) (*dto.TaskResponse, error) {
	if _, err := findScoped(ctx, uc.store, "tasks", id, p.CurrentOrganizationID, "Task not found"); err != nil {
		return nil, err
	}
	rows, err := uc.store.FindWithJoins(ctx, "tasks", taskJoins,
		[]repository.Filter{repository.Eq("id", id)}, repository.Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Task not found")
	}
	return decodeOne[dto.TaskResponse]("tasks", rows[0])
}

// checkParent rechaza padres de otra organización y cualquier ciclo en la jerarquía.
func (uc *TaskUseCase) checkParent(ctx context.Context, taskID, parentID, orgID string) error {
	invalid := func(msg string) error {
		return domain.NewValidationError(msg, domain.FieldError{Field: "parent_task_id", Message: msg, Value: parentID})
	}
	if parentID == taskID {
		return invalid("A task cannot be its own parent")
	}
	current := parentID
	for depth := 0; current != ""; depth++ {
		if depth >= MaxTaskDepth {
			return invalid("Task hierarchy is too deep")
		}
		rec, err := uc.store.FindByID(ctx, "tasks", current)
		if err != nil {
			return err
		}
		if rec == nil || rec.String("organization_id") != orgID {
			if depth == 0 {
				return invalid("Invalid parent task")
			}
			return nil
		}
		if rec.ID() == taskID {
			return invalid("Parent task would create a cycle")
		}
		current = rec.String("parent_task_id")
	}
	return nil
}

// applyCompletion: progress 100 completa la tarea; pasar a completed fija completed_at
// y, si no se envió progress, lo lleva a 100.
func applyCompletion(patch repository.Record, existing *entity.Task, in dto.UpdateTaskRequest, now time.Time) {
	if existing.Status == entity.TaskStatusCompleted {
		return
	}
	if in.Progress != nil && *in.Progress == 100 {
		patch["status"] = entity.TaskStatusCompleted
	}
	if patch["status"] == entity.TaskStatusCompleted {
		patch["completed_at"] = now
		if in.Progress == nil {
			patch["progress"] = 100
		}
	}
}

func setIfPresent[T any](data repository.Record, key string, v *T) {
	if v != nil {
		data[key] = *v
	}
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func sortedFields(r repository.Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
