package impl

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/usecase/interfaces"
	"todoagent/pkg/config"
	c "todoagent/pkg/db/cursor"
	. "todoagent/pkg/tracing"
	"todoagent/pkg/validation"
)

// todoUseCase implements the TodoUseCase interface
type todoUseCase struct {
	todoRepo        repositories.TodoRepository
	cursors         *c.Codec
	metrics         *config.AppMetrics
	defaultPageSize int
}

// TodoUseCaseOption configures NewTodoUseCase
type TodoUseCaseOption func(*todoUseCase)

func WithMetrics(metrics *config.AppMetrics) TodoUseCaseOption {
	return func(t *todoUseCase) { t.metrics = metrics }
}

func WithCursorSecret(secret string) TodoUseCaseOption {
	return func(t *todoUseCase) { t.cursors = c.NewCodec(secret) }
}

func WithDefaultPageSize(size int) TodoUseCaseOption {
	return func(t *todoUseCase) {
		if size > 0 {
			t.defaultPageSize = size
		}
	}
}

// NewTodoUseCase creates a new todo use case
func NewTodoUseCase(todoRepo repositories.TodoRepository, opts ...TodoUseCaseOption) interfaces.TodoUseCase {
	t := &todoUseCase{
		todoRepo:        todoRepo,
		cursors:         c.NewCodec(""),
		defaultPageSize: 20,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *todoUseCase) CreateTodo(ctx context.Context, req interfaces.CreateTodoRequest) (entities.TodoItem, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.CreateTodo", []attribute.KeyValue{
		attribute.String("todo.name", req.Name),
	})
	defer span.End()

	if err := validation.Validator.Struct(req); err != nil {
		t.record(ctx, "create", err, true)
		return entities.TodoItem{}, &entities.ValidationError{Violations: validation.FormatValidationErrors(err)}
	}

	item, err := t.todoRepo.Create(ctx, req.Name, req.Description, req.Project)
	t.record(ctx, "create", err, true)

	if err != nil {
		AddSpanError(span, err)
		return entities.TodoItem{}, err
	}

	span.SetAttributes(attribute.Int("todo.id", item.ID))
	slog.Info("Todo created", "id", item.ID, "trace_id", GetTraceID(ctx))

	return item, nil
}

func (t *todoUseCase) GetTodo(ctx context.Context, id int) (entities.TodoItem, bool, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.GetTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	item, ok, err := t.todoRepo.ReadByID(ctx, id)
	t.record(ctx, "read", err, ok)

	if err != nil {
		AddSpanError(span, err)
	}

	return item, ok, err
}

func (t *todoUseCase) ListTodos(ctx context.Context, project string) ([]entities.TodoItem, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.ListTodos", []attribute.KeyValue{
		attribute.String("todo.project", project),
	})
	defer span.End()

	var (
		items []entities.TodoItem
		err   error
	)

	if project == "" {
		items, err = t.todoRepo.ReadAll(ctx)
	} else {
		items, err = t.todoRepo.ReadByProject(ctx, project)
	}

	t.record(ctx, "list", err, true)

	if err != nil {
		AddSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("todo.count", len(items)))

	return items, nil
}

// ListTodosPage pages through the listing in insertion order. The cursor
// carries the last id served and the project filter it was issued for; a
// page resumes right after that id wherever it now sits in the listing.
func (t *todoUseCase) ListTodosPage(ctx context.Context, req interfaces.ListTodosRequest) (*interfaces.TodoPage, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.ListTodosPage", []attribute.KeyValue{
		attribute.String("todo.project", req.Project),
		attribute.Int("todo.limit", req.Limit),
		attribute.String("todo.cursor", req.Cursor),
	})
	defer span.End()

	if err := validation.Validator.Struct(req); err != nil {
		return nil, &entities.ValidationError{Violations: validation.FormatValidationErrors(err)}
	}

	limit := req.Limit
	if limit == 0 {
		limit = t.defaultPageSize
	}

	var pos *c.Position

	if req.Cursor != "" {
		decoded, err := t.cursors.Decode(req.Cursor)
		if err == nil && decoded.Project != req.Project {
			err = errors.New("cursor was issued for another project")
		}

		if err != nil {
			AddSpanError(span, err)
			slog.Error("Error decoding cursor", "error", err)

			return nil, &entities.ValidationError{Violations: []validation.Violation{{
				Field:   "cursor",
				Message: "cursor is invalid",
			}}}
		}

		pos = &decoded
	}

	items, err := t.ListTodos(ctx, req.Project)
	if err != nil {
		return nil, err
	}

	start := resumeIndex(items, pos)
	end := min(start+limit, len(items))

	data := make([]entities.TodoItem, 0, end-start)
	data = append(data, items[start:end]...)

	page := &interfaces.TodoPage{
		Size: len(data),
		Data: data,
	}

	if end < len(items) {
		page.Pagination.HasNext = true
		page.Pagination.NextCursor = t.cursors.Encode(c.Position{
			AfterID: data[len(data)-1].ID,
			Offset:  end,
			Project: req.Project,
		})
	}

	return page, nil
}

// resumeIndex finds where a page continues: after the cursor's item when it
// is still listed, otherwise at the recorded offset.
func resumeIndex(items []entities.TodoItem, pos *c.Position) int {
	if pos == nil {
		return 0
	}

	for i, item := range items {
		if item.ID == pos.AfterID {
			return i + 1
		}
	}

	return min(pos.Offset, len(items))
}

func (t *todoUseCase) UpdateTodo(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.UpdateTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	item, ok, err := t.todoRepo.Update(ctx, id, patch)
	t.record(ctx, "update", err, ok)

	if err != nil {
		AddSpanError(span, err)
		return entities.TodoItem{}, false, err
	}

	if ok {
		slog.Info("Todo updated", "id", id, "trace_id", GetTraceID(ctx))
	}

	return item, ok, nil
}

func (t *todoUseCase) DeleteTodo(ctx context.Context, id int) (bool, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.todo.DeleteTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	deleted, err := t.todoRepo.Delete(ctx, id)
	t.record(ctx, "delete", err, deleted)

	if err != nil {
		AddSpanError(span, err)
		return false, err
	}

	if deleted {
		slog.Info("Todo deleted", "id", id, "trace_id", GetTraceID(ctx))
	}

	return deleted, nil
}

func (t *todoUseCase) record(ctx context.Context, operation string, err error, found bool) {
	if t.metrics == nil {
		return
	}

	outcome := "ok"

	switch {
	case errors.Is(err, entities.ErrValidation):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	case !found:
		outcome = "not_found"
	}

	t.metrics.RecordTodoOperation(ctx, operation, outcome)
}
