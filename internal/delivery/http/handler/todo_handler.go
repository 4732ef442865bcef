package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"todoagent/internal/domain/entities"
	"todoagent/internal/usecase/interfaces"
	. "todoagent/pkg/config"
	. "todoagent/pkg/response"
	. "todoagent/pkg/tracing"
)

// TodoHandler handles HTTP requests for to-do operations
type TodoHandler struct {
	todoUseCase interfaces.TodoUseCase
	Logger      *LokiLogger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoUseCase interfaces.TodoUseCase, logger *LokiLogger) *TodoHandler {
	if logger == nil {
		logger = NewNopLogger()
	}

	return &TodoHandler{
		todoUseCase: todoUseCase,
		Logger:      logger,
	}
}

func (t *TodoHandler) ListTodos(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.ListTodos", []attribute.KeyValue{
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})
	defer span.End()

	var req interfaces.ListTodosRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		SendBadRequestError(c, "query", err.Error())
		return
	}

	page, err := t.todoUseCase.ListTodosPage(ctx, req)
	if err != nil {
		t.fail(c, span, "Failed to list todos", err)
		return
	}

	span.SetAttributes(attribute.Int("todo.count", page.Size))

	c.JSON(http.StatusOK, page)
}

func (t *TodoHandler) GetTodo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.GetTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	item, found, err := t.todoUseCase.GetTodo(ctx, id)
	if err != nil {
		t.fail(c, span, "Failed to get todo", err)
		return
	}

	if !found {
		SendNotFoundError(c, "To-do item with id "+strconv.Itoa(id)+" not found")
		return
	}

	SendSuccess(c, http.StatusOK, item)
}

func (t *TodoHandler) CreateTodo(c *gin.Context) {
	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.CreateTodo", nil)
	defer span.End()

	var req interfaces.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendValidationError(c, err)
		return
	}

	item, err := t.todoUseCase.CreateTodo(ctx, req)
	if err != nil {
		t.fail(c, span, "Failed to create todo", err)
		return
	}

	SendSuccess(c, http.StatusCreated, item)
}

func (t *TodoHandler) UpdateTodo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.UpdateTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	var patch entities.TodoPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		SendValidationError(c, err)
		return
	}

	item, found, err := t.todoUseCase.UpdateTodo(ctx, id, patch)
	if err != nil {
		t.fail(c, span, "Failed to update todo", err)
		return
	}

	if !found {
		SendNotFoundError(c, "To-do item with id "+strconv.Itoa(id)+" not found")
		return
	}

	SendSuccess(c, http.StatusOK, item)
}

func (t *TodoHandler) DeleteTodo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx, span := CreateChildSpan(c.Request.Context(), "handler.todo.DeleteTodo", []attribute.KeyValue{
		attribute.Int("todo.id", id),
	})
	defer span.End()

	deleted, err := t.todoUseCase.DeleteTodo(ctx, id)
	if err != nil {
		t.fail(c, span, "Failed to delete todo", err)
		return
	}

	if !deleted {
		SendNotFoundError(c, "To-do item with id "+strconv.Itoa(id)+" not found")
		return
	}

	c.Status(http.StatusNoContent)
}

func (t *TodoHandler) fail(c *gin.Context, span trace.Span, msg string, err error) {
	AddSpanError(span, err)
	t.Logger.ErrorWithTrace(c.Request.Context(), msg, zap.Error(err))
	SendDomainError(c, err)
}
