package interfaces

import (
	"context"

	"todoagent/internal/domain/entities"
	"todoagent/pkg/db/cursor"
)

// CreateTodoRequest represents the input of a create call
type CreateTodoRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Project     *string `json:"project,omitempty"`
}

// ListTodosRequest selects one page of the collection
type ListTodosRequest struct {
	Project string `form:"project"`
	Limit   int    `form:"limit" validate:"gte=0,lte=100"`
	Cursor  string `form:"cursor"`
}

// TodoPage is one page of a listing
type TodoPage struct {
	Size       int                 `json:"size"`
	Data       []entities.TodoItem `json:"data"`
	Pagination cursor.Pagination   `json:"pagination"`
}

// TodoUseCase defines the to-do operations offered to the tools, the HTTP
// API and the CLI
type TodoUseCase interface {
	// CreateTodo validates the request and stores a new item
	CreateTodo(ctx context.Context, req CreateTodoRequest) (entities.TodoItem, error)

	// GetTodo returns the item with id; the bool is false when absent
	GetTodo(ctx context.Context, id int) (entities.TodoItem, bool, error)

	// ListTodos returns every item, or only those of project when it is set
	ListTodos(ctx context.Context, project string) ([]entities.TodoItem, error)

	// ListTodosPage returns a cursor-paginated listing
	ListTodosPage(ctx context.Context, req ListTodosRequest) (*TodoPage, error)

	// UpdateTodo applies patch; the bool is false when absent
	UpdateTodo(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error)

	// DeleteTodo removes an item and reports whether one was removed
	DeleteTodo(ctx context.Context, id int) (bool, error)
}
