package factory

import (
	"time"

	fab "github.com/Goldziher/fabricator"

	"todoagent/internal/domain/entities"
)

// TodoAttributes are the caller-supplied fields of a to-do.
type TodoAttributes struct {
	Name        string
	Description string
	Project     string
}

func NewTodoAttributes(customData ...map[string]any) TodoAttributes {
	attrs := fab.New(*new(TodoAttributes)).Build(customData...)

	if attrs.Name == "" {
		attrs.Name = "todo"
	}

	return attrs
}

// NewTodoItem builds a valid stored item with the given id. Empty
// description or project overrides leave the field unset.
func NewTodoItem(id int, customData ...map[string]any) entities.TodoItem {
	attrs := NewTodoAttributes(customData...)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	return entities.TodoItem{
		ID:          id,
		Name:        attrs.Name,
		Description: entities.StringPtr(attrs.Description),
		Project:     entities.StringPtr(attrs.Project),
		Status:      entities.TodoStatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTodoItems builds n items with ids 1..n.
func NewTodoItems(n int, customData ...map[string]any) []entities.TodoItem {
	items := make([]entities.TodoItem, n)

	for i := range items {
		items[i] = NewTodoItem(i+1, customData...)
	}

	return items
}
