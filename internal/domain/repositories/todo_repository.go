package repositories

import (
	"context"

	"todoagent/internal/domain/entities"
)

// TodoRepository defines the capability set every to-do backing store
// implements. Not-found is reported through the boolean results, never as an
// error; errors are reserved for validation failures and unusable storage.
type TodoRepository interface {
	// Create assigns an id, stamps both timestamps and appends a new item
	Create(ctx context.Context, name string, description, project *string) (entities.TodoItem, error)

	// ReadAll returns every item in insertion order
	ReadAll(ctx context.Context) ([]entities.TodoItem, error)

	// ReadByID finds an item by id
	ReadByID(ctx context.Context, id int) (entities.TodoItem, bool, error)

	// ReadByProject returns the items whose project matches, ignoring case
	ReadByProject(ctx context.Context, project string) ([]entities.TodoItem, error)

	// Update applies the present fields of patch to an item
	Update(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error)

	// Delete removes an item and reports whether one was removed
	Delete(ctx context.Context, id int) (bool, error)
}

// TodoReplacer is implemented by stores that can swap their whole
// collection at once. Used by the reset and seed commands.
type TodoReplacer interface {
	ReplaceAll(ctx context.Context, items []entities.TodoItem) error
}
