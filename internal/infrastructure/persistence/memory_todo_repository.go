package persistence

import (
	"context"
	"sync"

	. "todoagent/pkg/tracing"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
)

// memoryTodoRepository keeps items in process memory. Ids come from a
// counter that only grows, so an id is never reused within the process.
type memoryTodoRepository struct {
	mu     sync.Mutex
	items  []entities.TodoItem
	lastID int
	opts   options
}

// NewMemoryTodoRepository creates an empty in-memory repository.
func NewMemoryTodoRepository(opts ...Option) repositories.TodoRepository {
	return &memoryTodoRepository{
		items: []entities.TodoItem{},
		opts:  applyOptions(opts),
	}
}

func (r *memoryTodoRepository) Create(ctx context.Context, name string, description, project *string) (entities.TodoItem, error) {
	var created entities.TodoItem

	err := StorageSpanWrapper(ctx, "memory", "create", func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		item, err := entities.NewTodoItem(r.lastID+1, name, description, project, r.opts.now())
		if err != nil {
			return err
		}

		r.lastID = item.ID
		r.items = append(r.items, item)
		created = cloneItem(item)

		return nil
	})

	return created, err
}

func (r *memoryTodoRepository) ReadAll(ctx context.Context) ([]entities.TodoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return cloneItems(r.items), nil
}

func (r *memoryTodoRepository) ReadByID(ctx context.Context, id int) (entities.TodoItem, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(id); i >= 0 {
		return cloneItem(r.items[i]), true, nil
	}

	return entities.TodoItem{}, false, nil
}

func (r *memoryTodoRepository) ReadByProject(ctx context.Context, project string) ([]entities.TodoItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := make([]entities.TodoItem, 0)

	for _, item := range r.items {
		if item.InProject(project) {
			matches = append(matches, cloneItem(item))
		}
	}

	return matches, nil
}

func (r *memoryTodoRepository) Update(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error) {
	if err := patch.Validate(); err != nil {
		return entities.TodoItem{}, false, err
	}

	var (
		updated entities.TodoItem
		ok      bool
	)

	err := StorageSpanWrapper(ctx, "memory", "update", func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		i := r.indexOf(id)
		if i < 0 {
			return nil
		}

		item := cloneItem(r.items[i])
		if _, err := item.Apply(patch, r.opts.now()); err != nil {
			return err
		}

		r.items[i] = item
		updated, ok = cloneItem(item), true

		return nil
	})

	if err != nil {
		return entities.TodoItem{}, false, err
	}

	return updated, ok, nil
}

func (r *memoryTodoRepository) Delete(ctx context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}

	r.items = append(r.items[:i], r.items[i+1:]...)

	return true, nil
}

// ReplaceAll swaps the collection. The id counter never moves backwards.
func (r *memoryTodoRepository) ReplaceAll(ctx context.Context, items []entities.TodoItem) error {
	if err := ValidateTodoItems(items); err != nil {
		return &entities.ValidationError{Violations: violationsOf(err)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = cloneItems(items)

	if maxID := nextID(items) - 1; maxID > r.lastID {
		r.lastID = maxID
	}

	return nil
}

func (r *memoryTodoRepository) indexOf(id int) int {
	for i, item := range r.items {
		if item.ID == id {
			return i
		}
	}

	return -1
}
