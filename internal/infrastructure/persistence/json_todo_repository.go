package persistence

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	. "todoagent/pkg/tracing"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
)

// jsonTodoRepository keeps the collection in a single JSON array on disk.
// Every call reads the file fresh; nothing is cached between calls.
type jsonTodoRepository struct {
	path string
	opts options
	mu   sync.Mutex
}

// NewJSONTodoRepository creates a repository backed by the JSON file at path.
// The file (and its directory) is created with an empty array on first use.
func NewJSONTodoRepository(path string, opts ...Option) repositories.TodoRepository {
	return &jsonTodoRepository{
		path: path,
		opts: applyOptions(opts),
	}
}

func (r *jsonTodoRepository) Create(ctx context.Context, name string, description, project *string) (entities.TodoItem, error) {
	var created entities.TodoItem

	err := StorageSpanWrapper(ctx, "json", "create", func(ctx context.Context) error {
		return r.mutate(func(items []entities.TodoItem) ([]entities.TodoItem, bool, error) {
			item, err := entities.NewTodoItem(nextID(items), name, description, project, r.opts.now())
			if err != nil {
				return nil, false, err
			}

			created = item
			return append(items, item), true, nil
		})
	})

	if err != nil {
		slog.Error("Error creating todo", "error", err, "path", r.path)
		return entities.TodoItem{}, err
	}

	return cloneItem(created), nil
}

func (r *jsonTodoRepository) ReadAll(ctx context.Context) ([]entities.TodoItem, error) {
	var items []entities.TodoItem

	err := StorageSpanWrapper(ctx, "json", "read_all", func(ctx context.Context) error {
		var err error
		items, err = r.load()
		return err
	})

	if err != nil {
		slog.Error("Error reading todos", "error", err, "path", r.path)
		return nil, err
	}

	return items, nil
}

func (r *jsonTodoRepository) ReadByID(ctx context.Context, id int) (entities.TodoItem, bool, error) {
	var (
		found entities.TodoItem
		ok    bool
	)

	err := StorageSpanWrapper(ctx, "json", "read_by_id", func(ctx context.Context) error {
		items, err := r.load()
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.ID == id {
				found, ok = item, true
				break
			}
		}

		return nil
	})

	if err != nil {
		slog.Error("Error reading todo", "error", err, "id", id)
		return entities.TodoItem{}, false, err
	}

	return found, ok, nil
}

func (r *jsonTodoRepository) ReadByProject(ctx context.Context, project string) ([]entities.TodoItem, error) {
	matches := make([]entities.TodoItem, 0)

	err := StorageSpanWrapper(ctx, "json", "read_by_project", func(ctx context.Context) error {
		items, err := r.load()
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.InProject(project) {
				matches = append(matches, item)
			}
		}

		return nil
	})

	if err != nil {
		slog.Error("Error reading todos by project", "error", err, "project", project)
		return nil, err
	}

	return matches, nil
}

func (r *jsonTodoRepository) Update(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error) {
	if err := patch.Validate(); err != nil {
		return entities.TodoItem{}, false, err
	}

	var (
		updated entities.TodoItem
		ok      bool
	)

	err := StorageSpanWrapper(ctx, "json", "update", func(ctx context.Context) error {
		return r.mutate(func(items []entities.TodoItem) ([]entities.TodoItem, bool, error) {
			for i := range items {
				if items[i].ID != id {
					continue
				}

				changed, err := items[i].Apply(patch, r.opts.now())
				if err != nil {
					return nil, false, err
				}

				updated, ok = items[i], true
				return items, changed, nil
			}

			return items, false, nil
		})
	})

	if err != nil {
		slog.Error("Error updating todo", "error", err, "id", id)
		return entities.TodoItem{}, false, err
	}

	return cloneItem(updated), ok, nil
}

func (r *jsonTodoRepository) Delete(ctx context.Context, id int) (bool, error) {
	var ok bool

	err := StorageSpanWrapper(ctx, "json", "delete", func(ctx context.Context) error {
		return r.mutate(func(items []entities.TodoItem) ([]entities.TodoItem, bool, error) {
			kept := make([]entities.TodoItem, 0, len(items))

			for _, item := range items {
				if item.ID == id {
					ok = true
					continue
				}
				kept = append(kept, item)
			}

			return kept, ok, nil
		})
	})

	if err != nil {
		slog.Error("Error deleting todo", "error", err, "id", id)
		return false, err
	}

	return ok, nil
}

// ReplaceAll overwrites the file with items.
func (r *jsonTodoRepository) ReplaceAll(ctx context.Context, items []entities.TodoItem) error {
	if err := ValidateTodoItems(items); err != nil {
		return &entities.ValidationError{Violations: violationsOf(err)}
	}

	return StorageSpanWrapper(ctx, "json", "replace_all", func(ctx context.Context) error {
		if r.opts.serializeWrites {
			r.mu.Lock()
			defer r.mu.Unlock()
		}

		return r.save(items)
	})
}

// mutate runs one load/modify/save cycle. fn reports whether the collection
// changed; nothing is written when it did not.
func (r *jsonTodoRepository) mutate(fn func([]entities.TodoItem) ([]entities.TodoItem, bool, error)) error {
	if r.opts.serializeWrites {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	items, err := r.load()
	if err != nil {
		return err
	}

	next, dirty, err := fn(items)
	if err != nil || !dirty {
		return err
	}

	return r.save(next)
}

func (r *jsonTodoRepository) load() ([]entities.TodoItem, error) {
	data, err := os.ReadFile(r.path)

	if errors.Is(err, fs.ErrNotExist) {
		if err := r.save(nil); err != nil {
			return nil, err
		}
		return []entities.TodoItem{}, nil
	}

	if err != nil {
		return nil, &entities.StorageError{Op: "read", Path: r.path, Err: err}
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, &entities.StorageError{Op: "parse", Path: r.path, Err: errors.New("file is empty")}
	}

	items, err := DecodeTodoItems(data)
	if err != nil {
		return nil, &entities.StorageError{Op: "parse", Path: r.path, Err: err}
	}

	return items, nil
}

func (r *jsonTodoRepository) save(items []entities.TodoItem) error {
	data, err := EncodeTodoItems(items)
	if err != nil {
		return &entities.StorageError{Op: "encode", Path: r.path, Err: err}
	}

	if err := writeFileAtomic(r.path, data); err != nil {
		return &entities.StorageError{Op: "write", Path: r.path, Err: err}
	}

	return nil
}
