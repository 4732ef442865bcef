package persistence

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	. "todoagent/pkg/tracing"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/database"
)

var todoColumns = []string{"id", "name", "description", "project", "status", "created_at", "updated_at"}

// sqlTodoRepository stores items in the todos table of SQLite or Postgres.
type sqlTodoRepository struct {
	db   *database.DB
	opts options

	// precision is the timestamp resolution of the column type.
	precision time.Duration
}

// NewSQLTodoRepository creates a repository on an opened, migrated database.
func NewSQLTodoRepository(db *database.DB, opts ...Option) repositories.TodoRepository {
	precision := time.Duration(0)
	if db.Dialect == database.DialectPostgres {
		precision = time.Microsecond
	}

	return &sqlTodoRepository{db: db, opts: applyOptions(opts), precision: precision}
}

func (r *sqlTodoRepository) Create(ctx context.Context, name string, description, project *string) (entities.TodoItem, error) {
	var created entities.TodoItem

	err := r.span(ctx, "create", func(ctx context.Context) error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			id, err := r.nextID(ctx, tx)
			if err != nil {
				return err
			}

			item, err := entities.NewTodoItem(id, name, description, project, r.now())
			if err != nil {
				return err
			}

			if err := r.insert(ctx, tx, item); err != nil {
				return err
			}

			created = item
			return nil
		})
	})

	if err != nil {
		slog.Error("Error creating todo", "error", err)
		return entities.TodoItem{}, err
	}

	return created, nil
}

func (r *sqlTodoRepository) ReadAll(ctx context.Context) ([]entities.TodoItem, error) {
	var items []entities.TodoItem

	err := r.span(ctx, "read_all", func(ctx context.Context) error {
		var err error
		items, err = r.selectItems(ctx, r.db.DB, r.selectTodos())
		return err
	})

	if err != nil {
		slog.Error("Error fetching todos", "error", err)
		return nil, err
	}

	return items, nil
}

func (r *sqlTodoRepository) ReadByID(ctx context.Context, id int) (entities.TodoItem, bool, error) {
	var (
		item entities.TodoItem
		ok   bool
	)

	err := r.span(ctx, "read_by_id", func(ctx context.Context) error {
		var err error
		item, ok, err = r.findByID(ctx, r.db.DB, id)
		return err
	})

	if err != nil {
		slog.Error("Error fetching todo", "error", err, "id", id)
		return entities.TodoItem{}, false, err
	}

	return item, ok, nil
}

func (r *sqlTodoRepository) ReadByProject(ctx context.Context, project string) ([]entities.TodoItem, error) {
	var items []entities.TodoItem

	err := r.span(ctx, "read_by_project", func(ctx context.Context) error {
		query := r.selectTodos().Where(sq.NotEq{"project": nil})

		// SQLite's LOWER only folds ASCII, so there the match is done below.
		if r.db.Dialect == database.DialectPostgres {
			query = query.Where(sq.Expr("LOWER(project) = LOWER(?)", project))
		}

		fetched, err := r.selectItems(ctx, r.db.DB, query)
		if err != nil {
			return err
		}

		items = make([]entities.TodoItem, 0, len(fetched))
		for _, item := range fetched {
			if item.InProject(project) {
				items = append(items, item)
			}
		}

		return nil
	})

	if err != nil {
		slog.Error("Error fetching todos by project", "error", err, "project", project)
		return nil, err
	}

	return items, nil
}

func (r *sqlTodoRepository) Update(ctx context.Context, id int, patch entities.TodoPatch) (entities.TodoItem, bool, error) {
	if err := patch.Validate(); err != nil {
		return entities.TodoItem{}, false, err
	}

	var (
		updated entities.TodoItem
		ok      bool
	)

	err := r.span(ctx, "update", func(ctx context.Context) error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			item, found, err := r.findByID(ctx, tx, id)
			if err != nil || !found {
				return err
			}

			changed, err := item.Apply(patch, r.now())
			if err != nil {
				return err
			}

			if changed {
				item.UpdatedAt = r.roundUp(item.UpdatedAt)

				query := r.db.QueryBuilder.Update("todos").
					Set("name", item.Name).
					Set("description", nullString(item.Description)).
					Set("project", nullString(item.Project)).
					Set("status", item.Status.String()).
					Set("updated_at", item.UpdatedAt).
					Where(sq.Eq{"id": id})

				if err := r.exec(ctx, tx, query); err != nil {
					return err
				}
			}

			updated, ok = item, true
			return nil
		})
	})

	if err != nil {
		slog.Error("Error updating todo", "error", err, "id", id)
		return entities.TodoItem{}, false, err
	}

	return updated, ok, nil
}

func (r *sqlTodoRepository) Delete(ctx context.Context, id int) (bool, error) {
	var ok bool

	err := r.span(ctx, "delete", func(ctx context.Context) error {
		sqlStr, args, err := r.db.QueryBuilder.Delete("todos").Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return storageErr("build delete", err)
		}

		res, err := r.db.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return storageErr("delete todo", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete todo", err)
		}

		ok = n > 0
		return nil
	})

	if err != nil {
		slog.Error("Error deleting todo", "error", err, "id", id)
		return false, err
	}

	return ok, nil
}

// ReplaceAll deletes every row and inserts items in one transaction, in
// slice order, so the new seq values follow the given order.
func (r *sqlTodoRepository) ReplaceAll(ctx context.Context, items []entities.TodoItem) error {
	if err := ValidateTodoItems(items); err != nil {
		return &entities.ValidationError{Violations: violationsOf(err)}
	}

	return r.span(ctx, "replace_all", func(ctx context.Context) error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			if err := r.exec(ctx, tx, r.db.QueryBuilder.Delete("todos")); err != nil {
				return err
			}

			for _, item := range items {
				if err := r.insert(ctx, tx, item); err != nil {
					return err
				}
			}

			return nil
		})
	})
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// selectTodos lists rows in insertion order. seq is assigned by the
// database on every insert and never reused.
func (r *sqlTodoRepository) selectTodos() sq.SelectBuilder {
	return r.db.QueryBuilder.Select(todoColumns...).From("todos").OrderBy("seq ASC")
}

func (r *sqlTodoRepository) findByID(ctx context.Context, q queryer, id int) (entities.TodoItem, bool, error) {
	items, err := r.selectItems(ctx, q, r.selectTodos().Where(sq.Eq{"id": id}).Limit(1))
	if err != nil || len(items) == 0 {
		return entities.TodoItem{}, false, err
	}

	return items[0], true, nil
}

func (r *sqlTodoRepository) selectItems(ctx context.Context, q queryer, query sq.SelectBuilder) ([]entities.TodoItem, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, storageErr("build select", err)
	}

	rows, err := q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, storageErr("select todos", err)
	}
	defer rows.Close()

	items := []entities.TodoItem{}

	for rows.Next() {
		var (
			item        entities.TodoItem
			description sql.NullString
			project     sql.NullString
			status      string
		)

		if err := rows.Scan(&item.ID, &item.Name, &description, &project, &status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, storageErr("scan todo", err)
		}

		item.Description = stringFromNull(description)
		item.Project = stringFromNull(project)
		item.Status = entities.TodoStatus(status)
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate todos", err)
	}

	return items, nil
}

func (r *sqlTodoRepository) insert(ctx context.Context, tx *sql.Tx, item entities.TodoItem) error {
	query := r.db.QueryBuilder.Insert("todos").
		Columns(todoColumns...).
		Values(item.ID, item.Name, nullString(item.Description), nullString(item.Project),
			item.Status.String(), item.CreatedAt, item.UpdatedAt)

	return r.exec(ctx, tx, query)
}

// nextID computes max(id)+1 inside the transaction. Postgres takes a table
// lock first so concurrent creates cannot pick the same id.
func (r *sqlTodoRepository) nextID(ctx context.Context, tx *sql.Tx) (int, error) {
	if r.db.Dialect == database.DialectPostgres {
		if _, err := tx.ExecContext(ctx, "LOCK TABLE todos IN EXCLUSIVE MODE"); err != nil {
			return 0, storageErr("lock todos", err)
		}
	}

	sqlStr, args, err := r.db.QueryBuilder.Select("COALESCE(MAX(id), 0) + 1").From("todos").ToSql()
	if err != nil {
		return 0, storageErr("build next id", err)
	}

	var id int
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, storageErr("next id", err)
	}

	return id, nil
}

func (r *sqlTodoRepository) exec(ctx context.Context, e execer, query sq.Sqlizer) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return storageErr("build statement", err)
	}

	if _, err := e.ExecContext(ctx, sqlStr, args...); err != nil {
		return storageErr("exec statement", err)
	}

	return nil
}

func (r *sqlTodoRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}

	return nil
}

func (r *sqlTodoRepository) span(ctx context.Context, operation string, fn func(context.Context) error) error {
	return StorageSpanWrapper(ctx, string(r.db.Dialect), operation, fn)
}

func (r *sqlTodoRepository) now() time.Time {
	return r.roundUp(r.opts.now())
}

// roundUp aligns t to the column precision without moving it backwards.
func (r *sqlTodoRepository) roundUp(t time.Time) time.Time {
	if r.precision <= 0 {
		return t
	}

	truncated := t.Truncate(r.precision)
	if truncated.Equal(t) {
		return truncated
	}

	return truncated.Add(r.precision)
}

func storageErr(op string, err error) error {
	var storage *entities.StorageError
	if errors.As(err, &storage) {
		return err
	}

	return &entities.StorageError{Op: op, Err: err}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func stringFromNull(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}

	return &s.String
}
