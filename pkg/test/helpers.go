package test

import (
	"context"
	"path/filepath"
	"testing"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/database"
	"todoagent/internal/infrastructure/persistence"
)

// InitTestDB opens a migrated SQLite database in a temp dir that is
// closed when the test ends.
func InitTestDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Dialect: database.DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "todos.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// CleanDB deletes every row of the todos table.
func CleanDB(t testing.TB, db *database.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM todos"); err != nil {
		t.Fatalf("Failed to clean todos: %v", err)
	}
}

// NewJSONRepo returns a JSON file repository rooted in a temp dir, and
// the path of its backing file.
func NewJSONRepo(t testing.TB, opts ...persistence.Option) (repositories.TodoRepository, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "todos.json")

	return persistence.NewJSONTodoRepository(path, opts...), path
}

// Seed replaces the repository content with items.
func Seed(t testing.TB, repo repositories.TodoRepository, items []entities.TodoItem) {
	t.Helper()

	replacer, ok := repo.(repositories.TodoReplacer)
	if !ok {
		t.Fatalf("repository %T cannot be seeded", repo)
	}

	if err := replacer.ReplaceAll(context.Background(), items); err != nil {
		t.Fatalf("Failed to seed repository: %v", err)
	}
}
