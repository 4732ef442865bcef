package persistence_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoagent/internal/domain/entities"
	"todoagent/internal/infrastructure/database"
	"todoagent/internal/infrastructure/persistence"
	. "todoagent/pkg/test"
	"todoagent/pkg/test/factory"
)

func TestSQLTodoRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.db")
	ctx := context.Background()

	db, err := database.Open(database.Options{Dialect: database.DialectSQLite, DSN: path})
	require.NoError(t, err)

	created, err := persistence.NewSQLTodoRepository(db).Create(ctx, "Buy milk", entities.StringPtr("2 litres"), entities.StringPtr("Groceries"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = database.Open(database.Options{Dialect: database.DialectSQLite, DSN: path})
	require.NoError(t, err)
	defer db.Close()

	found, ok, err := persistence.NewSQLTodoRepository(db).ReadByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2 litres", *found.Description)
	assert.True(t, found.CreatedAt.Equal(created.CreatedAt))
}

func TestSQLTodoRepository_ReusesIdOfDeletedMax(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "one", nil, nil)
	require.NoError(t, err)
	two, err := repo.Create(ctx, "two", nil, nil)
	require.NoError(t, err)

	_, err = repo.Delete(ctx, two.ID)
	require.NoError(t, err)

	again, err := repo.Create(ctx, "again", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ID)
}

func TestSQLTodoRepository_ProjectMatchFoldsUnicode(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Bake", nil, entities.StringPtr("Küche"))
	require.NoError(t, err)

	items, err := repo.ReadByProject(ctx, "KÜCHE")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSQLTodoRepository_CleanTableRestartsIds(t *testing.T) {
	db := InitTestDB(t)
	repo := persistence.NewSQLTodoRepository(db)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		_, err := repo.Create(ctx, name, nil, nil)
		require.NoError(t, err)
	}

	CleanDB(t, db)

	items, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	fresh, err := repo.Create(ctx, "fresh", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.ID)
}

func TestSQLTodoRepository_SeededOrderMatchesJSON(t *testing.T) {
	ctx := context.Background()
	seed := []entities.TodoItem{factory.NewTodoItem(5), factory.NewTodoItem(2), factory.NewTodoItem(7)}

	sqlRepo := newSQLiteRepo(t)
	jsonRepo, _ := NewJSONRepo(t)

	Seed(t, sqlRepo, seed)
	Seed(t, jsonRepo, seed)

	fromSQL, err := sqlRepo.ReadAll(ctx)
	require.NoError(t, err)
	fromJSON, err := jsonRepo.ReadAll(ctx)
	require.NoError(t, err)

	for i := range seed {
		assert.Equal(t, seed[i].ID, fromSQL[i].ID)
		assert.Equal(t, seed[i].ID, fromJSON[i].ID)
	}
}
