package persistence_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/persistence"
)

func jsonRepoAt(t *testing.T) (repositories.TodoRepository, string) {
	path := filepath.Join(t.TempDir(), "data", "todos.json")
	repo := persistence.NewJSONTodoRepository(path, persistence.WithClock(newStepClock().Now))

	return repo, path
}

func TestJSONTodoRepository_InitializesMissingFile(t *testing.T) {
	repo, path := jsonRepoAt(t)

	items, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestJSONTodoRepository_FileFormat(t *testing.T) {
	repo, path := jsonRepoAt(t)

	_, err := repo.Create(context.Background(), "Buy milk", nil, entities.StringPtr("Groceries"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	expected := `[
  {
    "id": 1,
    "name": "Buy milk",
    "description": null,
    "project": "Groceries",
    "status": "NotStarted",
    "createdAt": "2025-03-14T09:00:00Z",
    "updatedAt": "2025-03-14T09:00:00Z"
  }
]
`
	assert.Equal(t, expected, string(data))
}

func TestJSONTodoRepository_ReadsFreshOnEveryCall(t *testing.T) {
	repo, path := jsonRepoAt(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Buy milk", nil, nil)
	require.NoError(t, err)

	edited := `[{"id": 5, "name": "Edited by hand", "description": null, "project": "Home",
	  "status": "InProgress", "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-02T00:00:00Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	items, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].ID)
	assert.Equal(t, entities.TodoStatusInProgress, items[0].Status)

	next, err := repo.Create(ctx, "After edit", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, next.ID)
}

func TestJSONTodoRepository_CorruptFileIsFatal(t *testing.T) {
	cases := map[string]string{
		"invalid json":   `[{"id": 1,`,
		"empty file":     ``,
		"not an array":   `{"todos": []}`,
		"null":           `null`,
		"boolean schema": `[{"id": 1, "content": "x", "completed": false}]`,
		"bad status":     `[{"id": 1, "name": "x", "status": "Done", "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-01T00:00:00Z"}]`,
		"duplicate ids": `[{"id": 1, "name": "x", "status": "NotStarted", "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-01T00:00:00Z"},
		                   {"id": 1, "name": "y", "status": "NotStarted", "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-01T00:00:00Z"}]`,
		"trailing data": `[] []`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			repo, path := jsonRepoAt(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := repo.ReadAll(context.Background())
			assert.ErrorIs(t, err, entities.ErrStorageUnavailable)

			_, err = repo.Create(context.Background(), "Buy milk", nil, nil)
			assert.ErrorIs(t, err, entities.ErrStorageUnavailable)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, content, string(data), "corrupt file must not be overwritten")
		})
	}
}

func TestJSONTodoRepository_NoWriteWithoutChange(t *testing.T) {
	repo, path := jsonRepoAt(t)
	ctx := context.Background()

	item, err := repo.Create(ctx, "Buy milk", nil, nil)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, ok, err := repo.Update(ctx, 99, entities.TodoPatch{Status: entities.StringPtr("Completed")})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = repo.Update(ctx, item.ID, entities.TodoPatch{})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, 99)
	require.NoError(t, err)
	assert.False(t, deleted)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestJSONTodoRepository_RoundTripIsStable(t *testing.T) {
	repo, path := jsonRepoAt(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Buy milk", entities.StringPtr("2 litres"), entities.StringPtr("Groceries"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Call mum", nil, nil)
	require.NoError(t, err)
	_, _, err = repo.Update(ctx, 2, entities.TodoPatch{Status: entities.StringPtr("InProgress")})
	require.NoError(t, err)

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	items, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.(repositories.TodoReplacer).ReplaceAll(ctx, items))

	rewritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(rewritten))
}

func TestJSONTodoRepository_ReusesIdOfDeletedMax(t *testing.T) {
	repo, _ := jsonRepoAt(t)
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

func TestJSONTodoRepository_SerializedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	repo := persistence.NewJSONTodoRepository(path, persistence.WithSerializedWrites())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, fmt.Sprintf("task %d", i), nil, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 20)

	seen := map[int]bool{}
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate id %d", item.ID)
		seen[item.ID] = true
	}
}

func TestJSONTodoRepository_UnreadablePath(t *testing.T) {
	dir := t.TempDir()
	repo := persistence.NewJSONTodoRepository(dir)

	_, err := repo.ReadAll(context.Background())

	assert.ErrorIs(t, err, entities.ErrStorageUnavailable)
}
