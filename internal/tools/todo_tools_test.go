package tools_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/persistence"
	"todoagent/internal/tools"
	"todoagent/internal/usecase/impl"
	"todoagent/pkg/config"
	. "todoagent/pkg/test"
	"todoagent/pkg/test/factory"
)

func newRegistry() (*tools.Registry, repositories.TodoRepository) {
	repo := persistence.NewMemoryTodoRepository()

	return tools.NewTodoTools(impl.NewTodoUseCase(repo), nil), repo
}

func run(t *testing.T, registry *tools.Registry, name string, args map[string]any) string {
	t.Helper()

	output, err := registry.Execute(context.Background(), name, args)
	require.NoError(t, err)

	return output
}

func TestRegistry_ListIsSorted(t *testing.T) {
	registry, _ := newRegistry()

	defs := registry.List()

	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}

	assert.Equal(t, []string{"create_todo", "delete_todo", "read_todos", "update_todo"}, names)
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.Equal(t, []string{"name"}, defs[0].Parameters["required"])
}

func TestRegistry_UnknownTool(t *testing.T) {
	registry, _ := newRegistry()

	_, err := registry.Execute(context.Background(), "web_search", nil)

	assert.ErrorIs(t, err, tools.ErrUnknownTool)
}

func TestRegistry_RecordsInvocations(t *testing.T) {
	metrics := config.NewAppMetrics(prometheus.NewRegistry())
	registry := tools.NewTodoTools(impl.NewTodoUseCase(persistence.NewMemoryTodoRepository()), metrics)

	_, err := registry.Execute(context.Background(), tools.ReadTodosTool, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolInvocationsCounter(tools.ReadTodosTool)))
}

func TestCreateTodo(t *testing.T) {
	registry, _ := newRegistry()

	output := run(t, registry, tools.CreateTodoTool, map[string]any{
		"name":    "Buy milk",
		"project": "Groceries",
	})
	assert.Equal(t, "Created to-do item 1 ('Buy milk') in project 'Groceries' with status 'NotStarted'.", output)

	output = run(t, registry, tools.CreateTodoTool, map[string]any{"name": "Call mum"})
	assert.Equal(t, "Created to-do item 2 ('Call mum') in project 'None' with status 'NotStarted'.", output)
}

func TestCreateTodo_EmptyName(t *testing.T) {
	registry, repo := newRegistry()

	output := run(t, registry, tools.CreateTodoTool, map[string]any{"name": ""})

	assert.Contains(t, output, "Error creating to-do:")
	assert.Contains(t, output, "name is required")

	items, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateTodo_WrongArgumentType(t *testing.T) {
	registry, _ := newRegistry()

	_, err := registry.Execute(context.Background(), tools.CreateTodoTool, map[string]any{"name": 42.0})

	assert.ErrorIs(t, err, tools.ErrInvalidArguments)
}

func TestReadTodos_ByID(t *testing.T) {
	registry, repo := newRegistry()
	Seed(t, repo, []entities.TodoItem{
		factory.NewTodoItem(1, map[string]any{"Name": "Buy milk", "Description": "", "Project": "Groceries"}),
	})

	output := run(t, registry, tools.ReadTodosTool, map[string]any{"item_id": 1.0})

	expected := `{
  "id": 1,
  "name": "Buy milk",
  "description": null,
  "project": "Groceries",
  "status": "NotStarted",
  "createdAt": "2025-01-01T12:00:00Z",
  "updatedAt": "2025-01-01T12:00:00Z"
}`
	assert.Equal(t, expected, output)

	output = run(t, registry, tools.ReadTodosTool, map[string]any{"item_id": "7"})
	assert.Equal(t, "To-do item with ID 7 not found.", output)
}

func TestReadTodos_ByProject(t *testing.T) {
	registry, repo := newRegistry()
	Seed(t, repo, []entities.TodoItem{
		factory.NewTodoItem(1, map[string]any{"Name": "a", "Project": "Work"}),
		factory.NewTodoItem(2, map[string]any{"Name": "b", "Project": "Home"}),
		factory.NewTodoItem(3, map[string]any{"Name": "c", "Project": "WORK"}),
	})

	output := run(t, registry, tools.ReadTodosTool, map[string]any{"project": "work"})

	var items []entities.TodoItem
	require.NoError(t, json.Unmarshal([]byte(output), &items))
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 3, items[1].ID)

	output = run(t, registry, tools.ReadTodosTool, map[string]any{"project": "Garden"})
	assert.Equal(t, "No to-do items found for project 'Garden'.", output)
}

func TestReadTodos_All(t *testing.T) {
	registry, repo := newRegistry()

	assert.Equal(t, "[\n\n]", run(t, registry, tools.ReadTodosTool, nil))

	Seed(t, repo, factory.NewTodoItems(2))

	output := run(t, registry, tools.ReadTodosTool, map[string]any{})
	assert.Contains(t, output, "[\n{\n  \"id\": 1,")
	assert.Contains(t, output, "},\n{\n  \"id\": 2,")

	var items []entities.TodoItem
	require.NoError(t, json.Unmarshal([]byte(output), &items))
	assert.Len(t, items, 2)
}

func TestReadTodos_EmptyProjectListsAll(t *testing.T) {
	registry, repo := newRegistry()

	assert.Equal(t, "[\n\n]", run(t, registry, tools.ReadTodosTool, map[string]any{"project": ""}))

	Seed(t, repo, []entities.TodoItem{
		factory.NewTodoItem(1, map[string]any{"Project": "Work"}),
		factory.NewTodoItem(2),
	})

	output := run(t, registry, tools.ReadTodosTool, map[string]any{"project": ""})

	var items []entities.TodoItem
	require.NoError(t, json.Unmarshal([]byte(output), &items))
	assert.Len(t, items, 2)
}

func TestUpdateTodo(t *testing.T) {
	registry, repo := newRegistry()
	Seed(t, repo, factory.NewTodoItems(1))

	output := run(t, registry, tools.UpdateTodoTool, map[string]any{"item_id": 1.0, "status": "Completed"})
	assert.Equal(t, "Updated to-do item 1.", output)

	item, _, err := repo.ReadByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entities.TodoStatusCompleted, item.Status)
	assert.True(t, item.UpdatedAt.After(item.CreatedAt))
}

func TestUpdateTodo_Rejections(t *testing.T) {
	registry, repo := newRegistry()
	Seed(t, repo, factory.NewTodoItems(1))

	cases := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{
			name:     "invalid status",
			args:     map[string]any{"item_id": 1.0, "status": "Done"},
			expected: "Error: Invalid status 'Done'. Please use one of: NotStarted, InProgress, Completed.",
		},
		{
			name:     "spaced status",
			args:     map[string]any{"item_id": 1.0, "status": "In Progress"},
			expected: "Error: Invalid status 'In Progress'. Please use one of: NotStarted, InProgress, Completed.",
		},
		{
			name:     "no fields",
			args:     map[string]any{"item_id": 1.0},
			expected: "Error: No fields to update were provided.",
		},
		{
			name:     "absent item",
			args:     map[string]any{"item_id": 9.0, "name": "x"},
			expected: "To-do item with id 9 not found.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, run(t, registry, tools.UpdateTodoTool, tc.args))
		})
	}

	item, _, err := repo.ReadByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entities.TodoStatusNotStarted, item.Status)
}

func TestUpdateTodo_RequiresID(t *testing.T) {
	registry, _ := newRegistry()

	_, err := registry.Execute(context.Background(), tools.UpdateTodoTool, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, tools.ErrInvalidArguments)

	_, err = registry.Execute(context.Background(), tools.UpdateTodoTool, map[string]any{"item_id": 1.5, "name": "x"})
	assert.ErrorIs(t, err, tools.ErrInvalidArguments)

	for _, id := range []float64{1e300, -1e300, 9223372036854775808} {
		_, err = registry.Execute(context.Background(), tools.DeleteTodoTool, map[string]any{"item_id": id})
		assert.ErrorIs(t, err, tools.ErrInvalidArguments, "item_id %v", id)
	}
}

func TestDeleteTodo(t *testing.T) {
	registry, repo := newRegistry()
	Seed(t, repo, factory.NewTodoItems(2))

	assert.Equal(t, "Deleted to-do item 2.", run(t, registry, tools.DeleteTodoTool, map[string]any{"item_id": 2}))
	assert.Equal(t, "To-do item with id 2 not found.", run(t, registry, tools.DeleteTodoTool, map[string]any{"item_id": 2}))

	items, err := repo.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestTools_StorageFailureIsRendered(t *testing.T) {
	repo := persistence.NewJSONTodoRepository(t.TempDir())
	registry := tools.NewTodoTools(impl.NewTodoUseCase(repo), nil)

	cases := map[string]struct {
		tool   string
		args   map[string]any
		prefix string
	}{
		"create": {tools.CreateTodoTool, map[string]any{"name": "x"}, "Error creating to-do: "},
		"read":   {tools.ReadTodosTool, nil, "Error reading to-dos: "},
		"update": {tools.UpdateTodoTool, map[string]any{"item_id": 1, "name": "x"}, "Error updating to-do: "},
		"delete": {tools.DeleteTodoTool, map[string]any{"item_id": 1}, "Error deleting to-do: "},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			output := run(t, registry, tc.tool, tc.args)

			assert.Contains(t, output, tc.prefix)
			assert.Contains(t, output, "storage unavailable")
		})
	}
}
