package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"todoagent/internal/domain/entities"
	"todoagent/internal/usecase/interfaces"
	"todoagent/pkg/config"
)

const (
	CreateTodoTool = "create_todo"
	ReadTodosTool  = "read_todos"
	UpdateTodoTool = "update_todo"
	DeleteTodoTool = "delete_todo"
)

// NewTodoTools builds a registry holding the four to-do tools.
func NewTodoTools(todos interfaces.TodoUseCase, metrics *config.AppMetrics) *Registry {
	registry := NewRegistry(metrics)
	t := &todoTools{todos: todos}

	registry.Register(&FuncTool{
		ToolName: CreateTodoTool,
		ToolDesc: "Creates a new to-do item. Use when the user asks to add, create or remember a task; " +
			"organise tasks into projects where it helps.",
		ToolParams: objectSchema([]string{"name"}, map[string]any{
			"name":        stringProp("Brief, clear task title"),
			"description": stringProp("Optional details or subtasks"),
			"project":     stringProp("Optional project or category"),
		}),
		Fn: t.create,
	})

	registry.Register(&FuncTool{
		ToolName: ReadTodosTool,
		ToolDesc: "Reads all to-do items, or one item by id, or the items of a project (case-insensitive). " +
			"Check the list before updating or deleting.",
		ToolParams: objectSchema(nil, map[string]any{
			"item_id": integerProp("Optional id of a single item"),
			"project": stringProp("Optional project name to filter by"),
		}),
		Fn: t.read,
	})

	registry.Register(&FuncTool{
		ToolName: UpdateTodoTool,
		ToolDesc: "Updates an existing to-do item. Past tense from the user usually means status Completed.",
		ToolParams: objectSchema([]string{"item_id"}, map[string]any{
			"item_id":     integerProp("Id of the item to update"),
			"name":        stringProp("New name"),
			"description": stringProp("New description; empty clears it"),
			"project":     stringProp("New project; empty clears it"),
			"status": map[string]any{
				"type":        "string",
				"description": "Exact status value",
				"enum":        statusNames(),
			},
		}),
		Fn: t.update,
	})

	registry.Register(&FuncTool{
		ToolName: DeleteTodoTool,
		ToolDesc: "Deletes a to-do item by id. Confirm with the user before deleting.",
		ToolParams: objectSchema([]string{"item_id"}, map[string]any{
			"item_id": integerProp("Id of the item to delete"),
		}),
		Fn: t.delete,
	})

	return registry
}

type todoTools struct {
	todos interfaces.TodoUseCase
}

func (t *todoTools) create(ctx context.Context, args map[string]any) (string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", err
	}

	description, err := stringArg(args, "description")
	if err != nil {
		return "", err
	}

	project, err := stringArg(args, "project")
	if err != nil {
		return "", err
	}

	req := interfaces.CreateTodoRequest{Description: description, Project: project}
	if name != nil {
		req.Name = *name
	}

	item, err := t.todos.CreateTodo(ctx, req)
	if err != nil {
		slog.Error("create_todo failed", "error", err)
		return fmt.Sprintf("Error creating to-do: %v", err), nil
	}

	projectName := "None"
	if item.Project != nil {
		projectName = *item.Project
	}

	return fmt.Sprintf("Created to-do item %d ('%s') in project '%s' with status '%s'.",
		item.ID, item.Name, projectName, item.Status), nil
}

func (t *todoTools) read(ctx context.Context, args map[string]any) (string, error) {
	id, hasID, err := intArg(args, "item_id")
	if err != nil {
		return "", err
	}

	project, err := stringArg(args, "project")
	if err != nil {
		return "", err
	}

	if hasID {
		item, ok, err := t.todos.GetTodo(ctx, id)
		if err != nil {
			return fmt.Sprintf("Error reading to-dos: %v", err), nil
		}

		if !ok {
			return fmt.Sprintf("To-do item with ID %d not found.", id), nil
		}

		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Sprintf("Error reading to-dos: %v", err), nil
		}

		return string(data), nil
	}

	if project != nil && *project != "" {
		items, err := t.todos.ListTodos(ctx, *project)
		if err != nil {
			return fmt.Sprintf("Error reading to-dos: %v", err), nil
		}

		if len(items) == 0 {
			return fmt.Sprintf("No to-do items found for project '%s'.", *project), nil
		}

		return renderList(items)
	}

	items, err := t.todos.ListTodos(ctx, "")
	if err != nil {
		return fmt.Sprintf("Error reading to-dos: %v", err), nil
	}

	return renderList(items)
}

func (t *todoTools) update(ctx context.Context, args map[string]any) (string, error) {
	id, hasID, err := intArg(args, "item_id")
	if err != nil {
		return "", err
	}

	if !hasID {
		return "", fmt.Errorf("%w: item_id is required", ErrInvalidArguments)
	}

	var patch entities.TodoPatch

	for key, field := range map[string]**string{
		"name":        &patch.Name,
		"description": &patch.Description,
		"project":     &patch.Project,
		"status":      &patch.Status,
	} {
		if *field, err = stringArg(args, key); err != nil {
			return "", err
		}
	}

	if patch.Status != nil {
		if _, err := entities.ParseStatus(*patch.Status); err != nil {
			return fmt.Sprintf("Error: Invalid status '%s'. Please use one of: %s.",
				*patch.Status, strings.Join(statusNames(), ", ")), nil
		}
	}

	if patch.IsEmpty() {
		return "Error: No fields to update were provided.", nil
	}

	_, ok, err := t.todos.UpdateTodo(ctx, id, patch)
	if err != nil {
		slog.Error("update_todo failed", "error", err, "id", id)
		return fmt.Sprintf("Error updating to-do: %v", err), nil
	}

	if !ok {
		return fmt.Sprintf("To-do item with id %d not found.", id), nil
	}

	return fmt.Sprintf("Updated to-do item %d.", id), nil
}

func (t *todoTools) delete(ctx context.Context, args map[string]any) (string, error) {
	id, hasID, err := intArg(args, "item_id")
	if err != nil {
		return "", err
	}

	if !hasID {
		return "", fmt.Errorf("%w: item_id is required", ErrInvalidArguments)
	}

	deleted, err := t.todos.DeleteTodo(ctx, id)
	if err != nil {
		slog.Error("delete_todo failed", "error", err, "id", id)
		return fmt.Sprintf("Error deleting to-do: %v", err), nil
	}

	if !deleted {
		return fmt.Sprintf("To-do item with id %d not found.", id), nil
	}

	return fmt.Sprintf("Deleted to-do item %d.", id), nil
}

// renderList writes a JSON array with one indented object per element.
func renderList(items []entities.TodoItem) (string, error) {
	parts := make([]string, len(items))

	for i, item := range items {
		data, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return fmt.Sprintf("Error reading to-dos: %v", err), nil
		}
		parts[i] = string(data)
	}

	return "[\n" + strings.Join(parts, ",\n") + "\n]", nil
}

// stringArg returns nil when key is absent or null.
func stringArg(args map[string]any, key string) (*string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArguments, key, raw)
	}

	return &s, nil
}

// intArg accepts JSON numbers with no fractional part and numeric strings.
func intArg(args map[string]any, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt || v < math.MinInt {
			return 0, false, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArguments, key, v)
		}
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s must be an integer, got %s", ErrInvalidArguments, key, v)
		}
		return int(n), true, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArguments, key, v)
		}
		return n, true, nil
	}

	return 0, false, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidArguments, key, raw)
}

func objectSchema(required []string, properties map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func statusNames() []string {
	statuses := entities.TodoStatuses()
	names := make([]string, len(statuses))

	for i, status := range statuses {
		names[i] = status.String()
	}

	return names
}
