package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"todoagent/internal/domain/entities"
	"todoagent/pkg/validation"
)

// DecodeTodoItems parses a JSON array of to-do records. Unknown keys (for
// instance the boolean "completed" schema) and invalid records are rejected.
func DecodeTodoItems(data []byte) ([]entities.TodoItem, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var items []entities.TodoItem

	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}

	if items == nil {
		return nil, errors.New("decode todos: expected a JSON array")
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode todos: unexpected data after array")
	}

	if err := ValidateTodoItems(items); err != nil {
		return nil, err
	}

	return items, nil
}

// ValidateTodoItems checks every record and the uniqueness of ids.
func ValidateTodoItems(items []entities.TodoItem) error {
	seen := make(map[int]bool, len(items))

	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}

		if seen[item.ID] {
			return fmt.Errorf("record %d: duplicate id %d", i, item.ID)
		}

		seen[item.ID] = true
	}

	return nil
}

// EncodeTodoItems renders the collection with two-space indentation and a
// trailing newline.
func EncodeTodoItems(items []entities.TodoItem) ([]byte, error) {
	if items == nil {
		items = []entities.TodoItem{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode todos: %w", err)
	}

	return append(data, '\n'), nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// over path, creating parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".todoagent-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}

func violationsOf(err error) []validation.Violation {
	return []validation.Violation{{Field: "items", Message: err.Error()}}
}

func nextID(items []entities.TodoItem) int {
	maxID := 0

	for _, item := range items {
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	return maxID + 1
}

func cloneItem(item entities.TodoItem) entities.TodoItem {
	if item.Description != nil {
		description := *item.Description
		item.Description = &description
	}

	if item.Project != nil {
		project := *item.Project
		item.Project = &project
	}

	return item
}

func cloneItems(items []entities.TodoItem) []entities.TodoItem {
	out := make([]entities.TodoItem, len(items))

	for i, item := range items {
		out[i] = cloneItem(item)
	}

	return out
}
