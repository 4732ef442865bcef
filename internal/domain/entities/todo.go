package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"todoagent/pkg/validation"
)

// TodoStatus represents the possible states of a todo
type TodoStatus string

const (
	TodoStatusNotStarted TodoStatus = "NotStarted"
	TodoStatusInProgress TodoStatus = "InProgress"
	TodoStatusCompleted  TodoStatus = "Completed"
)

var todoStatuses = []TodoStatus{
	TodoStatusNotStarted,
	TodoStatusInProgress,
	TodoStatusCompleted,
}

func init() {
	err := validation.RegisterRule("todo_status", func(fl validator.FieldLevel) bool {
		return TodoStatus(fl.Field().String()).IsValid()
	}, "{0} must be one of "+statusList()+", got '{1}'")

	if err != nil {
		panic(err)
	}
}

// String returns the string representation of the todo status
func (s TodoStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the enumerated statuses.
func (s TodoStatus) IsValid() bool {
	for _, status := range todoStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// TodoStatuses returns every valid status in lifecycle order.
func TodoStatuses() []TodoStatus {
	out := make([]TodoStatus, len(todoStatuses))
	copy(out, todoStatuses)

	return out
}

// ParseStatus converts a raw value into a TodoStatus. Only the exact
// enumerated spellings are accepted.
func ParseStatus(value string) (TodoStatus, error) {
	status := TodoStatus(value)

	if !status.IsValid() {
		return "", &ValidationError{Violations: []validation.Violation{{
			Field:   "status",
			Message: fmt.Sprintf("status must be one of %s, got '%s'", statusList(), value),
		}}}
	}

	return status, nil
}

func statusList() string {
	names := make([]string, len(todoStatuses))

	for i, status := range todoStatuses {
		names[i] = string(status)
	}

	return strings.Join(names, ", ")
}

// TodoItem represents a todo entity in the domain
type TodoItem struct {
	ID          int        `json:"id" yaml:"id" validate:"gt=0"`
	Name        string     `json:"name" yaml:"name" validate:"required"`
	Description *string    `json:"description" yaml:"description"`
	Project     *string    `json:"project" yaml:"project"`
	Status      TodoStatus `json:"status" yaml:"status" validate:"todo_status"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// NewTodoItem builds a fresh item with status NotStarted and both
// timestamps set to now.
func NewTodoItem(id int, name string, description, project *string, now time.Time) (TodoItem, error) {
	item := TodoItem{
		ID:          id,
		Name:        name,
		Description: cloneString(description),
		Project:     cloneString(project),
		Status:      TodoStatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := item.Validate(); err != nil {
		return TodoItem{}, err
	}

	return item, nil
}

// Validate checks field constraints and the timestamp ordering.
func (t TodoItem) Validate() error {
	var violations []validation.Violation

	if err := validation.Validator.Struct(t); err != nil {
		violations = append(violations, validation.FormatValidationErrors(err)...)
	}

	if t.UpdatedAt.Before(t.CreatedAt) {
		violations = append(violations, validation.Violation{
			Field:   "updatedAt",
			Message: "updatedAt must not be before createdAt",
		})
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// InProject reports whether the item belongs to project, ignoring case.
// Items without a project never match.
func (t TodoItem) InProject(project string) bool {
	return t.Project != nil && strings.EqualFold(*t.Project, project)
}

// Apply merges patch into the item. It reports whether anything was
// applied; an empty patch leaves the item, including UpdatedAt, untouched.
func (t *TodoItem) Apply(patch TodoPatch, now time.Time) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}

	if patch.IsEmpty() {
		return false, nil
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}

	if patch.Description != nil {
		t.Description = emptyToNil(*patch.Description)
	}

	if patch.Project != nil {
		t.Project = emptyToNil(*patch.Project)
	}

	if patch.Status != nil {
		t.Status = TodoStatus(*patch.Status)
	}

	// updatedAt moves strictly forward even if the wall clock does not.
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}

	t.UpdatedAt = now

	return true, nil
}

// TodoPatch is a partial update. A nil field means "no change"; an empty
// description or project clears it.
type TodoPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Project     *string `json:"project,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p TodoPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Project == nil && p.Status == nil
}

// Validate rejects an empty name and any status outside the enumeration.
func (p TodoPatch) Validate() error {
	var violations []validation.Violation

	if p.Name != nil && *p.Name == "" {
		violations = append(violations, validation.Violation{
			Field:   "name",
			Message: "name is required",
		})
	}

	if p.Status != nil {
		if _, err := ParseStatus(*p.Status); err != nil {
			violations = append(violations, err.(*ValidationError).Violations...)
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	return emptyToNil(s)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	return emptyToNil(*s)
}
