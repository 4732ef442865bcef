package entities

import (
	"regexp"

	"todoagent/pkg/validation"
)

// DefaultSessionID names the session used when a caller does not pick one.
const DefaultSessionID = "default"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant tool system"`
	Content string `json:"content"`
}

// History is the ordered list of messages exchanged in a session.
type History []Message

// Session is the persisted form of a conversation history.
type Session struct {
	History History `json:"history"`
}

// UserTurns counts the user messages, one per turn.
func (h History) UserTurns() int {
	turns := 0

	for _, msg := range h {
		if msg.Role == RoleUser {
			turns++
		}
	}

	return turns
}

// Trim keeps the most recent maxTurns turns: everything from the
// maxTurns-th newest user message onwards. A non-positive budget keeps all.
func (h History) Trim(maxTurns int) History {
	if maxTurns <= 0 {
		return h
	}

	var userIndexes []int

	for i, msg := range h {
		if msg.Role == RoleUser {
			userIndexes = append(userIndexes, i)
		}
	}

	if len(userIndexes) <= maxTurns {
		return h
	}

	start := userIndexes[len(userIndexes)-maxTurns]

	return h[start:]
}

// ValidateSessionID accepts ids safe to use as a file name or key suffix.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return &ValidationError{Violations: []validation.Violation{{
			Field:   "sessionId",
			Message: "sessionId must be 1-64 letters, digits, '-' or '_'",
		}}}
	}

	return nil
}
