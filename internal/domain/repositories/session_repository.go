package repositories

import (
	"context"

	"todoagent/internal/domain/entities"
)

// SessionRepository persists conversation histories by session id.
type SessionRepository interface {
	// Load returns the stored history, empty when the session is unknown
	Load(ctx context.Context, sessionID string) (entities.History, error)

	// Save replaces the stored history
	Save(ctx context.Context, sessionID string, history entities.History) error

	// Reset stores an empty history
	Reset(ctx context.Context, sessionID string) error
}
