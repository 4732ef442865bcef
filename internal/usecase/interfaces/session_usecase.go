package interfaces

import (
	"context"

	"todoagent/internal/domain/entities"
)

// AppendMessagesRequest carries the messages of one exchange
type AppendMessagesRequest struct {
	Messages []entities.Message `json:"messages" validate:"required,min=1,dive"`
}

// SessionUseCase manages turn-bounded conversation histories
type SessionUseCase interface {
	// GetHistory returns the stored history, empty for unknown sessions
	GetHistory(ctx context.Context, sessionID string) (entities.History, error)

	// AppendMessages adds messages, trims to the turn budget and saves
	AppendMessages(ctx context.Context, sessionID string, messages []entities.Message) (entities.History, error)

	// ResetSession clears the history
	ResetSession(ctx context.Context, sessionID string) error
}
