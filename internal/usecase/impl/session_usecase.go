package impl

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/usecase/interfaces"
	"todoagent/pkg/config"
	. "todoagent/pkg/tracing"
	"todoagent/pkg/validation"
)

type sessionUseCase struct {
	sessions repositories.SessionRepository
	maxTurns int
	metrics  *config.AppMetrics
}

// NewSessionUseCase keeps at most maxTurns user turns per session; a
// non-positive budget keeps everything. metrics may be nil.
func NewSessionUseCase(sessions repositories.SessionRepository, maxTurns int, metrics *config.AppMetrics) interfaces.SessionUseCase {
	return &sessionUseCase{sessions: sessions, maxTurns: maxTurns, metrics: metrics}
}

func (s *sessionUseCase) GetHistory(ctx context.Context, sessionID string) (entities.History, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.session.GetHistory", []attribute.KeyValue{
		attribute.String("session.id", sessionID),
	})
	defer span.End()

	s.record(ctx, "load")

	history, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		AddSpanError(span, err)
	}

	return history, err
}

func (s *sessionUseCase) AppendMessages(ctx context.Context, sessionID string, messages []entities.Message) (entities.History, error) {
	ctx, span := CreateChildSpan(ctx, "usecase.session.AppendMessages", []attribute.KeyValue{
		attribute.String("session.id", sessionID),
		attribute.Int("session.messages", len(messages)),
	})
	defer span.End()

	req := interfaces.AppendMessagesRequest{Messages: messages}
	if err := validation.Validator.Struct(req); err != nil {
		return nil, &entities.ValidationError{Violations: validation.FormatValidationErrors(err)}
	}

	history, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		AddSpanError(span, err)
		return nil, err
	}

	history = append(history, messages...).Trim(s.maxTurns)

	if err := s.sessions.Save(ctx, sessionID, history); err != nil {
		AddSpanError(span, err)
		return nil, err
	}

	s.record(ctx, "append")
	span.SetAttributes(attribute.Int("session.turns", history.UserTurns()))

	return history, nil
}

func (s *sessionUseCase) ResetSession(ctx context.Context, sessionID string) error {
	ctx, span := CreateChildSpan(ctx, "usecase.session.ResetSession", []attribute.KeyValue{
		attribute.String("session.id", sessionID),
	})
	defer span.End()

	if err := s.sessions.Reset(ctx, sessionID); err != nil {
		AddSpanError(span, err)
		return err
	}

	s.record(ctx, "reset")

	return nil
}

func (s *sessionUseCase) record(ctx context.Context, operation string) {
	if s.metrics != nil {
		s.metrics.RecordSessionOperation(ctx, operation)
	}
}
