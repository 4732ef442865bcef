package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
)

const sessionKeyPrefix = "todoagent:session:"

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionRepository stores sessions under todoagent:session:<id>.
// A ttl of zero keeps them until reset.
func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) repositories.SessionRepository {
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *redisSessionRepository) Load(ctx context.Context, sessionID string) (entities.History, error) {
	if err := entities.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := r.rdb.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return entities.History{}, nil
	}
	if err != nil {
		return nil, &entities.StorageError{Op: "get session", Path: sessionKeyPrefix + sessionID, Err: err}
	}

	history, err := decodeSession(data)
	if err != nil {
		slog.Warn("Discarding unreadable session", "session", sessionID, "error", err)
		return entities.History{}, nil
	}

	return history, nil
}

func (r *redisSessionRepository) Save(ctx context.Context, sessionID string, history entities.History) error {
	if err := entities.ValidateSessionID(sessionID); err != nil {
		return err
	}

	data, err := encodeSession(history)
	if err != nil {
		return &entities.StorageError{Op: "encode session", Path: sessionKeyPrefix + sessionID, Err: err}
	}

	if err := r.rdb.Set(ctx, sessionKeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return &entities.StorageError{Op: "set session", Path: sessionKeyPrefix + sessionID, Err: err}
	}

	return nil
}

func (r *redisSessionRepository) Reset(ctx context.Context, sessionID string) error {
	return r.Save(ctx, sessionID, entities.History{})
}
