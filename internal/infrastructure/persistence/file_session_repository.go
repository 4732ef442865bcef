package persistence

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
)

type fileSessionRepository struct {
	dir string
}

// NewFileSessionRepository stores each session as <dir>/<id>.json.
func NewFileSessionRepository(dir string) repositories.SessionRepository {
	return &fileSessionRepository{dir: dir}
}

// Load returns an empty history when the file is missing or not valid JSON.
func (r *fileSessionRepository) Load(ctx context.Context, sessionID string) (entities.History, error) {
	if err := entities.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	path := r.path(sessionID)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return entities.History{}, nil
	}
	if err != nil {
		return nil, &entities.StorageError{Op: "read session", Path: path, Err: err}
	}

	history, err := decodeSession(data)
	if err != nil {
		slog.Warn("Discarding unreadable session", "session", sessionID, "error", err)
		return entities.History{}, nil
	}

	return history, nil
}

func (r *fileSessionRepository) Save(ctx context.Context, sessionID string, history entities.History) error {
	if err := entities.ValidateSessionID(sessionID); err != nil {
		return err
	}

	path := r.path(sessionID)

	data, err := encodeSession(history)
	if err != nil {
		return &entities.StorageError{Op: "encode session", Path: path, Err: err}
	}

	if err := writeFileAtomic(path, data); err != nil {
		return &entities.StorageError{Op: "write session", Path: path, Err: err}
	}

	return nil
}

func (r *fileSessionRepository) Reset(ctx context.Context, sessionID string) error {
	return r.Save(ctx, sessionID, entities.History{})
}

func (r *fileSessionRepository) path(sessionID string) string {
	return filepath.Join(r.dir, sessionID+".json")
}
