package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"todoagent/internal/domain/entities"
)

func decodeSession(data []byte) (entities.History, error) {
	var session entities.Session

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if session.History == nil {
		return entities.History{}, nil
	}

	return session.History, nil
}

func encodeSession(history entities.History) ([]byte, error) {
	if history == nil {
		history = entities.History{}
	}

	data, err := json.MarshalIndent(entities.Session{History: history}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	return append(data, '\n'), nil
}
