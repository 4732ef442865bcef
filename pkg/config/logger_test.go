package config

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLokiLogger_PushesEntries(t *testing.T) {
	received := make(chan LokiLogEntry, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loki/api/v1/push", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var entry LokiLogEntry
		if json.Unmarshal(body, &entry) == nil {
			received <- entry
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger := newLokiLogger(zap.NewNop(), "todoagent-test", server.URL+"/")
	logger.InfoWithTrace(context.Background(), "Todo created", zap.Int("id", 7))

	select {
	case entry := <-received:
		require.Len(t, entry.Streams, 1)
		assert.Equal(t, "todoagent-test", entry.Streams[0].Stream["service"])
		assert.Equal(t, "info", entry.Streams[0].Stream["level"])

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(entry.Streams[0].Values[0][1]), &line))
		assert.Equal(t, "Todo created", line["message"])
		assert.EqualValues(t, 7, line["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no entry pushed to loki")
	}
}

func TestLokiLogger_NoPushWithoutURL(t *testing.T) {
	logger := NewNopLogger()

	assert.Empty(t, logger.lokiURL)
	logger.ErrorWithTrace(context.Background(), "boom", zap.String("k", "v"))
}
