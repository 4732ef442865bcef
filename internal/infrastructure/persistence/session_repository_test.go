package persistence_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoagent/internal/domain/entities"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/persistence"
)

var sampleHistory = entities.History{
	{Role: entities.RoleUser, Content: "add milk to groceries"},
	{Role: entities.RoleTool, Content: "Created to-do item 1 ('milk') in project 'groceries' with status 'NotStarted'."},
	{Role: entities.RoleAssistant, Content: "Done."},
}

func sessionStores(t *testing.T) map[string]repositories.SessionRepository {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return map[string]repositories.SessionRepository{
		"file":  persistence.NewFileSessionRepository(filepath.Join(t.TempDir(), "sessions")),
		"redis": persistence.NewRedisSessionRepository(rdb, 0),
	}
}

func TestSessionRepository_Contract(t *testing.T) {
	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			history, err := store.Load(ctx, "unknown")
			require.NoError(t, err)
			assert.Empty(t, history)

			require.NoError(t, store.Save(ctx, "s1", sampleHistory))

			history, err = store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, sampleHistory, history)

			require.NoError(t, store.Reset(ctx, "s1"))

			history, err = store.Load(ctx, "s1")
			require.NoError(t, err)
			assert.NotNil(t, history)
			assert.Empty(t, history)

			_, err = store.Load(ctx, "../escape")
			assert.ErrorIs(t, err, entities.ErrValidation)
			assert.ErrorIs(t, store.Save(ctx, "a/b", sampleHistory), entities.ErrValidation)
		})
	}
}

func TestFileSessionRepository_Format(t *testing.T) {
	dir := t.TempDir()
	store := persistence.NewFileSessionRepository(dir)

	require.NoError(t, store.Reset(context.Background(), "default"))

	data, err := os.ReadFile(filepath.Join(dir, "default.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"history": []}`, string(data))
}

func TestFileSessionRepository_CorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.json"), []byte("{not json"), 0o644))

	history, err := persistence.NewFileSessionRepository(dir).Load(context.Background(), "default")

	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisSessionRepository_KeyAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := persistence.NewRedisSessionRepository(rdb, time.Hour)
	require.NoError(t, store.Save(context.Background(), "abc", sampleHistory))

	assert.True(t, mr.Exists("todoagent:session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("todoagent:session:abc"))

	require.NoError(t, mr.Set("todoagent:session:broken", "{"))
	history, err := store.Load(context.Background(), "broken")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisSessionRepository_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	_, err := persistence.NewRedisSessionRepository(rdb, 0).Load(context.Background(), "abc")

	assert.ErrorIs(t, err, entities.ErrStorageUnavailable)
}
