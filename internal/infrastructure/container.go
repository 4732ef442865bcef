package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"todoagent/internal/delivery/http/handler"
	"todoagent/internal/domain/repositories"
	"todoagent/internal/infrastructure/database"
	"todoagent/internal/infrastructure/persistence"
	"todoagent/internal/tools"
	"todoagent/internal/usecase/impl"
	"todoagent/internal/usecase/interfaces"
	"todoagent/pkg/config"
)

// Container holds all dependencies
type Container struct {
	// Repositories
	TodoRepo    repositories.TodoRepository
	SessionRepo repositories.SessionRepository

	// Use Cases
	TodoUseCase    interfaces.TodoUseCase
	SessionUseCase interfaces.SessionUseCase

	// Tools
	Tools *tools.Registry

	// Handlers
	TodoHandler    *handler.TodoHandler
	ToolHandler    *handler.ToolHandler
	SessionHandler *handler.SessionHandler

	db    *database.DB
	redis *redis.Client
}

// NewContainer builds the storage variants selected by cfg and wires the
// use cases, tools and handlers on top. metrics may be nil.
func NewContainer(ctx context.Context, cfg *config.AppConfig, logger *config.LokiLogger, metrics *config.AppMetrics) (*Container, error) {
	c := &Container{}

	todoRepo, err := c.newTodoRepository(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	sessionRepo, err := c.newSessionRepository(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	todoUseCase := impl.NewTodoUseCase(todoRepo,
		impl.WithMetrics(metrics),
		impl.WithCursorSecret(cfg.Server.CursorSecret),
		impl.WithDefaultPageSize(cfg.Server.DefaultPageSize),
	)
	sessionUseCase := impl.NewSessionUseCase(sessionRepo, cfg.Sess.MaxTurns, metrics)
	registry := tools.NewTodoTools(todoUseCase, metrics)

	c.TodoRepo = todoRepo
	c.SessionRepo = sessionRepo
	c.TodoUseCase = todoUseCase
	c.SessionUseCase = sessionUseCase
	c.Tools = registry
	c.TodoHandler = handler.NewTodoHandler(todoUseCase, logger)
	c.ToolHandler = handler.NewToolHandler(registry, logger)
	c.SessionHandler = handler.NewSessionHandler(sessionUseCase, logger)

	slog.Info("Container ready",
		"storage_driver", cfg.Store.Driver,
		"session_driver", cfg.Sess.Driver,
		"max_turns", cfg.Sess.MaxTurns)

	return c, nil
}

func (c *Container) newTodoRepository(cfg *config.AppConfig) (repositories.TodoRepository, error) {
	var opts []persistence.Option
	if cfg.Store.SerializeWrites {
		opts = append(opts, persistence.WithSerializedWrites())
	}

	switch cfg.Store.Driver {
	case "json":
		return persistence.NewJSONTodoRepository(cfg.Store.Path, opts...), nil

	case "memory":
		return persistence.NewMemoryTodoRepository(opts...), nil

	case "sqlite", "postgres":
		dsn := cfg.DB.Path
		if cfg.Store.Driver == "postgres" {
			dsn = cfg.DB.URL
		}

		db, err := database.Open(database.Options{
			Dialect:    database.Dialect(cfg.Store.Driver),
			DSN:        dsn,
			LogQueries: cfg.DB.LogQueries,
			LogOutput:  os.Stderr,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s database: %w", cfg.Store.Driver, err)
		}

		c.db = db

		return persistence.NewSQLTodoRepository(db, opts...), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Store.Driver)
}

func (c *Container) newSessionRepository(ctx context.Context, cfg *config.AppConfig) (repositories.SessionRepository, error) {
	switch cfg.Sess.Driver {
	case "file":
		return persistence.NewFileSessionRepository(cfg.Sess.Path), nil

	case "redis":
		opts, err := cfg.Redis.RedisOptions()
		if err != nil {
			return nil, err
		}

		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		c.redis = rdb

		return persistence.NewRedisSessionRepository(rdb, cfg.Sess.TTL), nil
	}

	return nil, fmt.Errorf("unknown session driver %q", cfg.Sess.Driver)
}

// Close releases database and redis connections, if any were opened.
func (c *Container) Close() error {
	var errs []error

	if c.db != nil {
		errs = append(errs, c.db.Close())
	}

	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}

	return errors.Join(errs...)
}
