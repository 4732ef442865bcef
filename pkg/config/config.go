package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
)

// ConfigFileEnv names the variable holding an optional YAML config file.
// Environment variables override values read from the file.
const ConfigFileEnv = "TODOAGENT_CONFIG"

type AppConfig struct {
	Config AppSettings       `yaml:"app"`
	Server ServerConfig      `yaml:"server"`
	Store  StorageConfig     `yaml:"storage"`
	DB     DatabaseConfig    `yaml:"database"`
	Sess   SessionConfig     `yaml:"session"`
	Redis  RedisConfig       `yaml:"redis"`
	Auth   AuthConfig        `yaml:"auth"`
	Telem  TelemetrySettings `yaml:"telemetry"`
}

type AppSettings struct {
	Environment string `yaml:"env" env:"APP_ENV" env-default:"development"`
	Version     string `yaml:"version" env:"VERSION" env-default:"dev"`
}

type ServerConfig struct {
	Port             string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout      time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	RateLimitEnabled bool          `yaml:"rate_limit_enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	CursorSecret     string        `yaml:"cursor_secret" env:"CURSOR_SECRET_KEY"`
	DefaultPageSize  int           `yaml:"default_page_size" env:"DEFAULT_PAGE_SIZE" env-default:"20"`
}

type StorageConfig struct {
	// Driver is one of json, memory, sqlite or postgres.
	Driver          string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"json"`
	Path            string `yaml:"path" env:"STORAGE_PATH" env-default:"data/todos.json"`
	SerializeWrites bool   `yaml:"serialize_writes" env:"STORAGE_SERIALIZE_WRITES" env-default:"false"`
}

type DatabaseConfig struct {
	Path       string `yaml:"path" env:"DATABASE_PATH" env-default:"data/todos.db"`
	URL        string `yaml:"url" env:"DATABASE_URL"`
	LogQueries bool   `yaml:"log_queries" env:"DATABASE_LOG_QUERIES" env-default:"false"`
}

type SessionConfig struct {
	// Driver is file or redis.
	Driver   string        `yaml:"driver" env:"SESSION_DRIVER" env-default:"file"`
	Path     string        `yaml:"path" env:"SESSION_PATH" env-default:"data/sessions"`
	MaxTurns int           `yaml:"max_turns" env:"SESSION_MAX_TURNS" env-default:"12"`
	TTL      time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"0s"`
}

type RedisConfig struct {
	// URL overrides Addr, Password and DB when set.
	URL      string `yaml:"url" env:"REDIS_URL"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type TelemetrySettings struct {
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME" env-default:"todoagent"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	MetricsPort  string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9091"`
	LokiURL      string `yaml:"loki_url" env:"LOKI_URL"`
}

// Load reads the YAML file named by TODOAGENT_CONFIG, if any, then the
// environment, and validates the combination.
func Load() (*AppConfig, error) {
	var cfg AppConfig

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case "json", "memory", "sqlite":
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Store.Driver)
	}

	switch c.Sess.Driver {
	case "file":
	case "redis":
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR or REDIS_URL is required for the redis session driver")
		}
	default:
		return fmt.Errorf("unknown SESSION_DRIVER %q", c.Sess.Driver)
	}

	if c.Server.DefaultPageSize <= 0 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}

	return nil
}

// RedisOptions builds client options, preferring REDIS_URL.
func (c RedisConfig) RedisOptions() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Config.Environment == "production"
}
