package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect selects the SQL engine behind a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB is a migrated, instrumented connection pool plus a query builder
// using the dialect's placeholder format.
type DB struct {
	*sql.DB
	Dialect      Dialect
	QueryBuilder squirrel.StatementBuilderType
}

// Options describes the database to open.
type Options struct {
	Dialect Dialect

	// DSN is a file path for SQLite and a connection URL for Postgres.
	DSN string

	// LogQueries logs every statement at debug level.
	LogQueries bool
	LogOutput  io.Writer
}

// Open connects, runs the embedded migrations and returns the pool.
func Open(opts Options) (*DB, error) {
	driverName, err := driverFor(opts.Dialect)
	if err != nil {
		return nil, err
	}

	if opts.DSN == "" {
		return nil, errors.New("database DSN is not set")
	}

	if opts.Dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := otelsql.Open(driverName, opts.DSN,
		otelsql.WithDBSystem(string(opts.Dialect)),
		otelsql.WithDBName("todoagent"),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := sqldblogger.OpenDriver(opts.DSN, sqlDB.Driver(), zerologadapter.New(queryLogger(opts)),
		sqldblogger.WithMinimumLevel(sqldblogger.LevelDebug),
	)

	sqlDB.Close()

	if opts.Dialect == DialectSQLite {
		// SQLite allows one writer; a single connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(db, opts.Dialect); err != nil {
		db.Close()
		return nil, err
	}

	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	if opts.Dialect == DialectPostgres {
		builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}

	slog.Info("Database ready", "dialect", opts.Dialect)

	return &DB{
		DB:           db,
		Dialect:      opts.Dialect,
		QueryBuilder: builder,
	}, nil
}

// RunMigrations applies the embedded migrations for dialect.
// The migrate instance is not closed since that would close db as well.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	source, err := iofs.New(migrations, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver database.Driver

	switch dialect {
	case DialectSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}

	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func driverFor(dialect Dialect) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

func queryLogger(opts Options) zerolog.Logger {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.WarnLevel
	if opts.LogQueries {
		level = zerolog.DebugLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("component", "sql").Logger()
}
