// Package sqlite is a local store backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3" // driver
	"github.com/rs/zerolog"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ store.Store = (*Store)(nil)

// Store wraps a database handle.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn and applies pending migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	logger := logging.FromContext(ctx)
	logger.Debug().Str("path", dsn).Msg("Opening database")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapResource("open", "database", dsn, err)
	}
	// An in-memory database lives as long as its single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, errors.WrapResource("configure", "database", dsn, err)
		}
	}

	if err := Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already migrated handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapResource("begin", "transaction", "", err)
	}
	return &tx{ctx: ctx, tx: sqlTx}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded migrations that are not yet recorded.
func Migrate(ctx context.Context, db *sql.DB, logger *zerolog.Logger) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return errors.WrapResource("read", "migrations", "", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		version, _, _ := strings.Cut(name, "_")

		var applied bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&applied)
		if err != nil && version != "000" {
			return errors.WrapResource("check", "migration", name, err)
		}
		if applied {
			logger.Trace().Str("migration", name).Msg("Skipping applied migration")
			continue
		}

		body, err := migrations.ReadFile(path.Join("migrations", name))
		if err != nil {
			return errors.WrapResource("read", "migration", name, err)
		}

		logger.Debug().Str("migration", name).Msg("Applying migration")
		sqlTx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.WrapResource("begin", "migration", name, err)
		}
		if _, err := sqlTx.ExecContext(ctx, string(body)); err != nil {
			_ = sqlTx.Rollback()
			return errors.WrapResource("execute", "migration", name, err)
		}
		if _, err := sqlTx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = sqlTx.Rollback()
			return errors.WrapResource("record", "migration", name, err)
		}
		if err := sqlTx.Commit(); err != nil {
			return errors.WrapResource("commit", "migration", name, err)
		}
	}
	return nil
}
