package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"modernc.org/sqlite"

	"github.com/spec-kit/ticket-triage/internal/config"
)

const sqliteMemory = ":memory:"

// SQLiteFoldFunc is the SQL function that lowercases Unicode text. The
// built-in LOWER only folds ASCII.
const SQLiteFoldFunc = "casefold"

var registerFunctions sync.Once

// casefold must be registered before the first connection is opened.
func registerSQLiteFunctions() {
	registerFunctions.Do(func() {
		sqlite.MustRegisterDeterministicScalarFunction(SQLiteFoldFunc, 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case nil:
					return nil, nil
				case string:
					return strings.ToLower(v), nil
				case []byte:
					return strings.ToLower(string(v)), nil
				default:
					return v, nil
				}
			})
	})
}

// SQLite wraps an embedded SQLite database used when no Postgres server is available.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens (or creates) the database file named in cfg.
func NewSQLite(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*SQLite, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = sqliteMemory
	}
	registerSQLiteFunctions()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if path != sqliteMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite wal: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite busy_timeout: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("opened sqlite", zap.String("path", path))
	return &SQLite{DB: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies the database is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite not configured")
	}
	return s.DB.PingContext(ctx)
}
