package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const (
	memoryPath = ":memory:"

	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout     = 5 * time.Second
	connMaxLifetime = time.Hour
	connMaxIdleTime = 30 * time.Minute
)

// DB is the object store's SQLite handle. The embedded *sql.DB is used
// directly by the repositories; DB adds migrations and lifecycle helpers.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of config.yaml.
type Config struct {
	Path        string // file path or ":memory:"; parent directories are created
	WALMode     bool   // ignored for in-memory databases
	BusyTimeout int    // seconds to wait on a locked database
}

func (c Config) inMemory() bool {
	return c.Path == memoryPath
}

// dsn builds the go-sqlite3 connection string for c.
func (c Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(c.BusyTimeout*1000))
	q.Set("_foreign_keys", "on")
	if c.WALMode && !c.inMemory() {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + c.Path + "?" + q.Encode()
}

// Open opens (and if needed creates) the database described by cfg and
// checks it answers a ping.
//
// The pool holds a single connection: SQLite has one writer, and an
// in-memory database exists only for the lifetime of its connection.
//
// Parameters:
//   - ctx: bounds the ping
//   - cfg: database section of the configuration
//
// Returns:
//   - *DB: open handle; run Migrate before use
//   - error: if the directory cannot be created or the ping fails
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if !cfg.inMemory() {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if !cfg.inMemory() {
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("pinging database %s: %w", cfg.Path, err)
	}

	if !cfg.inMemory() {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // the file may not exist until the first write
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close closes the pool. It is safe on a DB whose handle was never opened.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the configured path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Stats returns connection pool statistics for /system.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
