package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver selects the concrete SQL engine behind Storage.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config holds storage configuration. For SQLite, DataDir names the
// directory holding the database file; for Postgres, DSN is the full
// connection string and DataDir is ignored.
type Config struct {
	Driver  Driver
	DataDir string
	DSN     string
}

// Storage is the store's single-writer handle: one *sql.DB shared
// read-only with collectors, with the chain follower as the sole writer.
type Storage struct {
	db     *sql.DB
	driver Driver
}

// New opens (and, if necessary, initializes) the store.
func New(cfg *Config) (*Storage, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	var db *sql.DB
	var err error

	switch cfg.Driver {
	case DriverSQLite:
		db, err = openSQLite(cfg.DataDir)
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// A single writer at a time; SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, driver: cfg.Driver}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}

	return s, nil
}

func openSQLite(dataDir string) (*sql.DB, error) {
	dataDir = expandPath(dataDir)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "chainindex.db")
	return sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for callers (e.g. collectors) that need
// raw query access.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Driver reports which SQL engine this store is backed by.
func (s *Storage) Driver() Driver {
	return s.driver
}

func (s *Storage) initSchema() error {
	var schema string
	switch s.driver {
	case DriverPostgres:
		schema = postgresSchema
	default:
		schema = sqliteSchema
	}

	_, err := s.db.Exec(schema)
	return err
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
