package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ledgerPragmas are applied by the driver on every new connection.
var ledgerPragmas = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// migration upgrades a ledger created by an older release.
type migration struct {
	version int
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// migrations run in order for every version above the ledger's user_version.
var migrations = []migration{
	{version: 1, apply: indexSweepsByStart},
}

// currentSchemaVersion is the user_version of an up-to-date ledger.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store is the sweep ledger.
// Uses SQLite with WAL mode so history can be read while a sweep is running.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger at path and brings its schema up to
// date. Opening the same ledger twice is harmless.
func Open(path string) (*Store, error) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", "file:"+path+"?"+ledgerPragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// One writer at a time; a sweep writes from a single goroutine anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to ledger %s: %w", path, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare ledger %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates missing tables, then applies pending migrations one
// transaction at a time, bumping user_version with each.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := m.apply(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit v%d: %w", m.version, err)
		}
	}
	return nil
}

// indexSweepsByStart backs ListSweeps' newest-first ordering.
func indexSweepsByStart(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sweeps_started_at ON sweeps(started_at)`)
	return err
}

// pragma reads a pragma's current value. Used by tests.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
