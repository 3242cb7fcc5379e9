package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added (entity_id, valid_time, seq) index
const currentSchemaVersion = 1

// IDGenerator produces opaque fact identifiers.
// Injected so tests can use deterministic IDs for golden comparison.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 fact IDs.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Store is the durable, append-only bitemporal fact log.
// Uses SQLite with WAL mode for concurrent read access. The Store
// exclusively owns fact storage; every other component holds only
// transient, query-scoped views.
type Store struct {
	db    *sql.DB
	alloc *SequenceAllocator
	ids   IDGenerator
	now   func() time.Time
}

// Option configures a Store at Open.
type Option func(*Store)

// WithSequenceAllocator injects an explicit allocator. Open advances it to
// the log's high-water mark, so a shared allocator never hands out a
// sequence number the log has already persisted.
func WithSequenceAllocator(a *SequenceAllocator) Option {
	return func(s *Store) { s.alloc = a }
}

// WithIDGenerator injects the fact ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock injects the transaction-time source for drafts that do not
// carry an explicit transaction time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens a SQLite-backed fact log at the given path.
// Applies required pragmas and migrations automatically, then positions the
// sequence allocator at MAX(seq) so appends resume where the log left off.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:    db,
		alloc: NewSequenceAllocator(),
		ids:   UUIDv7Generator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Resume sequence allocation from the persisted high-water mark.
	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM facts").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read sequence high-water mark: %w", err)
	}
	if maxSeq.Valid {
		s.alloc.AdvanceTo(maxSeq.Int64)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Allocator returns the store's sequence allocator.
// Its Current() value is the watermark for snapshot-isolated reads.
func (s *Store) Allocator() *SequenceAllocator {
	return s.alloc
}

// LastSeq returns the highest persisted sequence number, or 0 for an empty
// log. Readers bound their scans to seq <= LastSeq captured at query start.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM facts").Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	if !maxSeq.Valid {
		return 0, nil
	}
	return maxSeq.Int64, nil
}

// Count returns the total number of facts in the log.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the valid-time index for databases created before it
// appeared in schema.sql. CREATE INDEX IF NOT EXISTS is a no-op when the
// index already exists.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_facts_entity_valid
		ON facts(entity_id, valid_time, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
