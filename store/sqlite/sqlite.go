/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists loops, expenses, and settings. Records are stored as raw JSON
  blobs, NOT as typed columns: the persisted data predates the current
  schema by several generations, and the store's contract is to return
  exactly what was written. The normalizer - not the database - owns the
  canonical shape. A legacy record with snake_case money fields or a single
  "tip" field round-trips through this store untouched.

KEY TABLES:
  loops:     id, user_id, raw_json, timestamps
  expenses:  id, user_id, raw_json, timestamps
  settings:  one raw_json row per user

JSON NUMBERS:
  Reads decode with json.Number so monetary precision survives the trip;
  the normalizer accepts json.Number directly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, a single writer at a time, better crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  cache := ledger.NewCache(store, estimator, userID, logger)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fairway/loopledger/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Loops (raw record blobs; shape interpreted by the normalizer only)
	CREATE TABLE IF NOT EXISTS loops (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loops_user
		ON loops(user_id);
	CREATE INDEX IF NOT EXISTS idx_loops_user_updated
		ON loops(user_id, updated_at DESC);

	-- Expenses
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_user
		ON expenses(user_id);
	CREATE INDEX IF NOT EXISTS idx_expenses_user_updated
		ON expenses(user_id, updated_at DESC);

	-- Settings (single row per user)
	CREATE TABLE IF NOT EXISTS settings (
		user_id TEXT PRIMARY KEY,
		raw_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOOPS
// =============================================================================

func (s *Store) ListLoops(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.list(ctx, "loops", userID)
}

func (s *Store) UpsertLoop(ctx context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	return s.upsert(ctx, "loops", userID, raw)
}

func (s *Store) DeleteLoop(ctx context.Context, id string) error {
	return s.delete(ctx, "loops", id)
}

// =============================================================================
// EXPENSES
// =============================================================================

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]ledger.RawRecord, error) {
	return s.list(ctx, "expenses", userID)
}

func (s *Store) UpsertExpense(ctx context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	return s.upsert(ctx, "expenses", userID, raw)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.delete(ctx, "expenses", id)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) LoadSettings(ctx context.Context, userID string) (ledger.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_json FROM settings WHERE user_id = ?`, userID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(blob)
}

func (s *Store) SaveSettings(ctx context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, raw_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			raw_json = excluded.raw_json,
			updated_at = excluded.updated_at`,
		userID, string(blob), now())
	if err != nil {
		return nil, err
	}
	return decodeRecord(blob)
}

// =============================================================================
// SHARED RECORD OPERATIONS
// =============================================================================
// Loops and expenses share a table layout; table names below come from the
// two constants above, never from input.

func (s *Store) list(ctx context.Context, table, userID string) ([]ledger.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT raw_json FROM %s WHERE user_id = ? ORDER BY updated_at DESC, id`, table), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.RawRecord
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		record, err := decodeRecord(blob)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) upsert(ctx context.Context, table, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := raw["id"].(string)
	if id == "" {
		id = uuid.NewString()
		stored := make(ledger.RawRecord, len(raw)+1)
		for k, v := range raw {
			stored[k] = v
		}
		stored["id"] = id
		raw = stored
	}

	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, raw_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_json = excluded.raw_json,
			updated_at = excluded.updated_at`, table),
		id, userID, string(blob), ts, ts)
	if err != nil {
		return nil, err
	}
	return decodeRecord(blob)
}

func (s *Store) delete(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrRecordNotFound
	}
	return nil
}

// decodeRecord parses a stored JSON blob with number precision preserved.
func decodeRecord(blob []byte) (ledger.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var record ledger.RawRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
