/*
Package sqlite provides a SQLite-backed implementation of stream.Store.

PURPOSE:
  Durable storage for the singleton config, the stream identifier counter
  and the stream records. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  config:   Singleton row (id = 0) holding token + admin
  counters: Named counters; 'next_stream_id' backs the allocator
  streams:  One row per stream, mutated in place by lifecycle operations

AMOUNT ENCODING:
  Amounts are 128-bit integers and stored as TEXT in base-10; SQLite
  INTEGER is 64-bit and would truncate.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) for better concurrency: multiple
  readers don't block, single writer at a time, better crash recovery.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of the single connection.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

USAGE:
  st, err := sqlite.New("./data/streams.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - stream/store.go: Interface definition
  - stream/store/memory.go: In-memory implementation for testing
  - store/bolt: bbolt-backed alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/stream-engine/stream"
)

// Store implements stream.Store using SQLite.
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

func (s *Store) migrate() error {
	schema := `
	-- Singleton configuration (token asset + admin principal)
	CREATE TABLE IF NOT EXISTS config (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		token TEXT NOT NULL,
		admin TEXT NOT NULL
	);

	-- Named counters; 'next_stream_id' backs the identifier allocator
	CREATE TABLE IF NOT EXISTS counters (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	-- Stream records, mutated in place; Completed/Cancelled rows are
	-- retained forever
	CREATE TABLE IF NOT EXISTS streams (
		id INTEGER PRIMARY KEY,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		deposit_amount TEXT NOT NULL,
		rate_per_second TEXT NOT NULL,
		start_time INTEGER NOT NULL,
		cliff_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		withdrawn_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		cancelled_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_streams_sender ON streams(sender);
	CREATE INDEX IF NOT EXISTS idx_streams_recipient ON streams(recipient);
	CREATE INDEX IF NOT EXISTS idx_streams_status ON streams(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONFIG
// =============================================================================

func (s *Store) GetConfig(ctx context.Context) (stream.Config, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg stream.Config
	row := s.db.QueryRowContext(ctx, `SELECT token, admin FROM config WHERE id = 0`)
	if err := row.Scan(&cfg.Token, &cfg.Admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stream.Config{}, false, nil
		}
		return stream.Config{}, false, err
	}
	return cfg, true, nil
}

func (s *Store) PutConfig(ctx context.Context, cfg stream.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (id, token, admin) VALUES (0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, admin = excluded.admin`,
		string(cfg.Token), string(cfg.Admin))
	return err
}

// =============================================================================
// IDENTIFIER COUNTER
// =============================================================================

func (s *Store) NextStreamID(ctx context.Context) (stream.StreamID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value int64
	row := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'next_stream_id'`)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return stream.StreamID(value), nil
}

func (s *Store) SetNextStreamID(ctx context.Context, id stream.StreamID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES ('next_stream_id', ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		int64(id))
	return err
}

// =============================================================================
// STREAMS
// =============================================================================

func (s *Store) GetStream(ctx context.Context, id stream.StreamID) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, recipient, deposit_amount, rate_per_second,
		       start_time, cliff_time, end_time, withdrawn_amount, status, cancelled_at
		FROM streams WHERE id = ?`, int64(id))

	var (
		rec         stream.Stream
		deposit     string
		rate        string
		withdrawn   string
		status      string
		cancelledAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Sender, &rec.Recipient, &deposit, &rate,
		&rec.StartTime, &rec.CliffTime, &rec.EndTime, &withdrawn, &status, &cancelledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stream.ErrStreamNotFound
		}
		return nil, err
	}

	if rec.DepositAmount, err = stream.ParseAmount(deposit); err != nil {
		return nil, fmt.Errorf("corrupt deposit_amount for stream %d: %w", id, err)
	}
	if rec.RatePerSecond, err = stream.ParseAmount(rate); err != nil {
		return nil, fmt.Errorf("corrupt rate_per_second for stream %d: %w", id, err)
	}
	if rec.WithdrawnAmount, err = stream.ParseAmount(withdrawn); err != nil {
		return nil, fmt.Errorf("corrupt withdrawn_amount for stream %d: %w", id, err)
	}
	rec.Status = stream.Status(status)
	if cancelledAt.Valid {
		at := uint64(cancelledAt.Int64)
		rec.CancelledAt = &at
	}
	return &rec, nil
}

func (s *Store) PutStream(ctx context.Context, rec *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cancelledAt sql.NullInt64
	if rec.CancelledAt != nil {
		cancelledAt = sql.NullInt64{Int64: int64(*rec.CancelledAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streams (id, sender, recipient, deposit_amount, rate_per_second,
		                     start_time, cliff_time, end_time, withdrawn_amount, status, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			withdrawn_amount = excluded.withdrawn_amount,
			status = excluded.status,
			cancelled_at = excluded.cancelled_at`,
		int64(rec.ID), string(rec.Sender), string(rec.Recipient),
		rec.DepositAmount.String(), rec.RatePerSecond.String(),
		int64(rec.StartTime), int64(rec.CliffTime), int64(rec.EndTime),
		rec.WithdrawnAmount.String(), string(rec.Status), cancelledAt)
	return err
}
