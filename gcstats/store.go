// Package gcstats journals collection statistics to SQLite.
package gcstats

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/lispcore/lisp"
)

var log = commonlog.GetLogger("lispcore.gcstats")

// ErrNoCollections indicates the journal is empty.
var ErrNoCollections = errors.New("no collections recorded")

// Store is a SQLite-backed lisp.StatsSink.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
	failed int
}

// Open opens or creates the journal at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		context_id TEXT NOT NULL,
		epoch INTEGER NOT NULL,
		objects_before INTEGER NOT NULL,
		objects_after INTEGER NOT NULL,
		bytes_before INTEGER NOT NULL,
		bytes_after INTEGER NOT NULL,
		roots INTEGER NOT NULL,
		symbols_swept INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		taken_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.dbPath }

// RecordCollection implements lisp.StatsSink. Write failures are logged
// and counted; they never interrupt the collector.
func (s *Store) RecordCollection(st *lisp.Stats) {
	if err := s.Record(st); err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		log.Errorf("recording collection at epoch %d: %s", st.Epoch, err)
	}
}

// Failed returns the number of RecordCollection calls that could not be
// written.
func (s *Store) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Record inserts one row for st.
func (s *Store) Record(st *lisp.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO collections (
		id, context_id, epoch, objects_before, objects_after, bytes_before,
		bytes_after, roots, symbols_swept, duration_ns, taken_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), st.ContextID, st.Epoch, st.ObjectsBefore, st.ObjectsAfter,
		st.BytesBefore, st.BytesAfter, st.Roots, st.SymbolsSwept,
		int64(st.Duration), st.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

const selectColumns = `context_id, epoch, objects_before, objects_after, bytes_before,
	bytes_after, roots, symbols_swept, duration_ns, taken_at`

// Recent returns up to limit collections, newest first.
func (s *Store) Recent(limit int) ([]*lisp.Stats, error) {
	rows, err := s.db.Query(
		"SELECT "+selectColumns+" FROM collections ORDER BY taken_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	return scanStats(rows)
}

// ForContext returns every collection of one context, oldest first.
func (s *Store) ForContext(contextID string) ([]*lisp.Stats, error) {
	rows, err := s.db.Query(
		"SELECT "+selectColumns+" FROM collections WHERE context_id = ? ORDER BY epoch, rowid",
		contextID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	return scanStats(rows)
}

func scanStats(rows *sql.Rows) ([]*lisp.Stats, error) {
	defer rows.Close()
	var out []*lisp.Stats
	for rows.Next() {
		var st lisp.Stats
		var duration, taken int64
		if err := rows.Scan(&st.ContextID, &st.Epoch, &st.ObjectsBefore, &st.ObjectsAfter,
			&st.BytesBefore, &st.BytesAfter, &st.Roots, &st.SymbolsSwept, &duration, &taken); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		st.Duration = time.Duration(duration)
		st.Timestamp = time.Unix(0, taken)
		out = append(out, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading collections: %w", err)
	}
	return out, nil
}

// Summary aggregates the whole journal.
type Summary struct {
	Collections int
	Contexts    int
	BytesFreed  int64
	TotalTime   time.Duration
	MaxTime     time.Duration
	Last        time.Time
}

// Summarize aggregates every recorded collection.
func (s *Store) Summarize() (*Summary, error) {
	var sum Summary
	var freed, total, longest, last sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT context_id),
		SUM(bytes_before - bytes_after), SUM(duration_ns), MAX(duration_ns), MAX(taken_at)
		FROM collections`).Scan(&sum.Collections, &sum.Contexts, &freed, &total, &longest, &last)
	if err != nil {
		return nil, fmt.Errorf("summarizing collections: %w", err)
	}
	if sum.Collections == 0 {
		return nil, ErrNoCollections
	}
	sum.BytesFreed = freed.Int64
	sum.TotalTime = time.Duration(total.Int64)
	sum.MaxTime = time.Duration(longest.Int64)
	sum.Last = time.Unix(0, last.Int64)
	return &sum, nil
}
