package vm

import (
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrProgramNotFound indicates no cached program exists for a hash.
var ErrProgramNotFound = errors.New("program not found")

// ---------------------------------------------------------------------------
// ProgramStore: content-addressed compile cache
// ---------------------------------------------------------------------------

// ProgramStore caches compiled programs in SQLite, keyed by the
// SHA-256 of their source bytes. Unchanged sources skip recompilation
// entirely on later runs.
type ProgramStore struct {
	db *sql.DB
	mu sync.Mutex
}

// HashSource returns the cache key for a source file's bytes.
func HashSource(src []byte) [32]byte {
	return sha256.Sum256(src)
}

// OpenProgramStore opens (creating if needed) a program cache at the
// given path.
func OpenProgramStore(path string) (*ProgramStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening program store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash BLOB PRIMARY KEY,
		name TEXT NOT NULL,
		encoded BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating programs table: %w", err)
	}

	return &ProgramStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ProgramStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a compiled program under the source hash. An existing
// entry for the same hash is replaced; the encoding is canonical, so
// the replacement is byte-identical anyway.
func (s *ProgramStore) Put(hash [32]byte, name string, prog *Program) error {
	data, err := MarshalProgram(prog)
	if err != nil {
		return fmt.Errorf("encoding program: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO programs (hash, name, encoded, created_at) VALUES (?, ?, ?, ?)`,
		hash[:], name, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing program: %w", err)
	}
	return nil
}

// Get returns the cached program for a source hash, or
// ErrProgramNotFound.
func (s *ProgramStore) Get(hash [32]byte) (*Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow(`SELECT encoded FROM programs WHERE hash = ?`, hash[:]).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrProgramNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}
	return UnmarshalProgram(data)
}

// Count returns the number of cached programs.
func (s *ProgramStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM programs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}
