// Package store persists reasoning core snapshots in SQLite. Each save
// is a new row; LoadLatest restores from the most recent one, so older
// snapshots double as rollback points.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vthunder/ideonet/internal/snapshot"
)

// ErrEmpty is returned by LoadLatest when no snapshot has been saved.
var ErrEmpty = errors.New("no snapshots stored")

// DB wraps the SQLite connection holding snapshots.
type DB struct {
	db   *sql.DB
	path string
}

// Meta describes a stored snapshot without its payload.
type Meta struct {
	ID        int64
	Version   int
	Ideoms    int
	Prefabs   int
	CreatedAt time.Time
}

// Open opens or creates the snapshot database under statePath.
func Open(statePath string) (*DB, error) {
	dbPath := filepath.Join(statePath, "system", "ideonet.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &DB{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL,
		ideom_count INTEGER NOT NULL,
		prefab_count INTEGER NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Save stores a snapshot and returns its row ID.
func (s *DB) Save(snap *snapshot.Snapshot) (int64, error) {
	payload, err := snapshot.Encode(snap)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO snapshots (version, ideom_count, prefab_count, payload) VALUES (?, ?, ?, ?)`,
		snap.Version, len(snap.Ideoms), len(snap.Prefabs), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return res.LastInsertId()
}

// LoadLatest returns the most recently saved snapshot. A payload with a
// mismatched version fails with snapshot.ErrVersionMismatch and nothing
// is restored.
func (s *DB) LoadLatest() (*snapshot.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snapshot.Decode(payload)
}

// Load returns the snapshot with the given row ID.
func (s *DB) Load(id int64) (*snapshot.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %d: %w", id, err)
	}
	return snapshot.Decode(payload)
}

// List returns stored snapshot metadata, newest first.
func (s *DB) List() ([]Meta, error) {
	rows, err := s.db.Query(
		`SELECT id, version, ideom_count, prefab_count, created_at FROM snapshots ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.ID, &m.Version, &m.Ideoms, &m.Prefabs, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Prune deletes all but the newest keep snapshots and returns how many
// rows were removed.
func (s *DB) Prune(keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return res.RowsAffected()
}
