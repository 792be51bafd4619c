// Package history keeps a capped record of past searches in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MaxRecords caps history retention; the oldest rows beyond it are pruned
// on every insert.
const MaxRecords = 100

// Record is one remembered search.
type Record struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	Source      string    `json:"source"`
	ResultCount int       `json:"result_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store persists search history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS searches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  query TEXT NOT NULL,
  source TEXT NOT NULL,
  result_count INTEGER NOT NULL DEFAULT 0,
  timestamp TEXT NOT NULL
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends a search record and prunes rows beyond MaxRecords.
func (s *Store) Add(query, source string, resultCount int) error {
	_, err := s.db.Exec(
		`INSERT INTO searches (query, source, result_count, timestamp) VALUES (?, ?, ?, ?)`,
		query, source, resultCount, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM searches WHERE id NOT IN (SELECT id FROM searches ORDER BY id DESC LIMIT ?)`,
		MaxRecords,
	)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.query(`SELECT id, query, source, result_count, timestamp
FROM searches ORDER BY id DESC LIMIT ?`, limit)
}

// Search returns records whose query contains keyword, most recent first.
func (s *Store) Search(keyword string) ([]Record, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return s.query(`SELECT id, query, source, result_count, timestamp
FROM searches WHERE query LIKE ? ESCAPE '\' ORDER BY id DESC`, pattern)
}

// Clear deletes all history.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM searches`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func (s *Store) query(q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.ID, &r.Query, &r.Source, &r.ResultCount, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.Timestamp, _ = time.Parse(time.RFC3339, ts)
		records = append(records, r)
	}
	return records, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
