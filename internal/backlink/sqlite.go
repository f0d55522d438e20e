package backlink

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tsunagu/internal/models"
)

// SQLiteStore persists backlink entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS backlinks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_backlinks_destination ON backlinks(destination);
	CREATE INDEX IF NOT EXISTS idx_backlinks_pair ON backlinks(origin, destination);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Insert appends one backlink row.
func (s *SQLiteStore) Insert(entry models.BacklinkEntry) error {
	_, err := s.db.Exec(
		"INSERT INTO backlinks (origin, destination, term) VALUES (?, ?, ?)",
		entry.Origin, entry.Destination, entry.Term,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backlink: %w", err)
	}
	return nil
}

// Delete removes all rows matching the origin/destination pair.
func (s *SQLiteStore) Delete(origin, destination string) error {
	_, err := s.db.Exec(
		"DELETE FROM backlinks WHERE origin = ? AND destination = ?",
		origin, destination,
	)
	if err != nil {
		return fmt.Errorf("failed to delete backlinks: %w", err)
	}
	return nil
}

// Keep deletes every row whose origin or destination is not in validTitles,
// in one transaction.
func (s *SQLiteStore) Keep(validTitles map[string]struct{}) error {
	if len(validTitles) == 0 {
		if _, err := s.db.Exec("DELETE FROM backlinks"); err != nil {
			return fmt.Errorf("failed to clear backlinks: %w", err)
		}
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(validTitles)), ",")
	args := make([]interface{}, 0, len(validTitles)*2)
	for title := range validTitles {
		args = append(args, title)
	}
	args = append(args, args...)
	query := fmt.Sprintf(
		"DELETE FROM backlinks WHERE origin NOT IN (%s) OR destination NOT IN (%s)",
		placeholders, placeholders,
	)
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to prune backlinks: %w", err)
	}
	return nil
}

// LoadAll returns all rows in insertion order.
func (s *SQLiteStore) LoadAll() ([]models.BacklinkEntry, error) {
	rows, err := s.db.Query("SELECT origin, destination, term FROM backlinks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query backlinks: %w", err)
	}
	defer rows.Close()
	var entries []models.BacklinkEntry
	for rows.Next() {
		var e models.BacklinkEntry
		if err := rows.Scan(&e.Origin, &e.Destination, &e.Term); err != nil {
			return nil, fmt.Errorf("failed to scan backlink: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
