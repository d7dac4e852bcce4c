package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
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

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		chunks INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordDocument inserts a document record. Names are unique: re-recording
// a name replaces the previous row for that document.
func (s *SQLiteRegistry) RecordDocument(ctx context.Context, rec *models.DocumentRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, name, chunks, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Chunks, rec.CreatedAt,
	)
	return err
}

// GetDocument returns a document record by ID.
func (s *SQLiteRegistry) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, chunks, created_at FROM documents WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Chunks, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListDocuments returns document records newest first with offset and limit.
func (s *SQLiteRegistry) ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, chunks, created_at
		 FROM documents ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DocumentRecord
	for rows.Next() {
		var rec models.DocumentRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Chunks, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// CountDocuments returns the total number of document records.
func (s *SQLiteRegistry) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// DeleteDocument removes a document record by ID.
func (s *SQLiteRegistry) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// Clear removes all document records.
func (s *SQLiteRegistry) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}
