// Package storage is the metadata store gateway: notebook, document and
// chunk persistence on SQLite, including the full-text index backing the
// exact recall path. The FTS virtual table requires the sqlite_fts5 build
// tag on the driver.
package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS notebooks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			source_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			notebook_id TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			byte_size INTEGER NOT NULL DEFAULT 0,
			storage_path TEXT NOT NULL DEFAULT '',
			parser_engine TEXT NOT NULL DEFAULT '',
			parser_version TEXT NOT NULL DEFAULT '',
			chunking_strategy TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error_detail TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}',
			summary TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (notebook_id) REFERENCES notebooks(id),
			UNIQUE (notebook_id, content_hash)
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			notebook_id TEXT NOT NULL,
			parent_chunk_id TEXT,
			chunk_index INTEGER NOT NULL,
			page_numbers TEXT NOT NULL DEFAULT '[]',
			chunk_type TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			is_parent INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_notebook_active ON chunks(notebook_id, is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_notebook ON documents(notebook_id);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			content,
			content='chunks',
			content_rowid='rowid'
		);`,
		`CREATE TRIGGER IF NOT EXISTS chunks_fts_insert AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, content) VALUES (new.rowid, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS chunks_fts_delete AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		END;`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
