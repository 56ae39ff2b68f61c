package storage

import (
	"context"
	"fmt"
)

var schemas = map[string][]string{
	dialectSQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			admin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth_credentials (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			name TEXT NOT NULL,
			author TEXT NOT NULL,
			genre TEXT NOT NULL,
			publication_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS library (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id INTEGER NOT NULL REFERENCES books(id),
			quantity INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			book_id INTEGER NOT NULL REFERENCES books(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			quantity INTEGER NOT NULL,
			status TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL
		)`,
	},
	dialectMySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			username VARCHAR(255) NOT NULL,
			admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth_credentials (
			user_id VARCHAR(64) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			created_at DATETIME(6) NOT NULL,
			name VARCHAR(255) NOT NULL,
			author VARCHAR(255) NOT NULL,
			genre VARCHAR(255) NOT NULL,
			publication_date DATE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS library (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			book_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			INDEX idx_library_book (book_id),
			FOREIGN KEY (book_id) REFERENCES books(id)
		)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			book_id BIGINT NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			quantity INT NOT NULL,
			status VARCHAR(16) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			INDEX idx_loans_user (user_id),
			FOREIGN KEY (book_id) REFERENCES books(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	},
	dialectPostgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth_credentials (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS books (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			name TEXT NOT NULL,
			author TEXT NOT NULL,
			genre TEXT NOT NULL,
			publication_date DATE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS library (
			id BIGSERIAL PRIMARY KEY,
			book_id BIGINT NOT NULL REFERENCES books(id),
			quantity INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_library_book ON library (book_id)`,
		`CREATE TABLE IF NOT EXISTS loans (
			id BIGSERIAL PRIMARY KEY,
			book_id BIGINT NOT NULL REFERENCES books(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			quantity INTEGER NOT NULL,
			status TEXT NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans (user_id)`,
	},
}

// Migrate creates the library tables if they do not exist yet.
func (a *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[a.dialect] {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", a.dialect, err)
		}
	}
	a.logger.Info("schema ready")
	return nil
}
