package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the tables the API needs if they do not exist yet. It is
// idempotent and runs at startup; there is no versioned migration history.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(100) NOT NULL UNIQUE,
			avatar_url TEXT NOT NULL DEFAULT '',
			hashed_password BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			slug VARCHAR(255) NOT NULL UNIQUE,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			styling JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS post_likes (
			id BIGSERIAL PRIMARY KEY,
			post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (post_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS page_views (
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			session_id TEXT NOT NULL,
			viewed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_views_session_url
			ON page_views (session_id, url, viewed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_page_views_viewed_at
			ON page_views (viewed_at)`,
		`CREATE TABLE IF NOT EXISTS page_stats (
			url TEXT PRIMARY KEY,
			total_views BIGINT NOT NULL DEFAULT 0,
			unique_visitors BIGINT NOT NULL DEFAULT 0,
			last_viewed_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date DATE PRIMARY KEY,
			total_views BIGINT NOT NULL DEFAULT 0,
			unique_visitors BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}

	return nil
}
