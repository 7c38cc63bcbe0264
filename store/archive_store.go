package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"qwerty/api/database"
	"qwerty/api/models"
)

// ClickHouseArchive mirrors accepted view events into ClickHouse for ad-hoc
// analytics. It is write-mostly and best-effort; the Postgres page_views table
// remains the source of truth for all counters.
type ClickHouseArchive struct {
	DB  *database.ClickHouseClient
	log *zap.Logger
}

func NewClickHouseArchive(chClient *database.ClickHouseClient, log *zap.Logger) *ClickHouseArchive {
	return &ClickHouseArchive{DB: chClient, log: log}
}

func (s *ClickHouseArchive) InitSchema(ctx context.Context) error {
	err := s.DB.Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS page_view_events (
			event_id String,
			url String,
			session_id String,
			viewed_at DateTime64(3, 'UTC')
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(viewed_at)
		ORDER BY (url, viewed_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create page_view_events table: %w", err)
	}
	return nil
}

func (s *ClickHouseArchive) InsertViewEvents(ctx context.Context, events []models.ViewEventRecord) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO page_view_events (event_id, url, session_id, viewed_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(event.EventID, event.URL, event.SessionID, event.ViewedAt)
		if err != nil {
			s.log.Error("Error appending event to batch",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.log.Debug("Archived view events", zap.Int("count", len(events)))
	return nil
}
