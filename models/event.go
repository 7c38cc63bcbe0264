package models

import "time"

// ViewEventRecord is the row shape mirrored into the ClickHouse archive for
// ad-hoc analytics. The Postgres page_views table stays the source of truth.
type ViewEventRecord struct {
	EventID   string    `json:"event_id"`
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}
